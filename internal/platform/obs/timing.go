package obs

import (
	"context"
	"time"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// WithRequestID stores the request id used by FromContext and Time.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// Time measures an operation until the returned func is called, typically
// as `defer obs.Time(ctx, "op")(&err)`. The duration is logged and observed
// in OpDuration under op and "ok" or "error".
func Time(ctx context.Context, op string) func(errp *error) {
	start := time.Now()

	return func(errp *error) {
		dur := time.Since(start)
		l := FromContext(ctx)

		if errp != nil && *errp != nil {
			OpDuration.WithLabelValues(op, "error").Observe(dur.Seconds())
			l.Warn().Str("op", op).Int64("dur_ms", dur.Milliseconds()).Err(*errp).Msg("op failed")
			return
		}
		OpDuration.WithLabelValues(op, "ok").Observe(dur.Seconds())
		l.Debug().Str("op", op).Int64("dur_ms", dur.Milliseconds()).Msg("op done")
	}
}
