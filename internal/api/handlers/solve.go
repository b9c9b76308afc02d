package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fleet-route-planner/internal/api/dto"
	"fleet-route-planner/internal/domain"
	"fleet-route-planner/internal/platform/obs"
	"fleet-route-planner/internal/services"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DaySolver plans one day for one owner.
type DaySolver interface {
	SolveDay(ctx context.Context, req services.SolveRequest) (*domain.SolveResult, error)
}

type SolveHandler struct {
	Planner DaySolver
	// Timeout bounds one solve, including the matrix lookup.
	Timeout  time.Duration
	validate *validator.Validate
}

func NewSolveHandler(planner DaySolver, timeout time.Duration) *SolveHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &SolveHandler{Planner: planner, Timeout: timeout, validate: v}
}

// Solve plans the requested day and returns routes, skipped drivers and
// unassigned jobs. A day with nothing to plan or no feasible plan is still
// a 200 response; see the status field.
func (h *SolveHandler) Solve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.SolveRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	svcReq, err := req.ToService()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	res, err := h.Planner.SolveDay(ctx, svcReq)
	if err != nil {
		log := obs.FromContext(r.Context())
		switch {
		case errors.Is(err, domain.ErrOwnerNotFound):
			writeError(w, r, http.StatusNotFound, fmt.Sprintf("owner %d not found", svcReq.OwnerID))
		case errors.Is(err, domain.ErrInvalidRequest):
			writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			log.Warn().Err(err).Msg("solve timed out")
			writeError(w, r, http.StatusGatewayTimeout, "solve timed out")
		default:
			log.Error().Err(err).Msg("solve day failed")
			writeError(w, r, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromResult(res))
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	ve := &domain.ValidationError{Field: strings.TrimPrefix(fe.Namespace(), "SolveRequest."), Reason: describeTag(fe)}
	return ve.Error()
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
