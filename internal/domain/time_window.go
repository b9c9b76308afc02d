package domain

import "fmt"

const MinutesPerDay = 24 * 60

// TimeWindow is a [Start, End] interval in minutes after midnight of the planning date.
type TimeWindow struct {
	Start int
	End   int
}

// LatestStart is the last minute at which a visit of serviceMinutes can begin
// and still finish inside the window.
func (w TimeWindow) LatestStart(serviceMinutes int) int {
	return w.End - serviceMinutes
}

// Fits reports whether a visit of serviceMinutes fits inside the window.
func (w TimeWindow) Fits(serviceMinutes int) bool {
	return w.LatestStart(serviceMinutes) >= w.Start
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s-%s", FormatMinute(w.Start), FormatMinute(w.End))
}

// Break is an optional closed interval inside opening hours (e.g. lunch).
type Break struct {
	Start int
	End   int
}

// FormatMinute renders a minute-of-day as HH:MM.
func FormatMinute(m int) string {
	if m < 0 {
		return fmt.Sprintf("-%s", FormatMinute(-m))
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
