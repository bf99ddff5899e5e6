package session

import "magnetctl/internal/domain"

// Outcome is the result of dispatching one alert: either it was fully handled
// and stays out of the event log, or it is surfaced with a message.
type Outcome struct {
	surfaced bool
	category domain.Category
	message  string
}

func Suppressed() Outcome {
	return Outcome{}
}

func Surfaced(category domain.Category, message string) Outcome {
	return Outcome{surfaced: true, category: category, message: message}
}

func (o Outcome) IsSurfaced() bool {
	return o.surfaced
}

// Event returns the log entry for a surfaced outcome.
func (o Outcome) Event() (domain.Category, string, bool) {
	return o.category, o.message, o.surfaced
}
