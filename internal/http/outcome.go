package http

import "time"

// Outcome is the result of one executed task request.
type Outcome struct {
	Method string
	// Name is the stats name, Path the concrete path that was requested.
	Name string
	Path string
	Task string

	Start      time.Time
	Duration   time.Duration
	StatusCode int
	Length     int64

	// Err is nil for a successful outcome.
	Err error
	// Transport is set when the request never produced a readable response.
	Transport bool
	// Canceled is set when the run stopped while the request was in flight.
	// Canceled outcomes are not reported.
	Canceled bool
}

// Success reports whether the outcome counts as a pass.
func (o Outcome) Success() bool {
	return o.Err == nil
}
