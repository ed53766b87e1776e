// Package scenario declares the simulated user behaviors for the niuniu
// game backend.
//
// A Profile is a flat table of weighted tasks. Each Task describes exactly one
// HTTP call: method, path, payload template, the status codes that count as a
// successful outcome and, optionally, a handler that inspects the body of an
// accepted response. Nothing in this package performs I/O; the engine and the
// Locust worker both execute the same declarations.
package scenario

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Accept is the set of status codes a task treats as success.
// A nil Accept allows any status; transport errors still fail.
type Accept []int

// AnyStatus accepts every HTTP status code.
var AnyStatus Accept

// Codes builds an Accept set.
func Codes(codes ...int) Accept {
	return Accept(codes)
}

// Allows reports whether the status code is an accepted outcome.
func (a Accept) Allows(code int) bool {
	if a == nil {
		return true
	}
	for _, c := range a {
		if c == code {
			return true
		}
	}
	return false
}

func (a Accept) String() string {
	if a == nil {
		return "any"
	}
	parts := make([]string, len(a))
	for i, c := range a {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

// WaitTime is a uniformly distributed think time between two bounds.
type WaitTime struct {
	Min time.Duration
	Max time.Duration
}

// Between returns a WaitTime sampling uniformly in [min, max].
func Between(min, max time.Duration) WaitTime {
	if max < min {
		min, max = max, min
	}
	return WaitTime{Min: min, Max: max}
}

// Sample draws one think time.
func (w WaitTime) Sample(r *rand.Rand) time.Duration {
	span := w.Max - w.Min
	if span <= 0 {
		return w.Min
	}
	return w.Min + time.Duration(r.Float64()*float64(span))
}

func (w WaitTime) String() string {
	return fmt.Sprintf("%s-%s", w.Min, w.Max)
}

// Request is a fully resolved call, ready to be sent.
type Request struct {
	Method string
	Path   string
	// Name groups statistics; it differs from Path when the path embeds ids.
	Name string
	// Body is JSON-encoded when non-nil.
	Body any
}

// Task is one weighted action of a profile.
type Task struct {
	Name   string
	Weight int

	Method string
	Path   string
	// PathFunc overrides Path for routes that embed session state.
	PathFunc func(s *Session) string
	// Payload builds the JSON body. Nil means no body.
	Payload func(s *Session) any

	Accept Accept
	// FailFormat formats the failure message for a rejected status code.
	FailFormat string
	// Handle inspects the body of an accepted response. A returned error
	// turns the outcome into a failure.
	Handle func(s *Session, body []byte) error
}

// Build resolves the task against a session.
func (t *Task) Build(s *Session) Request {
	req := Request{Method: t.Method, Path: t.Path, Name: t.Path}
	if t.PathFunc != nil {
		req.Path = t.PathFunc(s)
	}
	if t.Payload != nil {
		req.Body = t.Payload(s)
	}
	return req
}

// Rejection returns the failure message for an unaccepted status code.
func (t *Task) Rejection(code int) string {
	format := t.FailFormat
	if format == "" {
		format = "Unexpected status code: %d"
	}
	return fmt.Sprintf(format, code)
}

// Profile is a user class: a think-time distribution and weighted tasks.
type Profile struct {
	Name        string
	Description string
	// Weight controls how many users of this profile are spawned
	// relative to the others.
	Weight int
	Wait   WaitTime
	Tasks  []*Task

	OnStart func(s *Session) error
	OnStop  func(s *Session)
}

// TotalWeight is the sum of all task weights.
func (p *Profile) TotalWeight() int {
	total := 0
	for _, t := range p.Tasks {
		if t.Weight > 0 {
			total += t.Weight
		}
	}
	return total
}

// Pick chooses a task with probability proportional to its weight.
func (p *Profile) Pick(r *rand.Rand) *Task {
	total := p.TotalWeight()
	if total == 0 {
		return nil
	}
	n := r.Intn(total)
	for _, t := range p.Tasks {
		if t.Weight <= 0 {
			continue
		}
		if n < t.Weight {
			return t
		}
		n -= t.Weight
	}
	return nil
}

// Task looks up a task by name.
func (p *Profile) Task(name string) (*Task, bool) {
	for _, t := range p.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// All returns fresh copies of every profile, in declaration order.
// Callers may mutate the returned profiles freely.
func All() []*Profile {
	return []*Profile{
		GameServerUser(),
		LoginServerUser(),
		HallServerUser(),
		StressTestUser(),
	}
}

// Names lists the profile names in declaration order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	return names
}

// Lookup returns a fresh copy of the named profile.
func Lookup(name string) (*Profile, bool) {
	for _, p := range All() {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Select returns the named profiles, or all of them when names is empty.
func Select(names ...string) ([]*Profile, error) {
	if len(names) == 0 {
		return All(), nil
	}
	seen := make(map[string]bool, len(names))
	var out []*Profile
	var unknown []string
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		p, ok := Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, p)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown profile(s) %s, available: %s",
			strings.Join(unknown, ", "), strings.Join(Names(), ", "))
	}
	return out, nil
}
