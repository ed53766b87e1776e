package scenario

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"
)

// Session is the per-user state that lives between a user's start and stop.
type Session struct {
	Profile  string
	Username string
	Password string
	// UserID is sent with room joins; zero sends user 1.
	UserID int
	// RoomID is empty until a room has been created or chosen.
	RoomID string

	Rand *rand.Rand
}

// NewSession creates an empty session for the profile. A nil rng is replaced
// with a time-seeded one.
func NewSession(profile string, rng *rand.Rand) *Session {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Session{Profile: profile, Rand: rng}
}

// Email is the address registered for the session's username.
func (s *Session) Email() string {
	return s.Username + "@example.com"
}

// lastUsernameStamp is the highest millisecond value handed out so far.
var lastUsernameStamp atomic.Int64

// usernameStamp returns now in unix milliseconds, bumped past every value
// already issued so that two sessions never share a username.
func usernameStamp(now time.Time) int64 {
	ms := now.UnixMilli()
	for {
		last := lastUsernameStamp.Load()
		next := ms
		if next <= last {
			next = last + 1
		}
		if lastUsernameStamp.CompareAndSwap(last, next) {
			return next
		}
	}
}

// NewUsername generates a process-unique test username.
func NewUsername(now time.Time) string {
	return fmt.Sprintf("testuser_%d", usernameStamp(now))
}
