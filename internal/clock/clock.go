// Package clock provides the coordination engine's single source of "now"
// and identifier generation (C1), so every service depends on an interface
// rather than calling time.Now/uuid.New directly — tests can substitute a
// fixed clock to exercise lease expiry deterministically.
package clock

import (
	"time"

	"github.com/google/uuid"
)

// Clock returns the current instant. The coordination engine only needs
// monotonic wall-clock UTC time; no separate monotonic reading is exposed
// since Postgres timestamps and lease comparisons are wall-clock based.
type Clock interface {
	Now() time.Time
}

// System is the production Clock backed by time.Now.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// NewID returns a new random UUID string, used for every entity primary key.
func NewID() string {
	return uuid.NewString()
}
