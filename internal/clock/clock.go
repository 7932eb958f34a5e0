// Package clock wraps the platform's monotonic physical-time source so
// that the scheduler and watchdog can be driven by a fake clock in tests
// instead of sleeping in wall-clock time.
package clock

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the platform adapter's time_physical/sleep surface.
type Clock = clock.Clock

// New returns the real wall-clock implementation.
func New() Clock { return clock.New() }

// NewMock returns a fake clock for deterministic tests; advance it with
// Mock.Add.
func NewMock() *clock.Mock { return clock.NewMock() }

// PhysicalNanos returns the current instant in nanoseconds, the Go
// equivalent of the platform adapter's time_physical().
func PhysicalNanos(c Clock) int64 {
	return c.Now().UnixNano()
}

// Sleep blocks the calling goroutine for d, honoring a mock clock in tests.
func Sleep(c Clock, d time.Duration) {
	c.Sleep(d)
}
