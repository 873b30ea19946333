// Package tickertest steps a fake clock behind a ticker.Scheduler.
package tickertest

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kozaktomas/vms-kiosk/internal/ticker"
)

// New returns a scheduler on a fake clock starting at start.
func New(start time.Time) (*ticker.Scheduler, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(start)
	return ticker.New(clock), clock
}

// Step advances clock by interval n times. After each step it waits until
// handled(i) reports that tick i (1-based) was processed, so no tick is coalesced
// with the next one.
func Step(t testing.TB, clock *clockwork.FakeClock, interval time.Duration, n int, handled func(i int) bool) {
	t.Helper()
	for i := 1; i <= n; i++ {
		clock.Advance(interval)
		deadline := time.Now().Add(time.Second)
		for !handled(i) {
			if time.Now().After(deadline) {
				t.Fatalf("tick %d was not handled", i)
			}
			time.Sleep(time.Millisecond)
		}
	}
}
