// Package ticker is the scheduled-tick service behind the kiosk clock and the OTP
// resend countdown. Components receive a Scheduler instead of starting timers
// themselves, so they can be stopped on teardown and driven by a fake clock in tests.
package ticker

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler runs callbacks on a clock.
type Scheduler struct {
	clock clockwork.Clock
}

func New(clock clockwork.Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// NewReal schedules on the wall clock.
func NewReal() *Scheduler {
	return New(clockwork.NewRealClock())
}

func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Every calls fn with the tick time every d until stop is called. stop is
// idempotent and may be called from inside fn.
func (s *Scheduler) Every(d time.Duration, fn func(now time.Time)) (stop func()) {
	t := s.clock.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case now := <-t.Chan():
				select {
				case <-done:
					return
				default:
				}
				fn(now)
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			t.Stop()
			close(done)
		})
	}
}
