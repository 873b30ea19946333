package ticker_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/ticker"
	"github.com/kozaktomas/vms-kiosk/internal/ticker/tickertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu    sync.Mutex
	ticks []time.Time
}

func (r *recorder) add(now time.Time) {
	r.mu.Lock()
	r.ticks = append(r.ticks, now)
	r.mu.Unlock()
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ticks)
}

func TestScheduler_Every(t *testing.T) {
	sched, clock := tickertest.New(epoch)
	assert.Equal(t, epoch, sched.Now())

	var rec recorder
	stop := sched.Every(time.Second, rec.add)

	tickertest.Step(t, clock, time.Second, 3, func(i int) bool { return rec.len() == i })
	rec.mu.Lock()
	assert.Equal(t, epoch.Add(3*time.Second), rec.ticks[2])
	rec.mu.Unlock()

	stop()
	stop()
	clock.Advance(5 * time.Second)
	assert.Never(t, func() bool { return rec.len() != 3 }, 30*time.Millisecond, 5*time.Millisecond)
}

func TestScheduler_StopFromCallback(t *testing.T) {
	sched, clock := tickertest.New(epoch)
	var count atomic.Int32
	var stop func()
	stopped := make(chan struct{})
	stop = sched.Every(time.Second, func(time.Time) {
		if count.Add(1) == 2 {
			stop()
			close(stopped)
		}
	})

	tickertest.Step(t, clock, time.Second, 2, func(i int) bool { return int(count.Load()) == i })
	<-stopped

	clock.Advance(5 * time.Second)
	assert.Never(t, func() bool { return count.Load() != 2 }, 30*time.Millisecond, 5*time.Millisecond)
}

func TestNewReal_EveryStops(t *testing.T) {
	var count atomic.Int32
	stop := ticker.NewReal().Every(5*time.Millisecond, func(time.Time) { count.Add(1) })

	require.Eventually(t, func() bool { return count.Load() >= 2 }, time.Second, 5*time.Millisecond)
	stop()

	settled := count.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, count.Load(), settled+1)
}
