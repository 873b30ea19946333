package kiosk

import (
	"sync"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/constants"
	"github.com/kozaktomas/vms-kiosk/internal/ticker"
)

// Header is the clock shown in the kiosk header.
type Header struct {
	Time string `json:"time"` // 24h HH:MM
	Day  string `json:"day"`
	Date string `json:"date"`
}

// FormatHeader renders t for the header.
func FormatHeader(t time.Time) Header {
	return Header{
		Time: t.Format("15:04"),
		Day:  t.Weekday().String(),
		Date: t.Format("1/2/2006"),
	}
}

// Clock keeps the header current on a scheduler.
type Clock struct {
	sched *ticker.Scheduler

	mu      sync.RWMutex
	current Header
	stop    func()
}

// StartClock renders the header now and then every second until Stop.
func StartClock(sched *ticker.Scheduler) *Clock {
	c := &Clock{sched: sched, current: FormatHeader(sched.Now())}
	c.stop = sched.Every(constants.ClockInterval, func(now time.Time) {
		h := FormatHeader(now)
		c.mu.Lock()
		c.current = h
		c.mu.Unlock()
	})
	return c
}

func (c *Clock) Current() Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Clock) Stop() {
	c.stop()
}
