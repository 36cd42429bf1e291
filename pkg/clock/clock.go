// Package clock keeps the logger's wall clock. Readers always get a
// consistent snapshot of all fields.
package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nicktill/hikelog/pkg/sample"
)

// Time is one reading of the clock. Year counts from 2000.
type Time struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// FromTime converts a time.Time to a clock Time.
func FromTime(t time.Time) Time {
	return Time{
		Year:   t.Year() - 2000,
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// Std returns t as a time.Time in loc.
func (t Time) Std(loc *time.Location) time.Time {
	return time.Date(2000+t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, t.Second, 0, loc)
}

// MinuteOfDay returns minutes since midnight.
func (t Time) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// Packed returns t as a snapshot timestamp.
func (t Time) Packed() sample.Timestamp {
	return sample.PackTimestamp(t.Year, t.Month, t.Day, t.Hour, t.Minute)
}

func (t Time) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", 2000+t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}

// Reader is the read side of the clock.
type Reader interface {
	Now() Time
}

// Clock is a software real-time clock advanced by Tick.
type Clock struct {
	mu  sync.RWMutex
	now time.Time
}

// New returns a clock set to start. Sub-second precision is dropped.
func New(start Time) *Clock {
	return &Clock{now: start.Std(time.UTC)}
}

// Now returns a consistent snapshot of every clock field.
func (c *Clock) Now() Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return FromTime(c.now)
}

// Set moves the clock to t.
func (c *Clock) Set(t Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.Std(time.UTC)
}

// Tick advances the clock one second, rolling over minutes, hours, days,
// months and years. It returns the new time and whether a new minute began.
func (c *Clock) Tick() (Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(time.Second)
	t := FromTime(c.now)
	return t, t.Second == 0
}

// Run ticks the clock every interval until ctx is done. Each minute
// boundary is sent on minutes; if the receiver is still busy with the
// previous minute the new one is dropped rather than queued.
func (c *Clock) Run(ctx context.Context, interval time.Duration, minutes chan<- Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t, newMinute := c.Tick()
			if !newMinute {
				continue
			}
			select {
			case minutes <- t:
			default:
			}
		}
	}
}
