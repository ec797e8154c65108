// internal/timer/timer.go
//
// Elapsed-time tracking for a game session.
// Responsibilities:
//   - Stopwatch: starts on the first flip (caller decides), reports elapsed
//     time on a fixed tick, freezes the final value on Stop.
//   - Format: renders a duration as "MM:SS.CC" for the on-screen clock.

package timer

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTick is the stock reporting interval for the on-screen clock.
const DefaultTick = 50 * time.Millisecond

// Format renders d as "MM:SS.CC" (minutes, seconds, centiseconds, each
// zero-padded to two digits). Minutes widen past two digits only for
// extreme durations. Negative durations clamp to zero.
func Format(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	cent := (ms % 1000) / 10
	sec := (ms / 1000) % 60
	min := ms / (1000 * 60)
	return fmt.Sprintf("%02d:%02d.%02d", min, sec, cent)
}

// Stopwatch measures one session's elapsed time and pushes periodic tick
// reports. One Stopwatch serves one session; Start is called at most once.
type Stopwatch struct {
	mu       sync.Mutex
	interval time.Duration
	started  time.Time
	running  bool
	frozen   time.Duration
	done     chan struct{}
}

// NewStopwatch returns a stopped Stopwatch reporting every interval
// (DefaultTick when interval is zero or negative).
func NewStopwatch(interval time.Duration) *Stopwatch {
	if interval <= 0 {
		interval = DefaultTick
	}
	return &Stopwatch{interval: interval}
}

// Start records the start instant and begins ticking. onTick receives the
// current elapsed time on every tick until Stop. Starting an already
// running stopwatch is a no-op.
func (s *Stopwatch) Start(onTick func(time.Duration)) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.started = time.Now()
	s.running = true
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	if onTick == nil {
		return
	}
	go func() {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				onTick(s.Elapsed())
			case <-done:
				return
			}
		}
	}()
}

// Stop halts ticking and freezes the elapsed value. Safe to call more
// than once.
func (s *Stopwatch) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.frozen = time.Since(s.started)
	s.running = false
	close(s.done)
}

// Elapsed reports time since Start, or the frozen value after Stop.
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return time.Since(s.started)
	}
	return s.frozen
}
