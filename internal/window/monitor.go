package window

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tools.zach/dev/deskcord/internal/logger"
)

// DefaultInterval matches the shell's default auto-check period.
const DefaultInterval = 5 * time.Second

// minInterval keeps a misconfigured period from spinning the CPU.
const minInterval = 250 * time.Millisecond

// ///////////////////////////////////////////////
// Monitor
// ///////////////////////////////////////////////

// Monitor polls a [Scanner] and publishes the window list to subscribers
// whenever it changes. Slow subscribers only ever see the newest list.
type Monitor struct {
	scanner  *Scanner
	log      *slog.Logger
	interval atomic.Int64
	enabled  atomic.Bool

	mu      sync.Mutex
	subs    map[int]chan []Info
	nextID  int
	last    []Info
	hasLast bool
}

// NewMonitor returns an enabled Monitor polling every interval.
func NewMonitor(scanner *Scanner, interval time.Duration) *Monitor {
	m := &Monitor{
		scanner: scanner,
		log:     logger.Component(slog.Default(), "monitor"),
		subs:    make(map[int]chan []Info),
	}
	m.SetInterval(interval)
	m.enabled.Store(true)
	return m
}

// SetInterval changes the polling period from the next tick on.
func (m *Monitor) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	m.interval.Store(int64(max(d, minInterval)))
}

// Interval returns the current polling period.
func (m *Monitor) Interval() time.Duration { return time.Duration(m.interval.Load()) }

// SetEnabled pauses or resumes polling. A paused monitor keeps its
// subscribers and last list.
func (m *Monitor) SetEnabled(on bool) { m.enabled.Store(on) }

// Subscribe returns a channel receiving each changed list and a cancel
// function. If a list is already known it is delivered first.
func (m *Monitor) Subscribe() (<-chan []Info, func()) {
	ch := make(chan []Info, 1)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	if m.hasLast {
		ch <- m.last
	}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Latest returns the most recently published list.
func (m *Monitor) Latest() ([]Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.hasLast
}

// Poll scans once and publishes when the list differs from the last one.
// It reports whether anything was published.
func (m *Monitor) Poll() bool {
	list, err := m.scanner.List()
	if err != nil {
		m.log.Debug("window scan failed", "error", err)
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasLast && sameWindows(m.last, list) {
		return false
	}
	m.last = list
	m.hasLast = true
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- list
	}
	m.log.Debug("window list changed", "count", len(list), "subscribers", len(m.subs))
	return true
}

// Run polls until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Poll()
	timer := time.NewTimer(m.Interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if m.enabled.Load() {
				m.Poll()
			}
			timer.Reset(m.Interval())
		}
	}
}
