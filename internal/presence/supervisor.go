// Package presence coordinates the single Discord IPC connection shared by
// every command the GUI shell sends.
//
// A [Supervisor] owns a slot holding zero or one [Handle]. [Supervisor.Initialize]
// fills it after a bounded number of connection attempts, [Supervisor.Update]
// pushes activities without ever waiting on the connection lock, and
// [Supervisor.Clear] / [Supervisor.Close] take the lock normally.
//
// Concurrent updates are last-write-wins in apply order. A deferred update
// issued before a newer one may still land after it.
package presence

import (
	"log/slog"
	"sync"
	"time"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

const (
	// DefaultAttempts is how many times Initialize tries to connect.
	DefaultAttempts = 6
	// DefaultDelay is the fixed wait between failed attempts.
	DefaultDelay = 500 * time.Millisecond
)

// ///////////////////////////////////////////////
// Supervisor
// ///////////////////////////////////////////////

// Options configures a [Supervisor]. Zero values select the defaults.
type Options struct {
	// Factory creates clients. Defaults to [DiscordFactory].
	Factory Factory
	// Attempts bounds connection attempts per Initialize.
	Attempts int
	// Delay separates failed attempts.
	Delay time.Duration
	// Coalesce replaces one-goroutine-per-contended-update with a single
	// mailbox per connection that only keeps the newest payload. Superseded
	// payloads are never applied.
	Coalesce bool
	// Sleep waits between attempts. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Supervisor owns the process's presence connection slot.
type Supervisor struct {
	factory  Factory
	attempts int
	delay    time.Duration
	coalesce bool
	sleep    func(time.Duration)

	// slotMu guards current. It is only held long enough to read or swap
	// the pointer, never across a client call.
	slotMu  sync.Mutex
	current *Handle

	// background tracks detached work: deferred updates and retired
	// connections being closed.
	background sync.WaitGroup
}

// NewSupervisor returns a Supervisor with an empty slot.
func NewSupervisor(opts Options) *Supervisor {
	s := &Supervisor{
		factory:  opts.Factory,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		coalesce: opts.Coalesce,
		sleep:    opts.Sleep,
	}
	if s.factory == nil {
		s.factory = DiscordFactory
	}
	if s.attempts <= 0 {
		s.attempts = DefaultAttempts
	}
	if s.delay <= 0 {
		s.delay = DefaultDelay
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	return s
}

// Initialize connects a fresh client for appID, retrying with a fixed delay.
// On success the new handle replaces whatever the slot held; the replaced
// connection is closed in the background. On failure the slot is untouched
// and an [*EstablishmentError] is returned.
func (s *Supervisor) Initialize(appID string) error {
	var last error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		client := s.factory(appID)
		err := client.Connect()
		if err == nil {
			slog.Info("Discord IPC connected", "app_id", appID, "attempt", attempt, "max_attempts", s.attempts)
			s.store(newHandle(appID, client))
			return nil
		}
		last = err
		slog.Warn("Discord connect attempt failed", "app_id", appID, "attempt", attempt, "max_attempts", s.attempts, "error", err)
		if attempt < s.attempts {
			s.sleep(s.delay)
		}
	}
	return &EstablishmentError{Attempts: s.attempts, Last: last}
}

// store swaps h into the slot and retires the previous handle.
func (s *Supervisor) store(h *Handle) {
	s.slotMu.Lock()
	prev := s.current
	s.current = h
	s.slotMu.Unlock()

	if prev != nil {
		s.spawn(func() {
			if err := prev.close(); err != nil {
				slog.Warn("closing replaced Discord connection failed", "app_id", prev.appID, "error", err)
				return
			}
			slog.Debug("replaced Discord connection closed", "app_id", prev.appID)
		})
	}
}

// Current returns the live handle. It never waits on the connection lock.
func (s *Supervisor) Current() (*Handle, error) {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	if s.current == nil {
		return nil, ErrNotInitialized
	}
	return s.current, nil
}

// AppID returns the application ID of the live connection, or "".
func (s *Supervisor) AppID() string {
	h, err := s.Current()
	if err != nil {
		return ""
	}
	return h.appID
}

// Clear removes the displayed activity, waiting for any in-flight update.
func (s *Supervisor) Clear() error {
	h, err := s.Current()
	if err != nil {
		return err
	}
	return h.clear()
}

// Close empties the slot and then closes the removed connection. Lookups
// made after the slot is emptied see [ErrNotInitialized]. Closing an empty
// slot succeeds.
func (s *Supervisor) Close() error {
	s.slotMu.Lock()
	h := s.current
	s.current = nil
	s.slotMu.Unlock()

	if h == nil {
		return nil
	}
	if err := h.close(); err != nil {
		return err
	}
	slog.Info("Discord RPC client closed", "app_id", h.appID)
	return nil
}

// Wait blocks until all detached work has finished. It does not cancel
// anything.
func (s *Supervisor) Wait() {
	s.background.Wait()
}

func (s *Supervisor) spawn(fn func()) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		fn()
	}()
}
