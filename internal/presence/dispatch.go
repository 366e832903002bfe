package presence

import (
	"errors"
	"log/slog"
)

// ///////////////////////////////////////////////
// Update Dispatch
// ///////////////////////////////////////////////

// Update pushes p to the live connection without waiting on its lock.
//
// If the lock is free the activity is applied synchronously and the apply
// result is returned. If another operation holds it, p is handed to
// background work that applies it once the lock frees, and Update returns
// nil at once; a later failure there is only logged. A corrupted connection
// returns [ErrLockCorrupted], and one closed after the lookup returns
// [ErrHandleClosed].
func (s *Supervisor) Update(p Payload) error {
	h, err := s.Current()
	if err != nil {
		return err
	}
	return s.dispatch(h, p)
}

func (s *Supervisor) dispatch(h *Handle, p Payload) error {
	if h.corrupted.Load() {
		return ErrLockCorrupted
	}

	if h.mu.TryLock() {
		defer h.mu.Unlock()
		return h.apply(p)
	}

	slog.Debug("presence connection busy, deferring update", "app_id", h.appID, "coalesce", s.coalesce)
	if s.coalesce {
		s.offer(h, p)
		return nil
	}
	s.spawn(func() {
		h.mu.Lock()
		err := h.apply(p)
		h.mu.Unlock()
		logDeferred(h, err)
	})
	return nil
}

// offer puts p in h's mailbox, replacing any payload still waiting there,
// and starts a drain goroutine if none is running.
func (s *Supervisor) offer(h *Handle, p Payload) {
	h.pendingMu.Lock()
	if h.pending != nil {
		slog.Debug("superseding pending presence update", "app_id", h.appID)
	}
	h.pending = &p
	if h.draining {
		h.pendingMu.Unlock()
		return
	}
	h.draining = true
	h.pendingMu.Unlock()

	s.spawn(func() { s.drain(h) })
}

// drain applies the newest mailbox payload until the mailbox is empty. The
// payload is taken only after the connection lock is acquired so that
// everything offered while waiting collapses into one apply.
func (s *Supervisor) drain(h *Handle) {
	for {
		h.mu.Lock()
		h.pendingMu.Lock()
		p := h.pending
		h.pending = nil
		if p == nil {
			h.draining = false
			h.pendingMu.Unlock()
			h.mu.Unlock()
			return
		}
		h.pendingMu.Unlock()

		err := h.apply(*p)
		h.mu.Unlock()
		logDeferred(h, err)
	}
}

func logDeferred(h *Handle, err error) {
	switch {
	case err == nil:
		slog.Debug("deferred presence update applied", "app_id", h.appID)
	case errors.Is(err, ErrHandleClosed):
		slog.Debug("deferred presence update dropped, connection replaced", "app_id", h.appID)
	case errors.Is(err, ErrLockCorrupted):
		slog.Error("deferred presence update skipped, connection corrupted", "app_id", h.appID, "error", err)
	default:
		slog.Warn("deferred presence update failed", "app_id", h.appID, "error", err)
	}
}
