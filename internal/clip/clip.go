// Package clip is the daemon-mode shared surface: a session against the
// system clipboard backed by golang.design/x/clipboard.
//
// The library binds to the display/session once per process and exposes no
// teardown, so the underlying binding outlives Close; the Session only
// tracks whether tabclip currently claims it. That is exactly the orphan
// case the surface manager tolerates — a later Exists probe finds the
// binding usable and reuses it instead of initialising twice.
package clip

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/clipboard"
)

// Session implements surface.Host and the copier's text writer against the
// local system clipboard.
type Session struct {
	mu   sync.Mutex
	open bool
	init bool // process-wide library init already done
}

// NewSession returns an unclaimed clipboard session.
func NewSession() *Session { return &Session{} }

// Exists reports whether the session is currently claimed.
func (s *Session) Exists(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open, nil
}

// Create claims the clipboard, initialising the library binding on first
// use. Fails when no clipboard is reachable (headless hosts, missing X11).
func (s *Session) Create(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.init {
		if err := clipboard.Init(); err != nil {
			return fmt.Errorf("clipboard unavailable: %w", err)
		}
		s.init = true
	}
	s.open = true
	return nil
}

// Close releases the claim. The library binding itself stays up (see the
// package comment).
func (s *Session) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// WriteText places text on the system clipboard. The session must be open.
func (s *Session) WriteText(_ context.Context, text string) error {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()
	if !open {
		return fmt.Errorf("clipboard session not open")
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	slog.Debug("clipboard written", "bytes", len(text))
	return nil
}
