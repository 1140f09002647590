// Package surface manages the lifecycle of the single shared write surface.
//
// The host platform allows at most one surface to exist at a time, while
// many copy operations may need it concurrently. Manager keeps a reference
// count of in-flight holders and guarantees that creation and teardown are
// each serialized: no two creates ever run at once, no close ever races a
// create, and an acquirer arriving mid-close waits the close out before
// re-probing. The surface is torn down only when the last holder releases.
package surface

import (
	"context"
	"log/slog"
	"sync"
)

// Host supplies the platform primitives for the shared surface. Exists must
// be an idempotent probe: a surface orphaned by an earlier crash is detected
// and reused, never duplicated.
type Host interface {
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context) error
	Close(ctx context.Context) error
}

// inflight represents one creation or teardown currently executing. Other
// callers wait on done instead of starting a duplicate; err carries the
// operation's outcome to every waiter.
type inflight struct {
	done chan struct{}
	err  error
}

func newInflight() *inflight { return &inflight{done: make(chan struct{})} }

// finish publishes the outcome and releases all waiters.
func (op *inflight) finish(err error) {
	op.err = err
	close(op.done)
}

// wait blocks until the operation completes or ctx is cancelled.
func (op *inflight) wait(ctx context.Context) error {
	select {
	case <-op.done:
		return op.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Manager is the reference-counted owner of the shared surface. The zero
// value is not usable; construct with New.
type Manager struct {
	host Host

	mu       sync.Mutex
	using    int
	creating *inflight
	closing  *inflight
}

// New returns a Manager with no holders and no surface assumed.
func New(host Host) *Manager {
	return &Manager{host: host}
}

// Acquire registers the caller as a holder of the shared surface, creating
// it if needed. Multiple concurrent acquirers share one surface and at most
// one creation request reaches the host. If a teardown is in flight the
// acquirer waits for it to finish and then re-probes.
//
// On error the caller holds nothing: the reference is rolled back and
// Release must not be called for this Acquire.
func (m *Manager) Acquire(ctx context.Context) error {
	m.mu.Lock()
	m.using++

	// A surface mid-teardown must never be observed half-closed. Our
	// reference is already counted, so no new teardown can start behind us.
	for m.closing != nil {
		op := m.closing
		m.mu.Unlock()
		if err := op.wait(ctx); err != nil && ctx.Err() != nil {
			m.rollback()
			return err
		}
		// A failed close is the closer's problem; re-probe regardless.
		m.mu.Lock()
	}

	if op := m.creating; op != nil {
		m.mu.Unlock()
		if err := op.wait(ctx); err != nil {
			m.rollback()
			return err
		}
		return nil
	}

	// Become the creator. The marker covers the existence probe as well so
	// concurrent acquirers cannot double-probe and double-create.
	op := newInflight()
	m.creating = op
	m.mu.Unlock()

	err := m.ensure(ctx)
	op.finish(err)

	m.mu.Lock()
	m.creating = nil
	if err != nil {
		m.using--
	}
	m.mu.Unlock()
	return err
}

// ensure probes for an existing surface and creates one if absent.
func (m *Manager) ensure(ctx context.Context) error {
	exists, err := m.host.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		slog.Debug("surface already present, reusing")
		return nil
	}
	slog.Debug("creating surface")
	return m.host.Create(ctx)
}

// Release drops one reference. When the last reference goes the surface is
// torn down; the count is clamped at zero so an unbalanced Release can never
// drive it negative. The teardown error, if any, is returned to the caller
// that triggered it.
func (m *Manager) Release(ctx context.Context) error {
	m.mu.Lock()
	m.using--
	if m.using < 0 {
		m.using = 0
	}
	if m.using > 0 || m.closing != nil {
		m.mu.Unlock()
		return nil
	}
	op := newInflight()
	m.closing = op
	m.mu.Unlock()

	slog.Debug("closing surface")
	err := m.host.Close(ctx)
	op.finish(err)

	m.mu.Lock()
	m.closing = nil
	m.mu.Unlock()
	return err
}

// rollback undoes the reference taken by a failed Acquire.
func (m *Manager) rollback() {
	m.mu.Lock()
	m.using--
	if m.using < 0 {
		m.using = 0
	}
	m.mu.Unlock()
}

// Stats is a point-in-time snapshot for status reporting.
type Stats struct {
	Holders  int  `json:"holders"`
	Creating bool `json:"creating"`
	Closing  bool `json:"closing"`
}

// Stats returns the current holder count and in-flight operations.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Holders:  m.using,
		Creating: m.creating != nil,
		Closing:  m.closing != nil,
	}
}
