// Package copier ties the pipeline together: resolve targets, format the
// payload, write it through the shared surface, and notify the originating
// UI. One Copier serves a single mode (daemon or one-shot); the tab source
// and surface differ, the pipeline does not.
package copier

import (
	"context"
	"fmt"
	"log/slog"

	"go.klb.dev/tabclip/internal/command"
	"go.klb.dev/tabclip/internal/format"
	"go.klb.dev/tabclip/internal/resolver"
	"go.klb.dev/tabclip/internal/surface"
)

// Writer performs the privileged clipboard write. It is only called between
// a successful surface Acquire and the matching Release.
type Writer interface {
	WriteText(ctx context.Context, text string) error
}

// Notifier reports a finished copy back to the originating UI.
type Notifier interface {
	Notify(callbackID string, copied int) error
}

// Copier executes copy commands.
type Copier struct {
	resolver *resolver.Resolver
	surface  *surface.Manager
	writer   Writer
	notify   Notifier // nil = no notification path
	defaults command.Defaults
}

// New assembles a Copier. notify may be nil.
func New(r *resolver.Resolver, m *surface.Manager, w Writer, n Notifier, d command.Defaults) *Copier {
	return &Copier{resolver: r, surface: m, writer: w, notify: n, defaults: d}
}

// OnCopy runs the full pipeline for one command and returns the number of
// tabs copied. Notification failures are swallowed — the UI that asked may
// legitimately be gone by the time the copy finishes.
func (c *Copier) OnCopy(ctx context.Context, cmd *command.Command) (int, error) {
	cmd.ApplyDefaults(c.defaults)

	set, err := c.resolver.Resolve(ctx, cmd)
	if err != nil {
		return 0, err
	}

	text := format.Text(cmd, set)
	// An empty write does not clear a prior selection on every platform;
	// a single space does. Applied whenever the flag asks for it.
	if text == "" && cmd.Options.CopyIfEmpty {
		text = " "
	}

	if err := c.surface.Acquire(ctx); err != nil {
		return 0, fmt.Errorf("surface acquire: %w", err)
	}
	writeErr := c.writer.WriteText(ctx, text)
	releaseErr := c.surface.Release(ctx)
	if writeErr != nil {
		return 0, fmt.Errorf("clipboard write: %w", writeErr)
	}
	if releaseErr != nil {
		return 0, fmt.Errorf("surface release: %w", releaseErr)
	}

	slog.Info("copied", "tabs", len(set), "target", cmd.Target, "bytes", len(text))

	if cmd.CallbackID != "" && c.notify != nil {
		if err := c.notify.Notify(cmd.CallbackID, len(set)); err != nil {
			slog.Debug("completion notification dropped", "callback", cmd.CallbackID, "err", err)
		}
	}
	return len(set), nil
}
