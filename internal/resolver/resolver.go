// Package resolver turns a copy command into the ordered set of tabs whose
// content will be copied. Resolution is stateless: every call queries the
// tab source fresh, applies the scope rules, and then runs a fixed cascade
// of correction stages (see stages.go) that defend against documented
// browser quirks.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"go.klb.dev/tabclip/internal/command"
	"go.klb.dev/tabclip/internal/tabs"
)

// TabSource answers tab queries. Implemented by the browser bridge and the
// DevTools host.
type TabSource interface {
	Query(ctx context.Context, f tabs.Filter) ([]tabs.Tab, error)
}

// UnfilteredSource is an optional interface a TabSource implements to signal
// that it cannot (or cannot be trusted to) apply the filter server-side and
// returns every tab instead. The resolver then re-applies each intended
// filter key client-side — except CurrentWindow, which has no client-side
// equivalent — and additionally drops the surface control page.
type UnfilteredSource interface {
	TabSource
	Unfiltered()
}

// Extractor pulls the current text selection out of a page. Implemented by
// the bridge (content script) and the DevTools host (Runtime.evaluate).
type Extractor interface {
	ExtractSelection(ctx context.Context, t tabs.Tab) (string, error)
}

// Resolver resolves copy commands against one tab source.
type Resolver struct {
	src        TabSource
	extract    Extractor // nil disables scripted extraction
	controlURL string    // the surface page URL, never a copy target
}

// New returns a Resolver. controlURL may be empty when the surface does not
// live in the browser (daemon mode).
func New(src TabSource, extract Extractor, controlURL string) *Resolver {
	return &Resolver{src: src, extract: extract, controlURL: controlURL}
}

// Resolve produces the final tab set for cmd and attaches the derived
// SelectionText to it. The command's formatting defaults must already be
// applied.
func (r *Resolver) Resolve(ctx context.Context, cmd *command.Command) ([]tabs.Tab, error) {
	cmd.Target = command.ParseTarget(string(cmd.Target))
	filter := buildFilter(cmd)

	set, err := r.src.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("tab query: %w", err)
	}

	if _, ok := r.src.(UnfilteredSource); ok {
		set = refilterUnfiltered(filter, r.controlURL, set)
	}

	before := len(set)
	set = narrowToOriginWindow(cmd, set)
	set = contextMenuSoleTarget(cmd, set)
	set = dropHidden(cmd, set)
	set = fallbackToOrigin(cmd, set)

	slog.Debug("targets resolved",
		"target", cmd.Target,
		"queried", before,
		"resolved", len(set),
		"context_menu", cmd.Invocation.FromContextMenu,
	)

	if err := r.deriveSelection(ctx, cmd, set); err != nil {
		return nil, err
	}
	return set, nil
}

// buildFilter constructs the source query for cmd's scope and options.
func buildFilter(cmd *command.Command) tabs.Filter {
	var f tabs.Filter
	origin := cmd.Invocation.OriginTab

	switch {
	case origin != nil && cmd.Target == command.TargetWindow:
		f.WindowID = origin.WindowID
	case origin != nil && cmd.Target == command.TargetTab:
		f.WindowID = origin.WindowID
		f.ID = origin.ID
	case cmd.Target == command.TargetTab:
		f.CurrentWindow = true
		f.Highlighted = tabs.Bool(true)
	case cmd.Target == command.TargetWindow:
		f.CurrentWindow = true
	}
	// TargetAll: no constraints.

	if cmd.Options.ExcludePinned {
		f.Pinned = tabs.Bool(false)
	}
	// A context-menu window id is authoritative; "current window" would be
	// whichever window happens to be focused, which may differ.
	if cmd.Invocation.WindowScoped && cmd.Invocation.FromContextMenu {
		f.CurrentWindow = false
	}
	return f
}

// deriveSelection runs scripted extraction when the command asks for it and
// the resolved set is exactly the origin tab, then derives SelectionText.
func (r *Resolver) deriveSelection(ctx context.Context, cmd *command.Command, set []tabs.Tab) error {
	var extracted string
	origin := cmd.Invocation.OriginTab
	if cmd.Options.ScriptingExtract && r.extract != nil &&
		cmd.Target == command.TargetTab &&
		len(set) == 1 && origin != nil && tabs.SameTab(set[0], *origin) {
		sel, err := r.extract.ExtractSelection(ctx, set[0])
		if err != nil {
			return fmt.Errorf("selection extraction: %w", err)
		}
		extracted = sel
	}

	switch {
	case cmd.NativeSelection != "":
		cmd.SelectionText = cmd.NativeSelection
	case extracted != "":
		cmd.SelectionText = extracted
	default:
		cmd.SelectionText = ""
	}
	return nil
}
