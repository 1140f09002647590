package resolver

import (
	"go.klb.dev/tabclip/internal/command"
	"go.klb.dev/tabclip/internal/tabs"
)

// The correction stages below each encode one documented browser defect or
// special rule. They run in a fixed order after the source query and are
// deliberately standalone functions so each can be tested (and, should the
// upstream defect ever be fixed, retired) in isolation.

// narrowToOriginWindow keeps only tabs from the origin tab's window for
// window-scoped context-menu invocations. Some browsers apply the window
// filter unreliably when the query originates from a context menu; the
// origin tab's window id is the one authoritative value we hold. This single
// stage subsumes what were historically two separate fixes for the same
// class of defect.
func narrowToOriginWindow(cmd *command.Command, in []tabs.Tab) []tabs.Tab {
	origin := cmd.Invocation.OriginTab
	if !cmd.Invocation.FromContextMenu || origin == nil {
		return in
	}
	if cmd.Target != command.TargetWindow && !cmd.Invocation.WindowScoped {
		return in
	}
	out := make([]tabs.Tab, 0, len(in))
	for _, t := range in {
		if t.WindowID == origin.WindowID {
			out = append(out, t)
		}
	}
	return out
}

// contextMenuSoleTarget handles a context-menu invocation on a tab that is
// not part of the highlighted set: that tab alone is the target, never the
// highlighted tabs the query returned.
func contextMenuSoleTarget(cmd *command.Command, in []tabs.Tab) []tabs.Tab {
	origin := cmd.Invocation.OriginTab
	if !cmd.Invocation.FromContextMenu || origin == nil || cmd.Target != command.TargetTab {
		return in
	}
	for _, t := range in {
		if tabs.SameTab(t, *origin) {
			return in
		}
	}
	return []tabs.Tab{*origin}
}

// dropHidden removes hidden tabs when the command excludes them. Sources on
// platforms without a hidden-tab concept never set Hidden, making this a
// no-op there.
func dropHidden(cmd *command.Command, in []tabs.Tab) []tabs.Tab {
	if !cmd.Options.ExcludeHidden {
		return in
	}
	out := make([]tabs.Tab, 0, len(in))
	for _, t := range in {
		if !t.Hidden {
			out = append(out, t)
		}
	}
	return out
}

// fallbackToOrigin substitutes the origin tab when filtering emptied the set
// and the command asked to copy something rather than nothing.
func fallbackToOrigin(cmd *command.Command, in []tabs.Tab) []tabs.Tab {
	if len(in) > 0 || !cmd.Options.CopyIfNoTabs {
		return in
	}
	if origin := cmd.Invocation.OriginTab; origin != nil {
		return []tabs.Tab{*origin}
	}
	return in
}

// refilterUnfiltered re-applies the intended filter keys client-side for
// sources that return every tab regardless of the query, and drops the
// surface control page so the copier never copies its own machinery.
func refilterUnfiltered(f tabs.Filter, controlURL string, in []tabs.Tab) []tabs.Tab {
	out := make([]tabs.Tab, 0, len(in))
	for _, t := range f.Apply(in) {
		if controlURL != "" && t.URL == controlURL {
			continue
		}
		out = append(out, t)
	}
	return out
}
