// Package tabs defines the tab descriptor and query filter shared by all
// tab sources (browser bridge, DevTools) and the target resolver.
package tabs

// Tab describes one browser tab as reported by a tab source. IDs are opaque
// strings: the bridge reports the browser's numeric tab/window ids as decimal
// strings, the DevTools source reports CDP target ids.
type Tab struct {
	ID          string `json:"id"`
	WindowID    string `json:"window_id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Pinned      bool   `json:"pinned"`
	Hidden      bool   `json:"hidden,omitempty"`
	Highlighted bool   `json:"highlighted"`
}

// SameTab reports whether two descriptors refer to the same tab.
func SameTab(a, b Tab) bool { return a.ID == b.ID && a.WindowID == b.WindowID }

// Filter is the query a resolver hands to a tab source. Pointer fields are
// tri-state: nil means "don't care". CurrentWindow has no client-side
// equivalent — only the source can interpret it.
type Filter struct {
	ID            string `json:"id,omitempty"`
	WindowID      string `json:"window_id,omitempty"`
	Pinned        *bool  `json:"pinned,omitempty"`
	Highlighted   *bool  `json:"highlighted,omitempty"`
	CurrentWindow bool   `json:"current_window,omitempty"`
}

// Match reports whether t satisfies every client-side checkable key of f.
// CurrentWindow is deliberately ignored (see Filter).
func (f Filter) Match(t Tab) bool {
	if f.ID != "" && t.ID != f.ID {
		return false
	}
	if f.WindowID != "" && t.WindowID != f.WindowID {
		return false
	}
	if f.Pinned != nil && t.Pinned != *f.Pinned {
		return false
	}
	if f.Highlighted != nil && t.Highlighted != *f.Highlighted {
		return false
	}
	return true
}

// Apply returns the ordered subset of in that matches f.
func (f Filter) Apply(in []Tab) []Tab {
	out := make([]Tab, 0, len(in))
	for _, t := range in {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Bool is a convenience for building tri-state filter fields.
func Bool(v bool) *bool { return &v }
