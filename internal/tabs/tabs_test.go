package tabs

import "testing"

func TestFilterMatch(t *testing.T) {
	tab := Tab{ID: "3", WindowID: "1", Pinned: true, Highlighted: true}

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty matches everything", Filter{}, true},
		{"id match", Filter{ID: "3"}, true},
		{"id mismatch", Filter{ID: "4"}, false},
		{"window match", Filter{WindowID: "1"}, true},
		{"window mismatch", Filter{WindowID: "2"}, false},
		{"pinned true", Filter{Pinned: Bool(true)}, true},
		{"pinned false", Filter{Pinned: Bool(false)}, false},
		{"highlighted", Filter{Highlighted: Bool(true)}, true},
		{"current window ignored client-side", Filter{CurrentWindow: true}, true},
		{"combined", Filter{ID: "3", WindowID: "1", Pinned: Bool(true)}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Match(tab); got != tc.want {
				t.Fatalf("Match = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilterApplyPreservesOrder(t *testing.T) {
	in := []Tab{
		{ID: "1", Pinned: true},
		{ID: "2"},
		{ID: "3"},
	}
	got := Filter{Pinned: Bool(false)}.Apply(in)
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
		t.Fatalf("Apply = %+v, want tabs 2,3 in order", got)
	}
}

func TestSameTab(t *testing.T) {
	a := Tab{ID: "1", WindowID: "2", Title: "x"}
	b := Tab{ID: "1", WindowID: "2", Title: "y"}
	if !SameTab(a, b) {
		t.Error("same id+window should match regardless of other fields")
	}
	if SameTab(a, Tab{ID: "1", WindowID: "3"}) {
		t.Error("different window must not match")
	}
}
