// Package devtools is the one-shot tab source and surface host, talking to
// a browser's DevTools (CDP) endpoint via chromedp. It serves `tabclip copy`
// when no daemon/bridge is available.
//
// CDP has no server-side tab query, so Browser implements
// resolver.UnfilteredSource and returns every page target; the resolver
// re-filters client-side. CDP also exposes no pinned-tab or hidden-tab
// state: Pinned and Hidden are always false here. Highlighted is derived
// from each page's visibility — the selected tab of a window is the visible
// one.
package devtools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"go.klb.dev/tabclip/internal/tabs"
)

// DefaultControlURL is the page the Surface creates for clipboard writes.
// The resolver excludes it from every candidate set.
const DefaultControlURL = "about:blank#tabclip-surface"

// Browser is a connection to one browser's DevTools endpoint.
type Browser struct {
	ctx         context.Context // browser-scoped chromedp context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	controlURL  string
}

// Connect dials the DevTools websocket endpoint (e.g.
// ws://127.0.0.1:9222/devtools/browser/...) and verifies the connection.
func Connect(ctx context.Context, wsURL, controlURL string) (*Browser, error) {
	if controlURL == "" {
		controlURL = DefaultControlURL
	}
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, wsURL)
	bctx, cancelCtx := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(bctx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("devtools connect %s: %w", wsURL, err)
	}
	return &Browser{
		ctx:         bctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		controlURL:  controlURL,
	}, nil
}

// ControlURL returns the surface page URL this connection uses.
func (b *Browser) ControlURL() string { return b.controlURL }

// Disconnect tears down the DevTools connection. It does not close any tabs.
func (b *Browser) Disconnect() {
	b.cancelCtx()
	b.cancelAlloc()
}

// Unfiltered marks the source as unable to filter server-side (see package
// comment).
func (b *Browser) Unfiltered() {}

// Query implements resolver.TabSource. The filter is ignored apart from its
// role as documentation of intent — re-filtering happens in the resolver.
func (b *Browser) Query(ctx context.Context, _ tabs.Filter) ([]tabs.Tab, error) {
	infos, err := chromedp.Targets(b.ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	var out []tabs.Tab
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		t := tabs.Tab{
			ID:    string(info.TargetID),
			Title: info.Title,
			URL:   info.URL,
		}
		if wid, err := b.windowOf(info.TargetID); err == nil {
			t.WindowID = wid
		} else {
			slog.Warn("window lookup failed", "target", info.TargetID, "err", err)
		}
		if info.URL != b.controlURL {
			t.Highlighted = b.isVisible(info.TargetID)
		}
		out = append(out, t)
	}
	return out, nil
}

// windowOf resolves the browser window containing a target.
func (b *Browser) windowOf(id target.ID) (string, error) {
	var wid browser.WindowID
	err := chromedp.Run(b.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		w, _, err := browser.GetWindowForTarget().WithTargetID(id).Do(ctx)
		wid = w
		return err
	}))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(int64(wid), 10), nil
}

// isVisible evaluates the page's visibility state; the selected tab of each
// window reports "visible".
func (b *Browser) isVisible(id target.ID) bool {
	tctx, cancel := chromedp.NewContext(b.ctx, chromedp.WithTargetID(id))
	defer cancel()
	var state string
	if err := chromedp.Run(tctx, chromedp.Evaluate(`document.visibilityState`, &state)); err != nil {
		slog.Debug("visibility probe failed", "target", id, "err", err)
		return false
	}
	return state == "visible"
}

// ExtractSelection implements resolver.Extractor via Runtime.evaluate in the
// target page.
func (b *Browser) ExtractSelection(_ context.Context, t tabs.Tab) (string, error) {
	tctx, cancel := chromedp.NewContext(b.ctx, chromedp.WithTargetID(target.ID(t.ID)))
	defer cancel()
	var sel string
	if err := chromedp.Run(tctx, chromedp.Evaluate(`String(window.getSelection())`, &sel)); err != nil {
		return "", fmt.Errorf("extract selection: %w", err)
	}
	return sel, nil
}

// Surface is the browser-resident shared surface: a dedicated control page
// in which clipboard writes execute. Implements surface.Host plus the
// copier's text writer.
type Surface struct {
	b *Browser

	mu sync.Mutex
	id target.ID
}

// NewSurface returns the surface host for b.
func NewSurface(b *Browser) *Surface { return &Surface{b: b} }

// Exists probes the target list for a live control page, adopting one left
// behind by a crashed run rather than creating a second.
func (s *Surface) Exists(_ context.Context) (bool, error) {
	infos, err := chromedp.Targets(s.b.ctx)
	if err != nil {
		return false, fmt.Errorf("surface probe: %w", err)
	}
	for _, info := range infos {
		if info.URL == s.b.controlURL {
			s.mu.Lock()
			s.id = info.TargetID
			s.mu.Unlock()
			return true, nil
		}
	}
	return false, nil
}

// Create opens the control page.
func (s *Surface) Create(_ context.Context) error {
	var id target.ID
	err := chromedp.Run(s.b.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		id, err = target.CreateTarget(s.b.controlURL).Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("create surface page: %w", err)
	}
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
	return nil
}

// Close closes the control page.
func (s *Surface) Close(_ context.Context) error {
	s.mu.Lock()
	id := s.id
	s.id = ""
	s.mu.Unlock()
	if id == "" {
		return nil
	}
	err := chromedp.Run(s.b.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.CloseTarget(id).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("close surface page: %w", err)
	}
	return nil
}

// WriteText performs the clipboard write inside the control page using the
// textarea + execCommand trick, which works without a user gesture or
// clipboard permission in a DevTools-driven page.
func (s *Surface) WriteText(_ context.Context, text string) error {
	s.mu.Lock()
	id := s.id
	s.mu.Unlock()
	if id == "" {
		return fmt.Errorf("surface page not open")
	}

	quoted, err := json.Marshal(text)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	script := fmt.Sprintf(`(() => {
	const ta = document.createElement('textarea');
	ta.value = %s;
	document.body.appendChild(ta);
	ta.select();
	const ok = document.execCommand('copy');
	ta.remove();
	return ok;
})()`, quoted)

	tctx, cancel := chromedp.NewContext(s.b.ctx, chromedp.WithTargetID(id))
	defer cancel()
	var ok bool
	if err := chromedp.Run(tctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	if !ok {
		return fmt.Errorf("clipboard write rejected by page")
	}
	return nil
}
