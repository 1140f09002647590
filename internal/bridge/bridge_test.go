package bridge

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"go.klb.dev/tabclip/internal/message"
	"go.klb.dev/tabclip/internal/tabs"
	"go.klb.dev/tabclip/internal/wire"
)

// newPair wires a Peer to a fake extension end over a net.Pipe. The peer's
// read loop runs until the test finishes.
func newPair(t *testing.T, onCopy CopyHandler) (*Peer, *wire.Conn) {
	t.Helper()
	daemonEnd, extEnd := net.Pipe()
	p := NewPeer(wire.New(daemonEnd, nil), "firefox")
	ext := wire.New(extEnd, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Serve(ctx, onCopy)
	}()
	t.Cleanup(func() {
		cancel()
		_ = ext.Close()
		<-done
	})
	return p, ext
}

// serveExtension answers incoming requests the way the browser bridge would.
func serveExtension(ext *wire.Conn, answer func(*message.Message) *message.Message) {
	for {
		req, err := ext.Receive()
		if err != nil {
			return
		}
		if resp := answer(req); resp != nil {
			if err := ext.Send(resp); err != nil {
				return
			}
		}
	}
}

func TestQueryRoundTrip(t *testing.T) {
	p, ext := newPair(t, nil)
	go serveExtension(ext, func(req *message.Message) *message.Message {
		if req.Type != message.TypeQuery || req.Filter == nil {
			return req.Err(context.Canceled)
		}
		return &message.Message{
			Type: message.TypeTabs,
			ID:   req.ID,
			Tabs: []tabs.Tab{{ID: "1", WindowID: req.Filter.WindowID, Title: "Go"}},
		}
	})

	got, err := p.Query(context.Background(), tabs.Filter{WindowID: "7"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].WindowID != "7" {
		t.Fatalf("query = %+v", got)
	}
}

func TestQueryErrorResponse(t *testing.T) {
	p, ext := newPair(t, nil)
	go serveExtension(ext, func(req *message.Message) *message.Message {
		return &message.Message{Type: message.TypeError, ID: req.ID, Error: "tabs permission denied"}
	})

	_, err := p.Query(context.Background(), tabs.Filter{})
	if err == nil || !strings.Contains(err.Error(), "tabs permission denied") {
		t.Fatalf("err = %v, want bridge error", err)
	}
}

func TestExtractSelectionRoundTrip(t *testing.T) {
	p, ext := newPair(t, nil)
	go serveExtension(ext, func(req *message.Message) *message.Message {
		if req.Type != message.TypeExtract || req.Tab == nil {
			return nil
		}
		return &message.Message{Type: message.TypeSelection, ID: req.ID, Selection: "picked"}
	})

	sel, err := p.ExtractSelection(context.Background(), tabs.Tab{ID: "1"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if sel != "picked" {
		t.Fatalf("selection = %q", sel)
	}
}

func TestDisconnectFailsPendingRequest(t *testing.T) {
	p, ext := newPair(t, nil)
	go func() {
		// Swallow the request, then drop the connection instead of answering.
		_, _ = ext.Receive()
		_ = ext.Close()
	}()

	_, err := p.Query(context.Background(), tabs.Filter{})
	if err == nil || !strings.Contains(err.Error(), "disconnected") {
		t.Fatalf("err = %v, want disconnect error", err)
	}

	// Requests after shutdown must fail fast, not hang.
	if _, err := p.Query(context.Background(), tabs.Filter{}); err == nil {
		t.Fatal("query on dead peer succeeded")
	}
}

func TestQueryHonorsContextCancellation(t *testing.T) {
	p, ext := newPair(t, nil)
	go serveExtension(ext, func(*message.Message) *message.Message {
		return nil // never answer
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Query(ctx, tabs.Filter{})
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestCopyCommandDispatchedToHandler(t *testing.T) {
	got := make(chan *message.Message, 1)
	_, ext := newPair(t, func(_ context.Context, _ *Peer, msg *message.Message) {
		got <- msg
	})

	err := ext.Send(&message.Message{Type: message.TypeCopy, CallbackID: "cb-9"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case msg := <-got:
		if msg.CallbackID != "cb-9" {
			t.Fatalf("handler saw %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("copy handler never invoked")
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	_, ext := newPair(t, nil)

	if err := ext.Send(&message.Message{Type: message.TypePing, ID: "p1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	resp, err := ext.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if resp.Type != message.TypePong || resp.ID != "p1" {
		t.Fatalf("resp = %+v, want PONG p1", resp)
	}
}

func TestNotifyReachesExtension(t *testing.T) {
	p, ext := newPair(t, nil)

	go func() { _ = p.Notify("cb-2", 4) }()
	resp, err := ext.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if resp.Type != message.TypeNotify || resp.CallbackID != "cb-2" || resp.Copied != 4 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestRegistryPromotesSurvivorOnUnregister(t *testing.T) {
	r := NewRegistry()
	if r.Current() != nil {
		t.Fatal("empty registry has a current bridge")
	}

	a := &Peer{source: "firefox", pending: map[string]chan *message.Message{}, done: make(chan struct{})}
	b := &Peer{source: "chrome", pending: map[string]chan *message.Message{}, done: make(chan struct{})}

	r.Register(a)
	r.Register(b)
	if r.Current() != b {
		t.Fatal("most recent registration is not current")
	}
	if got := len(r.Infos()); got != 2 {
		t.Fatalf("infos = %d, want 2", got)
	}

	r.Unregister(b)
	if r.Current() != a {
		t.Fatal("survivor not promoted to current")
	}
	r.Unregister(a)
	if r.Current() != nil {
		t.Fatal("current not cleared after last unregister")
	}
}
