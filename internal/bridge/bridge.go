// Package bridge manages connections from browser bridges — the
// extension-side native-messaging proxies that answer tab queries, run
// selection extraction, and receive copy notifications.
//
// A Peer owns one connection. Requests the daemon sends (QUERY, EXTRACT)
// carry a correlation id; the read loop routes the matching response back to
// the waiting caller, so any number of exchanges can be in flight at once.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/tabclip/internal/message"
	"go.klb.dev/tabclip/internal/tabs"
	"go.klb.dev/tabclip/internal/wire"
)

// CopyHandler is invoked for each COPY command the bridge forwards from the
// browser (keyboard shortcut, context menu). It runs on its own goroutine.
type CopyHandler func(ctx context.Context, peer *Peer, msg *message.Message)

// Peer is one connected browser bridge.
type Peer struct {
	wc          *wire.Conn
	source      string
	addr        string
	connectedAt time.Time

	mu      sync.Mutex
	pending map[string]chan *message.Message
	closed  bool
	done    chan struct{}
}

// NewPeer wraps an accepted connection whose HELLO has already been read.
func NewPeer(wc *wire.Conn, source string) *Peer {
	addr := "local"
	if a := wc.RemoteAddr(); a != nil {
		addr = a.String()
	}
	return &Peer{
		wc:          wc,
		source:      source,
		addr:        addr,
		connectedAt: time.Now(),
		pending:     make(map[string]chan *message.Message),
		done:        make(chan struct{}),
	}
}

// Source returns the bridge's self-reported identifier.
func (p *Peer) Source() string { return p.source }

// Info returns metadata for status output.
func (p *Peer) Info() message.BridgeInfo {
	return message.BridgeInfo{
		Source:      p.source,
		Addr:        p.addr,
		ConnectedAt: p.connectedAt.UTC().Format(time.RFC3339),
	}
}

// Send writes a message to the bridge outside the request/response flow
// (error replies, unsolicited events).
func (p *Peer) Send(m *message.Message) error { return p.wc.Send(m) }

// Serve runs the read loop until the connection drops. Responses are routed
// to their waiting request; COPY commands go to onCopy.
func (p *Peer) Serve(ctx context.Context, onCopy CopyHandler) {
	defer p.shutdown()
	for {
		msg, err := p.wc.Receive()
		if err != nil {
			slog.Debug("bridge connection closed", "source", p.source, "err", err)
			return
		}
		switch msg.Type {
		case message.TypeTabs, message.TypeSelection, message.TypeError:
			p.deliver(msg)
		case message.TypeCopy:
			if onCopy != nil {
				go onCopy(ctx, p, msg)
			}
		case message.TypePing:
			_ = p.wc.Send(&message.Message{Type: message.TypePong, ID: msg.ID})
		default:
			slog.Warn("unexpected bridge message", "source", p.source, "type", msg.Type)
		}
	}
}

// shutdown fails every in-flight request and marks the peer dead.
func (p *Peer) shutdown() {
	p.mu.Lock()
	p.closed = true
	close(p.done)
	p.pending = make(map[string]chan *message.Message)
	p.mu.Unlock()
	_ = p.wc.Close()
}

// deliver hands a response to the request waiting on its id.
func (p *Peer) deliver(msg *message.Message) {
	p.mu.Lock()
	ch, ok := p.pending[msg.ID]
	delete(p.pending, msg.ID)
	p.mu.Unlock()
	if ok {
		ch <- msg
	} else {
		slog.Debug("unmatched bridge response", "type", msg.Type, "id", msg.ID)
	}
}

// roundTrip sends req and waits for the correlated response.
func (p *Peer) roundTrip(ctx context.Context, req *message.Message) (*message.Message, error) {
	req.ID = message.NewID()
	ch := make(chan *message.Message, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("bridge %s disconnected", p.source)
	}
	p.pending[req.ID] = ch
	p.mu.Unlock()

	if err := p.wc.Send(req); err != nil {
		p.mu.Lock()
		delete(p.pending, req.ID)
		p.mu.Unlock()
		return nil, fmt.Errorf("bridge send: %w", err)
	}

	select {
	case resp := <-ch:
		if resp.Type == message.TypeError {
			return nil, fmt.Errorf("bridge: %s", resp.Error)
		}
		return resp, nil
	case <-p.done:
		return nil, fmt.Errorf("bridge %s disconnected", p.source)
	case <-ctx.Done():
		p.mu.Lock()
		delete(p.pending, req.ID)
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Query implements resolver.TabSource over the bridge. The extension applies
// the filter with the browser's own tab query API.
func (p *Peer) Query(ctx context.Context, f tabs.Filter) ([]tabs.Tab, error) {
	resp, err := p.roundTrip(ctx, &message.Message{Type: message.TypeQuery, Filter: &f})
	if err != nil {
		return nil, err
	}
	return resp.Tabs, nil
}

// ExtractSelection implements resolver.Extractor over the bridge.
func (p *Peer) ExtractSelection(ctx context.Context, t tabs.Tab) (string, error) {
	resp, err := p.roundTrip(ctx, &message.Message{Type: message.TypeExtract, Tab: &t})
	if err != nil {
		return "", err
	}
	return resp.Selection, nil
}

// Notify reports a finished copy back to the originating UI. The UI may
// already be gone; the caller is expected to swallow the error.
func (p *Peer) Notify(callbackID string, copied int) error {
	return p.wc.Send(&message.Message{
		Type:       message.TypeNotify,
		CallbackID: callbackID,
		Copied:     copied,
	})
}

// Registry tracks the connected bridges. Copy commands are resolved against
// the most recently registered bridge, which covers the common single-browser
// case while keeping multiple browsers visible in status output.
type Registry struct {
	mu      sync.RWMutex
	peers   []*Peer
	current *Peer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds a bridge and makes it current.
func (r *Registry) Register(p *Peer) {
	r.mu.Lock()
	r.peers = append(r.peers, p)
	r.current = p
	total := len(r.peers)
	r.mu.Unlock()
	slog.Info("bridge registered", "source", p.source, "addr", p.addr, "total", total)
}

// Unregister removes a bridge, promoting the most recent survivor to current.
func (r *Registry) Unregister(p *Peer) {
	r.mu.Lock()
	for i, q := range r.peers {
		if q == p {
			r.peers = append(r.peers[:i], r.peers[i+1:]...)
			break
		}
	}
	if r.current == p {
		r.current = nil
		if n := len(r.peers); n > 0 {
			r.current = r.peers[n-1]
		}
	}
	total := len(r.peers)
	r.mu.Unlock()
	slog.Info("bridge unregistered", "source", p.source, "total", total)
}

// Current returns the bridge copy commands should use, or nil.
func (r *Registry) Current() *Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Infos returns metadata for every connected bridge.
func (r *Registry) Infos() []message.BridgeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]message.BridgeInfo, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p.Info())
	}
	return out
}
