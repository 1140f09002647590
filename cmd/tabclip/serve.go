package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/tabclip/internal/bridge"
	"go.klb.dev/tabclip/internal/clip"
	"go.klb.dev/tabclip/internal/command"
	"go.klb.dev/tabclip/internal/copier"
	"go.klb.dev/tabclip/internal/crypto"
	"go.klb.dev/tabclip/internal/ipc"
	"go.klb.dev/tabclip/internal/message"
	"go.klb.dev/tabclip/internal/resolver"
	"go.klb.dev/tabclip/internal/surface"
	"go.klb.dev/tabclip/internal/wire"
)

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the copy daemon (browser bridge + system clipboard)",
		Long: `Starts the tabclip daemon. A browser bridge extension connects over the
local IPC socket (or the optional TCP listener) and stays connected; it
answers tab queries and receives copy notifications. Copy commands arrive
from the bridge itself or from "tabclip copy".

The clipboard write goes through a single shared surface: concurrent copies
share one clipboard session, created on first use and torn down when the
last one finishes.

Precedence (lowest → highest): defaults → config file → TABCLIP_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runServe(v) },
	}

	f := cmd.Flags()
	f.String("addr", "", "optional TCP listen address for remote bridges (empty = IPC only)")
	f.String("token", "", "shared secret for TCP bridges (empty = no auth, no encryption)")
	addFormatFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

// server holds the daemon's shared state: the bridge registry and the
// refcounted clipboard surface.
type server struct {
	registry *bridge.Registry
	manager  *surface.Manager
	session  *clip.Session
	defaults command.Defaults
	token    string
}

func runServe(v *viper.Viper) error {
	setupLogging(v)

	addr := v.GetString("addr")
	token := v.GetString("token")

	var key *[32]byte
	if token != "" {
		var err error
		key, err = crypto.DeriveKey(token)
		if err != nil {
			return fmt.Errorf("key derivation: %w", err)
		}
	}

	session := clip.NewSession()
	s := &server{
		registry: bridge.NewRegistry(),
		manager:  surface.New(session),
		session:  session,
		defaults: formatDefaults(v),
		token:    token,
	}

	slog.Info("tabclip daemon starting",
		"version", Version,
		"socket", ipc.SocketPath(),
		"tcp", addr,
		"encrypted", key != nil,
	)

	if addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		slog.Info("TCP listening", "addr", ln.Addr())
		go s.acceptLoop(ln, key)
	}

	ipcLn, err := ipc.Listen()
	if err != nil {
		return fmt.Errorf("IPC socket: %w", err)
	}
	slog.Info("IPC socket listening", "path", ipc.SocketPath())
	s.acceptLoop(ipcLn, nil)
	return nil
}

func (s *server) acceptLoop(ln net.Listener, key *[32]byte) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			slog.Error("accept failed", "err", err)
			return
		}
		go s.handleConn(conn, key)
	}
}

// handleConn dispatches on the first message: HELLO turns the connection
// into a long-lived bridge, everything else is a one-shot request.
func (s *server) handleConn(conn net.Conn, key *[32]byte) {
	wc := wire.New(conn, key)

	msg, err := wc.Receive()
	if err != nil {
		_ = wc.Close()
		return
	}

	// TCP bridges present the token explicitly; the encrypted framing
	// already rejects a wrong key, this catches a missing one.
	if key != nil && msg.Type == message.TypeAuth {
		if msg.Token != s.token {
			_ = wc.Send(msg.Err(fmt.Errorf("bad token")))
			_ = wc.Close()
			return
		}
		if msg, err = wc.Receive(); err != nil {
			_ = wc.Close()
			return
		}
	}

	switch msg.Type {
	case message.TypeHello:
		peer := bridge.NewPeer(wc, msg.Source)
		s.registry.Register(peer)
		peer.Serve(context.Background(), s.onBridgeCopy)
		s.registry.Unregister(peer)

	case message.TypeCopy:
		defer wc.Close()
		s.handleOneShot(wc, msg)

	case message.TypeStatus:
		defer wc.Close()
		_ = wc.Send(&message.Message{
			Type: message.TypeStatusResponse,
			ID:   msg.ID,
			Status: &message.Status{
				Version: Version,
				Surface: s.manager.Stats(),
				Bridges: s.registry.Infos(),
			},
		})

	case message.TypePing:
		defer wc.Close()
		_ = wc.Send(&message.Message{Type: message.TypePong, ID: msg.ID})

	default:
		defer wc.Close()
		_ = wc.Send(msg.Err(fmt.Errorf("unexpected %s", msg.Type)))
	}
}

// onBridgeCopy runs a copy command the browser itself initiated (keyboard
// shortcut, context menu). The command's callback notification flows back
// over the same bridge.
func (s *server) onBridgeCopy(ctx context.Context, peer *bridge.Peer, msg *message.Message) {
	if msg.Command == nil {
		_ = peer.Send(msg.Err(fmt.Errorf("COPY without command")))
		return
	}
	if _, err := s.copyVia(ctx, peer, msg.Command); err != nil {
		slog.Error("copy failed", "source", peer.Source(), "err", err)
		_ = peer.Send(msg.Err(err))
	}
}

// handleOneShot runs a copy forwarded from the CLI over IPC, resolving it
// against the current bridge.
func (s *server) handleOneShot(wc *wire.Conn, msg *message.Message) {
	if msg.Command == nil {
		_ = wc.Send(msg.Err(fmt.Errorf("COPY without command")))
		return
	}
	peer := s.registry.Current()
	if peer == nil {
		_ = wc.Send(msg.Err(fmt.Errorf("no browser bridge connected")))
		return
	}
	copied, err := s.copyVia(context.Background(), peer, msg.Command)
	if err != nil {
		_ = wc.Send(msg.Err(err))
		return
	}
	_ = wc.Send(&message.Message{Type: message.TypeNotify, ID: msg.ID, Copied: copied})
}

// copyVia assembles the pipeline for one command against one bridge. The
// bridge is tab source, extractor, and notification channel; the clipboard
// session is the shared surface.
func (s *server) copyVia(ctx context.Context, peer *bridge.Peer, cmd *command.Command) (int, error) {
	res := resolver.New(peer, peer, "")
	cp := copier.New(res, s.manager, s.session, peer, s.defaults)
	return cp.OnCopy(ctx, cmd)
}
