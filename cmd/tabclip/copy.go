package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/tabclip/internal/command"
	"go.klb.dev/tabclip/internal/copier"
	"go.klb.dev/tabclip/internal/devtools"
	"go.klb.dev/tabclip/internal/ipc"
	"go.klb.dev/tabclip/internal/message"
	"go.klb.dev/tabclip/internal/resolver"
	"go.klb.dev/tabclip/internal/surface"
	"go.klb.dev/tabclip/internal/wire"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy tab titles and URLs to the clipboard",
		Long: `Resolves the targeted tabs and copies their titles and URLs.

If a tabclip daemon is running, the command is forwarded to it over the IPC
socket and resolved against the connected browser bridge. Otherwise it
connects directly to a browser's DevTools endpoint (--ws) and performs the
copy through a control page in the browser.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runCopy(cmd, v) },
	}

	f := cmd.Flags()
	f.String("target", "tab", "scope: tab|window|all")
	f.Bool("exclude-pinned", false, "skip pinned tabs")
	f.Bool("exclude-hidden", false, "skip hidden tabs (platforms that hide tabs)")
	f.Bool("copy-if-empty", false, "copy a single space instead of an empty payload")
	f.Bool("copy-if-no-tabs", false, "fall back to the current tab when filters match nothing")
	f.Bool("extract", false, "include the page selection (${selection} in custom templates)")
	f.String("ws", "ws://127.0.0.1:9222", "DevTools websocket endpoint (used if no daemon)")
	addFormatFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runCopy(cobraCmd *cobra.Command, v *viper.Viper) error {
	c := &command.Command{
		Target: command.ParseTarget(v.GetString("target")),
		Options: command.Options{
			ExcludePinned:    v.GetBool("exclude-pinned"),
			ExcludeHidden:    v.GetBool("exclude-hidden"),
			CopyIfEmpty:      v.GetBool("copy-if-empty"),
			CopyIfNoTabs:     v.GetBool("copy-if-no-tabs"),
			ScriptingExtract: v.GetBool("extract"),
		},
	}

	// A running daemon has the bridge and the clipboard session; prefer it
	// unless the caller pointed at a specific browser.
	if !cobraCmd.Flags().Changed("ws") && ipc.IsRunning() {
		return copyViaDaemon(c)
	}
	return copyViaDevTools(v, c)
}

// copyViaDaemon forwards the command over the IPC socket.
func copyViaDaemon(c *command.Command) error {
	conn, err := ipc.Dial()
	if err != nil {
		return fmt.Errorf("ipc dial: %w", err)
	}
	wc := wire.New(conn, nil)
	defer wc.Close()

	req := &message.Message{Type: message.TypeCopy, ID: message.NewID(), Command: c}
	if err := wc.Send(req); err != nil {
		return fmt.Errorf("ipc send: %w", err)
	}
	resp, err := wc.Receive()
	if err != nil {
		return fmt.Errorf("ipc receive: %w", err)
	}
	if resp.Type == message.TypeError {
		return fmt.Errorf("daemon: %s", resp.Error)
	}
	return nil
}

// copyViaDevTools runs the whole pipeline locally against a DevTools
// endpoint, using a browser control page as the shared surface.
func copyViaDevTools(v *viper.Viper, c *command.Command) error {
	ctx := context.Background()
	b, err := devtools.Connect(ctx, v.GetString("ws"), "")
	if err != nil {
		return err
	}
	defer b.Disconnect()

	surf := devtools.NewSurface(b)
	res := resolver.New(b, b, b.ControlURL())
	cp := copier.New(res, surface.New(surf), surf, nil, formatDefaults(v))
	_, err = cp.OnCopy(ctx, c)
	return err
}
