// tabclip: copy browser tab titles and URLs to the clipboard.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/tabclip/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "tabclip",
		Short: "Copy browser tab titles and URLs to the clipboard",
		Long: `tabclip resolves which browser tabs a copy command targets — current tab,
window, or all tabs, with pinned/hidden exclusions — formats their titles and
URLs, and writes the result to the clipboard through a single shared surface.

Run "tabclip serve" to accept commands from a browser bridge extension over
the local IPC socket (optionally over token-encrypted TCP). Use
"tabclip copy/status" as CLI tools; without a daemon, "copy" talks straight
to a browser's DevTools endpoint.

Config file search order (first found wins):
  /etc/tabclip/tabclip.toml
  $HOME/.config/tabclip/tabclip.toml
  path supplied via --config

All flags can be set via TABCLIP_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newCopyCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("tabclip %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
