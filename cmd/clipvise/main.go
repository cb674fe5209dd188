// clipvise: safe clipboard sessions over a native clipboard library.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clipvise/clipvise/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipvise",
		Short: "Safe clipboard sessions over a native clipboard library",
		Long: `clipvise wraps a native clipboard library (libclipcore) in a managed
session: exactly-once handle release, size limits, and a polling engine that
turns clipboard changes into events.

Run "clipvise serve" to start the daemon. It exposes the session over a local
IPC socket plus one TCP port that speaks both HTTP (REST + websocket event
stream) and a newline-delimited JSON peer protocol.

Use "clipvise copy/paste/watch/status/clear" as CLI tools against a running
daemon.

Config file search order (first found wins):
  /etc/clipvise/clipvise.toml
  $HOME/.config/clipvise/clipvise.toml
  path supplied via --config

All flags can be set via CLIPVISE_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newCopyCmd(),
		newPasteCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newClearCmd(),
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
			fmt.Printf("clipvise %s\n", Version)
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
