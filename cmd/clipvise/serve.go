package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipvise/clipvise/internal/crypto"
	"github.com/clipvise/clipvise/internal/ipc"
	"github.com/clipvise/clipvise/internal/native"
	"github.com/clipvise/clipvise/internal/native/dynlib"
	"github.com/clipvise/clipvise/internal/native/memclip"
	"github.com/clipvise/clipvise/internal/native/sysclip"
	"github.com/clipvise/clipvise/internal/server"
	"github.com/clipvise/clipvise/internal/session"
	"github.com/clipvise/clipvise/internal/tlsconf"
)

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the clipboard daemon",
		Long: `Starts the clipvise daemon: opens a session against the native clipboard
library, runs the change-detection poll loop, and serves the session over the
local IPC socket and one TCP port (HTTP + raw peer protocol on the same port).

Backend selection (--backend):
  auto    libclipcore if it loads, then the system clipboard, then in-memory
  native  libclipcore only (fail if it cannot be loaded)
  system  the OS clipboard via CGO bindings
  memory  process-local clipboard, useful headless and in tests

Config file search order:
  /etc/clipvise/clipvise.toml
  $HOME/.config/clipvise/clipvise.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPVISE_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runServe(v) },
	}

	f := cmd.Flags()
	f.String("addr", "0.0.0.0:8756", "TCP listen address")
	f.String("token", "", "shared secret (empty = no auth, no encryption)")
	f.Bool("tls", false, "wrap the TCP listener in TLS (passphrase-derived credentials)")
	f.String("backend", "auto", "clipboard backend: auto|native|system|memory")
	f.String("library", "", "explicit path to libclipcore (native backend)")
	f.Duration("poll-interval", session.DefaultPollingInterval, "change-detection poll interval")
	f.Bool("no-monitor", false, "disable change detection (no events)")
	f.Int("max-size", session.DefaultMaxDataSize, "max clipboard payload in bytes (0 = unlimited)")
	f.Bool("trim", false, "trim surrounding whitespace on text set/get")
	f.String("source", defaultSource(), "name for this host in status responses")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServe(v *viper.Viper) error {
	setupLogging(v)

	addr := v.GetString("addr")
	token := v.GetString("token")
	source := v.GetString("source")

	var key *[crypto.KeySize]byte
	if token != "" {
		var err error
		key, err = crypto.DeriveKey(token)
		if err != nil {
			return fmt.Errorf("key derivation: %w", err)
		}
	}

	lib, backendName, err := openBackend(v.GetString("backend"), v.GetString("library"))
	if err != nil {
		return err
	}

	cfg := session.Config{
		PollingInterval: v.GetDuration("poll-interval"),
		ChangeDetection: !v.GetBool("no-monitor"),
		MaxDataSize:     v.GetInt("max-size"),
		TrimWhitespace:  v.GetBool("trim"),
	}
	sess, err := session.New(lib, cfg)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			slog.Warn("session close", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitoring := cfg.ChangeDetection
	if monitoring {
		if _, err := sess.StartMonitoring(ctx); err != nil {
			return fmt.Errorf("start monitoring: %w", err)
		}
	}

	slog.Info("clipvise daemon starting",
		"version", Version,
		"addr", addr,
		"backend", backendName,
		"monitoring", monitoring,
		"encrypted", key != nil,
	)

	srv := server.New(sess, server.Config{
		Token:      token,
		Key:        key,
		Source:     source,
		Backend:    backendName,
		Monitoring: monitoring,
		Version:    Version,
	})

	// IPC socket for the copy/paste/watch/status CLI tools.
	ipcLn, err := ipc.Listen()
	if err != nil {
		slog.Warn("IPC socket unavailable", "error", err)
	} else {
		slog.Info("IPC socket listening", "path", ipc.SocketPath())
		defer ipcLn.Close()
		go func() { _ = srv.ServeRaw(ipcLn, false) }()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	defer ln.Close()

	if v.GetBool("tls") {
		passphrase := token
		if passphrase == "" {
			passphrase = tlsconf.DefaultPassphrase
		}
		tcfg, err := tlsconf.ServerConfig(passphrase)
		if err != nil {
			return err
		}
		ln = tls.NewListener(ln, tcfg)
	}
	slog.Info("listening", "addr", ln.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// openBackend picks and opens a native clipboard backend.
func openBackend(kind, libPath string) (native.Library, string, error) {
	switch kind {
	case "native":
		lib, err := dynlib.Load(libPath)
		if err != nil {
			return nil, "", fmt.Errorf("load native library: %w", err)
		}
		return lib, "native", nil
	case "system":
		lib, err := sysclip.New()
		if err != nil {
			return nil, "", fmt.Errorf("system clipboard: %w", err)
		}
		return lib, "system", nil
	case "memory":
		return memclip.New(), "memory", nil
	case "auto":
		if lib, err := dynlib.Load(libPath); err == nil {
			return lib, "native", nil
		} else {
			slog.Debug("native library unavailable", "error", err)
		}
		if lib, err := sysclip.New(); err == nil {
			return lib, "system", nil
		} else {
			slog.Warn("system clipboard unavailable, using in-memory backend", "error", err)
		}
		return memclip.New(), "memory", nil
	default:
		return nil, "", fmt.Errorf("unknown backend %q", kind)
	}
}
