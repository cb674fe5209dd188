// Package ipc provides the local Unix-socket channel CLI tools use to talk
// to a running clipvise daemon instead of opening their own TCP connections.
//
// The channel speaks the same newline-delimited JSON protocol as the TCP
// listener, without encryption or auth — the socket is local and
// owner-restricted by the OS.
package ipc

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
)

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux:   $XDG_RUNTIME_DIR/clipvise.sock, falling back to $TMPDIR
//   - macOS:   $TMPDIR/clipvise.sock
//   - Windows: \\.\pipe\clipvise (named pipe — not yet implemented)
//
// $CLIPVISE_SOCKET overrides everything.
func SocketPath() string {
	if s := os.Getenv("CLIPVISE_SOCKET"); s != "" {
		return s
	}
	if runtime.GOOS == "windows" {
		return `\\.\pipe\clipvise`
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "clipvise.sock")
	}
	return filepath.Join(os.TempDir(), "clipvise.sock")
}

// IsRunning reports whether a clipvise daemon appears to be listening on the
// IPC socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := Dial()
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Dial connects to the IPC socket.
func Dial() (net.Conn, error) {
	return net.Dial("unix", SocketPath())
}

// Listen creates and returns a net.Listener on the IPC socket path, removing
// any stale socket file from a previous (crashed) run first.
func Listen() (net.Listener, error) {
	path := SocketPath()
	_ = os.Remove(path)
	return net.Listen("unix", path)
}
