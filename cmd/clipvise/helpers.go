package main

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/clipvise/clipvise/internal/crypto"
	"github.com/clipvise/clipvise/internal/ipc"
	"github.com/clipvise/clipvise/internal/message"
	"github.com/clipvise/clipvise/internal/tlsconf"
	"github.com/clipvise/clipvise/internal/wire"
)

const dialTimeout = 5 * time.Second

func encodeToken(token string) string {
	return base64.StdEncoding.EncodeToString([]byte(token))
}

// defaultSource returns a human-readable identifier for this host.
func defaultSource() string {
	if s := os.Getenv("CLIPVISE_SOURCE"); s != "" {
		return s
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

// dialDaemon connects to a running daemon: the local IPC socket if one is
// listening (and no explicit --server was given), otherwise TCP with the
// optional AUTH handshake. Returns the connection and a transport label for
// display.
func dialDaemon(v *viper.Viper, serverChanged bool) (*wire.Conn, string, error) {
	if !serverChanged && ipc.IsRunning() {
		conn, err := ipc.Dial()
		if err == nil {
			return wire.New(conn, nil), fmt.Sprintf("ipc (%s)", ipc.SocketPath()), nil
		}
	}

	addr := v.GetString("server")
	token := v.GetString("token")

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, "", fmt.Errorf("connect %s: %w", addr, err)
	}

	if v.GetBool("tls") {
		passphrase := token
		if passphrase == "" {
			passphrase = tlsconf.DefaultPassphrase
		}
		tcfg, err := tlsconf.ClientConfig(passphrase)
		if err != nil {
			conn.Close()
			return nil, "", err
		}
		tconn := tls.Client(conn, tcfg)
		if err := tconn.Handshake(); err != nil {
			conn.Close()
			return nil, "", fmt.Errorf("tls handshake %s: %w", addr, err)
		}
		conn = tconn
	}

	var key *[crypto.KeySize]byte
	if token != "" {
		key, err = crypto.DeriveKey(token)
		if err != nil {
			conn.Close()
			return nil, "", fmt.Errorf("key derivation: %w", err)
		}
	}

	wc := wire.New(conn, key)
	if token != "" {
		if err := authenticate(wc, token); err != nil {
			wc.Close()
			return nil, "", err
		}
	}
	return wc, fmt.Sprintf("tcp (%s)", addr), nil
}

func authenticate(wc *wire.Conn, token string) error {
	if err := wc.WriteMsg(&message.Message{
		Type:    message.TypeAuth,
		Source:  defaultSource(),
		Payload: encodeToken(token),
	}); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	resp, err := wc.ReadMsg()
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if resp.Type == message.TypeError {
		return fmt.Errorf("auth rejected: %s", resp.Error)
	}
	return nil
}

// roundTrip sends one request and returns the response, converting protocol
// errors to Go errors.
func roundTrip(wc *wire.Conn, req *message.Message) (*message.Message, error) {
	if err := wc.WriteMsg(req); err != nil {
		return nil, err
	}
	resp, err := wc.ReadMsg()
	if err != nil {
		return nil, err
	}
	if resp.Type == message.TypeError {
		return nil, errors.New(resp.Error)
	}
	return resp, nil
}
