package tlsconf

import (
	"crypto/tls"
	"net"
	"testing"
	"time"
)

// startTLSListener accepts one connection and completes its handshake.
func startTLSListener(t *testing.T, passphrase string) net.Addr {
	t.Helper()
	cfg, err := ServerConfig(passphrase)
	if err != nil {
		t.Fatalf("ServerConfig: %v", err)
	}
	ln, err := tls.Listen("tcp", "127.0.0.1:0", cfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				// Drive the handshake; the client side decides pass/fail.
				_, _ = c.Read(make([]byte, 1))
			}(conn)
		}
	}()
	return ln.Addr()
}

func dialTLS(t *testing.T, addr net.Addr, passphrase string) error {
	t.Helper()
	cfg, err := ClientConfig(passphrase)
	if err != nil {
		t.Fatalf("ClientConfig: %v", err)
	}
	d := &net.Dialer{Timeout: 2 * time.Second}
	conn, err := tls.DialWithDialer(d, "tcp", addr.String(), cfg)
	if err != nil {
		return err
	}
	return conn.Close()
}

func TestMatchingPassphraseConnects(t *testing.T) {
	addr := startTLSListener(t, "shared-secret")
	if err := dialTLS(t, addr, "shared-secret"); err != nil {
		t.Errorf("handshake with matching passphrase: %v", err)
	}
}

func TestWrongPassphraseRejected(t *testing.T) {
	addr := startTLSListener(t, "shared-secret")
	if err := dialTLS(t, addr, "other-secret"); err == nil {
		t.Error("handshake succeeded across mismatched passphrases")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	k1, err := deriveKey("p")
	if err != nil {
		t.Fatalf("deriveKey: %v", err)
	}
	k2, err := deriveKey("p")
	if err != nil {
		t.Fatalf("deriveKey: %v", err)
	}
	if k1.D.Cmp(k2.D) != 0 {
		t.Error("same passphrase derived different keys")
	}

	k3, err := deriveKey("q")
	if err != nil {
		t.Fatalf("deriveKey: %v", err)
	}
	if k1.D.Cmp(k3.D) == 0 {
		t.Error("different passphrases derived the same key")
	}
}
