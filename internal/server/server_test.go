package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clipvise/clipvise/internal/crypto"
	"github.com/clipvise/clipvise/internal/message"
	"github.com/clipvise/clipvise/internal/native/memclip"
	"github.com/clipvise/clipvise/internal/session"
	"github.com/clipvise/clipvise/internal/wire"
)

// startServer runs a full cmux server over a memory-backed session and
// returns its address plus the backing library for external injections.
func startServer(t *testing.T, cfg Config) (string, *memclip.Library) {
	t.Helper()

	lib := memclip.New()
	sess, err := session.New(lib, session.Config{
		PollingInterval: 10 * time.Millisecond,
		ChangeDetection: true,
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if _, err := sess.StartMonitoring(ctx); err != nil {
		t.Fatalf("StartMonitoring: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	cfg.Monitoring = true
	srv := New(sess, cfg)
	go func() { _ = srv.Serve(ln) }()

	return ln.Addr().String(), lib
}

func dialRaw(t *testing.T, addr string, key *[crypto.KeySize]byte) *wire.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	wc := wire.New(conn, key)
	t.Cleanup(func() { _ = wc.Close() })
	return wc
}

func request(t *testing.T, wc *wire.Conn, req *message.Message) *message.Message {
	t.Helper()
	if err := wc.WriteMsg(req); err != nil {
		t.Fatalf("WriteMsg(%s): %v", req.Type, err)
	}
	wc.SetReadDeadline(2 * time.Second)
	resp, err := wc.ReadMsg()
	if err != nil {
		t.Fatalf("ReadMsg after %s: %v", req.Type, err)
	}
	return resp
}

func TestRawSetGetClear(t *testing.T) {
	addr, _ := startServer(t, Config{Source: "test", Backend: "memory"})
	wc := dialRaw(t, addr, nil)

	resp := request(t, wc, &message.Message{
		Type:  message.TypeSet,
		Items: []message.Item{message.NewTextItem("shared text")},
	})
	if resp.Type != message.TypeResult {
		t.Fatalf("SET: got %s (%s)", resp.Type, resp.Error)
	}

	resp = request(t, wc, &message.Message{Type: message.TypeGet})
	if resp.Type != message.TypeResult {
		t.Fatalf("GET: got %s (%s)", resp.Type, resp.Error)
	}
	if got := resp.TextPayload(); got != "shared text" {
		t.Errorf("GET payload: got %q, want %q", got, "shared text")
	}

	resp = request(t, wc, &message.Message{Type: message.TypeClear})
	if resp.Type != message.TypeResult {
		t.Fatalf("CLEAR: got %s (%s)", resp.Type, resp.Error)
	}

	resp = request(t, wc, &message.Message{Type: message.TypeStatus})
	if resp.Type != message.TypeStatusResponse {
		t.Fatalf("STATUS: got %s", resp.Type)
	}
	if resp.State == nil || resp.State.HasText {
		t.Errorf("state after clear: %+v", resp.State)
	}
	if resp.Backend != "memory" {
		t.Errorf("backend: got %q", resp.Backend)
	}
}

func TestRawAuth(t *testing.T) {
	key, err := crypto.DeriveKey("sesame")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	addr, _ := startServer(t, Config{Token: "sesame", Key: key})

	wc := dialRaw(t, addr, key)
	resp := request(t, wc, &message.Message{
		Type:    message.TypeAuth,
		Payload: base64.StdEncoding.EncodeToString([]byte("sesame")),
	})
	if resp.Type != message.TypeResult {
		t.Fatalf("AUTH: got %s (%s)", resp.Type, resp.Error)
	}

	resp = request(t, wc, &message.Message{Type: message.TypePing})
	if resp.Type != message.TypePong {
		t.Errorf("PING after auth: got %s", resp.Type)
	}
}

func TestRawAuthRejectsBadToken(t *testing.T) {
	key, _ := crypto.DeriveKey("sesame")
	addr, _ := startServer(t, Config{Token: "sesame", Key: key})

	wc := dialRaw(t, addr, key)
	if err := wc.WriteMsg(&message.Message{
		Type:    message.TypeAuth,
		Payload: base64.StdEncoding.EncodeToString([]byte("wrong")),
	}); err != nil {
		t.Fatalf("WriteMsg: %v", err)
	}

	wc.SetReadDeadline(2 * time.Second)
	resp, err := wc.ReadMsg()
	if err == nil && resp.Type != message.TypeError {
		t.Errorf("bad token: got %s, want ERROR or closed connection", resp.Type)
	}
}

func TestWatchStreamsEvents(t *testing.T) {
	addr, lib := startServer(t, Config{Source: "test"})
	wc := dialRaw(t, addr, nil)

	resp := request(t, wc, &message.Message{Type: message.TypeWatch})
	if resp.Type != message.TypeResult {
		t.Fatalf("WATCH: got %s (%s)", resp.Type, resp.Error)
	}

	lib.InjectText("external change")

	wc.SetReadDeadline(2 * time.Second)
	ev, err := wc.ReadMsg()
	if err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if ev.Type != message.TypeEvent || ev.Event == nil {
		t.Fatalf("got %s, want EVENT", ev.Type)
	}
	if !ev.Event.HasText {
		t.Errorf("event state: %+v, want has_text", ev.Event.State)
	}
}

func TestHTTPStatusAndText(t *testing.T) {
	addr, _ := startServer(t, Config{Token: "tok", Source: "test", Backend: "memory", Version: "test"})
	base := "http://" + addr

	client := &http.Client{Timeout: 2 * time.Second}
	do := func(method, path, body string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, base+path, strings.NewReader(body))
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		req.Header.Set("Authorization", "Bearer tok")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	// Missing token is rejected.
	resp, err := client.Get(base + "/v1/status")
	if err != nil {
		t.Fatalf("GET /v1/status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", resp.StatusCode)
	}

	resp = do("GET", "/v1/status", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var st statusBody
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Backend != "memory" || !st.Monitoring {
		t.Errorf("status body: %+v", st)
	}

	if resp = do("PUT", "/v1/text", "over http"); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put text: got %d", resp.StatusCode)
	}

	resp = do("GET", "/v1/text", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get text: got %d", resp.StatusCode)
	}
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	if got := string(buf[:n]); got != "over http" {
		t.Errorf("get text: got %q", got)
	}

	if resp = do("DELETE", "/v1/clipboard", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("clear: got %d", resp.StatusCode)
	}

	resp = do("GET", "/v1/text", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get text after clear: got %d", resp.StatusCode)
	}
}

func TestWebsocketEvents(t *testing.T) {
	addr, lib := startServer(t, Config{Source: "test"})

	c, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/v1/events", addr), nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	// Give the subscription a moment to register before injecting.
	time.Sleep(50 * time.Millisecond)
	lib.InjectText("ws change")

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev message.Event
	if err := c.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !ev.HasText {
		t.Errorf("event: %+v, want has_text", ev)
	}
}
