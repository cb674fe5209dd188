package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/clipvise/clipvise/internal/message"
	"github.com/clipvise/clipvise/internal/session"
	"github.com/clipvise/clipvise/internal/wire"
)

const (
	authTimeout = 10 * time.Second
	// sendBuffer bounds the per-peer outbound queue. A watcher that stops
	// reading gets events dropped rather than blocking the dispatcher.
	sendBuffer = 16
)

// peer is one raw-protocol connection.
type peer struct {
	conn        *wire.Conn
	srv         *Server
	requireAuth bool
	log         *slog.Logger

	sendCh    chan *message.Message
	closeOnce sync.Once
	closed    chan struct{}
}

func newPeer(conn net.Conn, srv *Server, requireAuth bool) *peer {
	var key = srv.cfg.Key
	if !requireAuth {
		// IPC connections are plaintext regardless of the daemon key.
		key = nil
	}
	return &peer{
		conn:        wire.New(conn, key),
		srv:         srv,
		requireAuth: requireAuth,
		log:         slog.With("peer", conn.RemoteAddr().String()),
		sendCh:      make(chan *message.Message, sendBuffer),
		closed:      make(chan struct{}),
	}
}

// serve runs the peer until the connection drops or a protocol error occurs.
func (p *peer) serve() {
	defer p.close()

	if p.requireAuth && p.srv.cfg.Token != "" {
		if err := p.authenticate(); err != nil {
			p.log.Warn("auth failed", "error", err)
			return
		}
	}

	go p.writeLoop()

	var watchSub session.Subscription
	watching := false
	defer func() {
		if watching {
			p.srv.sess.Unsubscribe(watchSub)
		}
	}()

	for {
		msg, err := p.conn.ReadMsg()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				p.log.Debug("read failed", "error", err)
			}
			return
		}

		switch msg.Type {
		case message.TypeSet:
			p.reply(p.handleSet(msg))
		case message.TypeGet:
			p.reply(p.handleGet())
		case message.TypeClear:
			if err := p.srv.sess.Clear(); err != nil {
				p.reply(errorMsg(err))
			} else {
				p.reply(&message.Message{Type: message.TypeResult})
			}
		case message.TypeStatus:
			p.reply(p.srv.statusMsg())
		case message.TypeWatch:
			if !watching {
				watchSub = p.srv.sess.Subscribe(p.onEvent)
				watching = true
			}
			p.reply(&message.Message{Type: message.TypeResult})
		case message.TypePing:
			p.reply(&message.Message{Type: message.TypePong})
		default:
			p.reply(errorMsg(fmt.Errorf("unknown message type %q", msg.Type)))
		}
	}
}

// authenticate expects an AUTH message carrying the shared token as the
// first line on the connection.
func (p *peer) authenticate() error {
	p.conn.SetReadDeadline(authTimeout)
	defer p.conn.SetReadDeadline(0)

	msg, err := p.conn.ReadMsg()
	if err != nil {
		return fmt.Errorf("read auth: %w", err)
	}
	if msg.Type != message.TypeAuth {
		return fmt.Errorf("expected AUTH, got %s", msg.Type)
	}
	token, err := base64.StdEncoding.DecodeString(msg.Payload)
	if err != nil {
		return fmt.Errorf("decode auth payload: %w", err)
	}
	if string(token) != p.srv.cfg.Token {
		_ = p.conn.WriteMsg(errorMsg(errors.New("invalid token")))
		return errors.New("token mismatch")
	}
	return p.conn.WriteMsg(&message.Message{Type: message.TypeResult})
}

func (p *peer) handleSet(msg *message.Message) *message.Message {
	if len(msg.Items) == 0 {
		return errorMsg(errors.New("SET carries no items"))
	}
	if err := p.srv.applyItems(msg.Items); err != nil {
		return errorMsg(err)
	}
	return &message.Message{Type: message.TypeResult}
}

func (p *peer) handleGet() *message.Message {
	items, err := p.srv.currentItems()
	if err != nil {
		return errorMsg(err)
	}
	return &message.Message{Type: message.TypeResult, Items: items}
}

// onEvent forwards a session change event to the peer. Non-blocking: if the
// peer's queue is full the event is dropped and the next one carries the
// fresher state anyway.
func (p *peer) onEvent(ev session.Event) {
	msg := &message.Message{
		Type:   message.TypeEvent,
		Source: p.srv.cfg.Source,
		Event: &message.Event{
			Time: ev.Time,
			State: message.State{
				HasText:      ev.HasText,
				HasImage:     ev.HasImage,
				HasOwnership: ev.HasOwnership,
			},
		},
	}
	select {
	case p.sendCh <- msg:
	case <-p.closed:
	default:
		p.log.Debug("event dropped, peer queue full")
	}
}

// reply queues msg for the writer goroutine.
func (p *peer) reply(msg *message.Message) {
	select {
	case p.sendCh <- msg:
	case <-p.closed:
	}
}

// writeLoop serialises all outbound traffic for this peer.
func (p *peer) writeLoop() {
	for {
		select {
		case msg := <-p.sendCh:
			if err := p.conn.WriteMsg(msg); err != nil {
				p.log.Debug("write failed", "error", err)
				p.close()
				return
			}
		case <-p.closed:
			return
		}
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		_ = p.conn.Close()
	})
}

func errorMsg(err error) *message.Message {
	return &message.Message{Type: message.TypeError, Error: err.Error()}
}
