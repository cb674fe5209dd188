// Package server exposes one clipboard session over the network.
//
// A single TCP listener is split with cmux: HTTP/1.1 requests go to a small
// REST surface plus a websocket event stream, everything else speaks the raw
// newline-delimited JSON peer protocol from internal/message. The same raw
// protocol is served unauthenticated on the local IPC socket.
package server

import (
	"net"

	"github.com/soheilhy/cmux"

	"github.com/clipvise/clipvise/internal/crypto"
	"github.com/clipvise/clipvise/internal/message"
	"github.com/clipvise/clipvise/internal/session"
)

// Config carries the serving options.
type Config struct {
	// Token is the shared secret. Empty disables auth and encryption.
	Token string
	// Key encrypts raw-protocol traffic when non-nil (derived from Token).
	Key *[crypto.KeySize]byte
	// Source names this host in status responses.
	Source string
	// Backend names the native library implementation in use.
	Backend string
	// Monitoring reports whether the change-detection loop is running.
	Monitoring bool
	// Version is the daemon version string.
	Version string
}

// Server serves one session to any number of connections.
type Server struct {
	sess *session.Session
	cfg  Config
}

// New returns a Server over sess.
func New(sess *session.Session, cfg Config) *Server {
	return &Server{sess: sess, cfg: cfg}
}

// Serve multiplexes ln between HTTP and the raw peer protocol. It blocks
// until ln is closed.
func (s *Server) Serve(ln net.Listener) error {
	m := cmux.New(ln)
	httpL := m.Match(cmux.HTTP1Fast())
	rawL := m.Match(cmux.Any())

	go func() { _ = s.serveHTTP(httpL) }()
	go func() { _ = s.ServeRaw(rawL, true) }()

	return m.Serve()
}

// ServeRaw accepts raw-protocol peers on ln. requireAuth is false for the
// IPC socket, where the OS already gates access.
func (s *Server) ServeRaw(ln net.Listener, requireAuth bool) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		p := newPeer(conn, s, requireAuth)
		go p.serve()
	}
}

// state snapshots the session's observable flags. Query errors (a disposed
// session mid-shutdown) read as all-false.
func (s *Server) state() message.State {
	hasText, _ := s.sess.HasText()
	hasImage, _ := s.sess.HasImage()
	hasOwner, _ := s.sess.HasOwnership()
	return message.State{HasText: hasText, HasImage: hasImage, HasOwnership: hasOwner}
}

// statusMsg builds a STATUS_RESPONSE.
func (s *Server) statusMsg() *message.Message {
	st := s.state()
	return &message.Message{
		Type:       message.TypeStatusResponse,
		Source:     s.cfg.Source,
		State:      &st,
		Backend:    s.cfg.Backend,
		Monitoring: s.cfg.Monitoring,
		Version:    s.cfg.Version,
	}
}

// currentItems reads the clipboard into protocol items, one per MIME type.
func (s *Server) currentItems() ([]message.Item, error) {
	var items []message.Item
	text, ok, err := s.sess.GetText()
	if err != nil {
		return nil, err
	}
	if ok {
		items = append(items, message.NewTextItem(text))
	}
	img, ok, err := s.sess.GetImage()
	if err != nil {
		return nil, err
	}
	if ok {
		items = append(items, message.NewBinaryItem(message.MIMEImage, img))
	}
	return items, nil
}

// applyItems writes protocol items to the clipboard.
func (s *Server) applyItems(items []message.Item) error {
	for _, it := range items {
		data, err := it.Decode()
		if err != nil {
			return err
		}
		switch it.MIME {
		case message.MIMEText:
			err = s.sess.SetText(string(data))
		default:
			err = s.sess.SetImage(data)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
