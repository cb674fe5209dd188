package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clipvise/clipvise/internal/message"
	"github.com/clipvise/clipvise/internal/session"
)

const (
	httpReadLimit  = 32 * 1024 * 1024
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// statusBody is the JSON shape of GET /v1/status.
type statusBody struct {
	Source     string        `json:"source"`
	Backend    string        `json:"backend"`
	Monitoring bool          `json:"monitoring"`
	Version    string        `json:"version"`
	State      message.State `json:"state"`
}

// serveHTTP runs the REST and websocket surface on ln.
func (s *Server) serveHTTP(ln net.Listener) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/text", s.handleGetText)
	mux.HandleFunc("PUT /v1/text", s.handlePutText)
	mux.HandleFunc("DELETE /v1/clipboard", s.handleClear)
	mux.HandleFunc("GET /v1/events", s.handleEvents)

	srv := &http.Server{
		Handler:           s.withAuth(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.Serve(ln)
}

// withAuth enforces the bearer token on every endpoint when one is set.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, statusBody{
		Source:     s.cfg.Source,
		Backend:    s.cfg.Backend,
		Monitoring: s.cfg.Monitoring,
		Version:    s.cfg.Version,
		State:      s.state(),
	})
}

func (s *Server) handleGetText(w http.ResponseWriter, _ *http.Request) {
	text, ok, err := s.sess.GetText()
	if err != nil {
		httpError(w, err)
		return
	}
	if !ok {
		http.Error(w, "clipboard has no text", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, text)
}

func (s *Server) handlePutText(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, httpReadLimit))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.sess.SetText(string(body)); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	if err := s.sess.Clear(); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{
	// Token auth already ran in withAuth; browser origins are not a concern
	// for a localhost daemon.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleEvents upgrades to a websocket and streams change events until the
// client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()

	log := slog.With("peer", c.RemoteAddr().String())

	events := make(chan message.Event, sendBuffer)
	sub := s.sess.Subscribe(func(ev session.Event) {
		e := message.Event{
			Time: ev.Time,
			State: message.State{
				HasText:      ev.HasText,
				HasImage:     ev.HasImage,
				HasOwnership: ev.HasOwnership,
			},
		}
		select {
		case events <- e:
		default:
			log.Debug("event dropped, websocket queue full")
		}
	})
	defer s.sess.Unsubscribe(sub)

	// Read pump: we never expect client messages, but reading is how we
	// learn the connection is gone.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case ev := <-events:
			_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func httpError(w http.ResponseWriter, err error) {
	var limitErr *session.SizeLimitError
	switch {
	case errors.Is(err, session.ErrDisposed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &limitErr):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
