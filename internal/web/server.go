// Package web serves the browser chat interface. Each websocket
// connection gets its own agent, closed when the connection ends.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yuin/goldmark"

	"github.com/nugget/whatnext/internal/agent"
	"github.com/nugget/whatnext/internal/buildinfo"
)

//go:embed static/*
var staticFiles embed.FS

// maxQueryBytes bounds a single inbound websocket message.
const maxQueryBytes = 16 * 1024

// Session answers queries for one connection. *agent.Agent satisfies it.
type Session interface {
	Run(ctx context.Context, query string) agent.Result
	Close() error
}

// SessionFactory builds a fresh Session for a new connection.
type SessionFactory func() (Session, error)

// Request is a message from the browser.
type Request struct {
	Query string `json:"query"`
}

// Reply is a message to the browser. Text holds markdown and HTML the
// same content rendered.
type Reply struct {
	TurnID  string        `json:"turn_id,omitempty"`
	Text    string        `json:"text"`
	HTML    string        `json:"html"`
	Outcome agent.Outcome `json:"outcome,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Server is the chat HTTP server.
type Server struct {
	addr       string
	newSession SessionFactory
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	md         goldmark.Markdown

	server *http.Server
}

// NewServer returns a Server that listens on addr once Start is called.
func NewServer(addr string, newSession SessionFactory, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:       addr,
		newSession: newSession,
		logger:     logger.With("component", "web"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 * 1024,
		},
		md: goldmark.New(),
	}
}

// Handler returns the routes served by s.
func (s *Server) Handler() http.Handler {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	fileServer := http.FileServer(http.FS(subFS))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /", fileServer)
	return s.withLogging(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", "address", s.addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxQueryBytes)

	sess, err := s.newSession()
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		_ = conn.WriteJSON(Reply{Error: "agent unavailable"})
		return
	}
	defer func() {
		if err := sess.Close(); err != nil {
			s.logger.Warn("session close failed", "error", err)
		}
	}()

	log := s.logger.With("remote", r.RemoteAddr)
	log.Info("chat session opened")
	defer log.Info("chat session closed")

	ctx := r.Context()
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read failed", "error", err)
			}
			return
		}

		query := strings.TrimSpace(req.Query)
		if query == "" {
			if err := conn.WriteJSON(Reply{Error: "empty query"}); err != nil {
				return
			}
			continue
		}

		res := sess.Run(ctx, query)
		if err := conn.WriteJSON(s.reply(res)); err != nil {
			log.Debug("websocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) reply(res agent.Result) Reply {
	out := Reply{
		TurnID:  res.TurnID,
		Text:    res.Text,
		Outcome: res.Outcome,
	}
	html, err := s.render(res.Text)
	if err != nil {
		s.logger.Warn("markdown render failed", "turn_id", res.TurnID, "error", err)
		return out
	}
	out.HTML = html
	return out
}

// render converts markdown to an HTML fragment.
func (s *Server) render(md string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeJSON encodes v as JSON to w, logging any errors at debug level.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}
