package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"CampusChat/internal/backend"
	"CampusChat/internal/cache"
	"CampusChat/internal/chaterr"
	"CampusChat/internal/config"
	"CampusChat/internal/render"
	"CampusChat/internal/responder"
	"CampusChat/internal/session"
	"CampusChat/internal/store"
)

const (
	sessionCookie  = "campuschat_session"
	maxRequestBody = 64 << 10
)

//go:embed static/index.html
var staticFS embed.FS

var indexTemplate = template.Must(template.ParseFS(staticFS, "static/index.html"))

// Server serves the chat widget page and the chat endpoint
type Server struct {
	cfg       config.ServerConfig
	responder *responder.Responder
	cache     *cache.Cache
	store     *store.Store // nil disables the conversation log
	logger    *slog.Logger
	tracer    trace.Tracer

	requests metric.Int64Counter
	latency  metric.Float64Histogram
	cacheHit metric.Int64Counter

	upgrader websocket.Upgrader
	connsMu  sync.Mutex
	conns    map[*websocket.Conn]struct{}
}

// Option configures a Server
type Option func(*Server)

// WithStore enables the SQLite conversation log
func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithTelemetry sets the tracer and meter
func WithTelemetry(tracer trace.Tracer, meter metric.Meter) Option {
	return func(s *Server) {
		s.tracer = tracer
		s.initMetrics(meter)
	}
}

// New creates a Server
func New(cfg config.ServerConfig, resp *responder.Responder, logger *slog.Logger, opts ...Option) (*Server, error) {
	if resp == nil {
		return nil, fmt.Errorf("responder cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	s := &Server{
		cfg:       cfg,
		responder: resp,
		cache:     cache.New(cfg.CacheTTL),
		logger:    logger,
		tracer:    otel.Tracer("campuschat"),
		conns:     make(map[*websocket.Conn]struct{}),
	}
	s.initMetrics(otel.Meter("campuschat"))
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) initMetrics(meter metric.Meter) {
	var err error
	s.requests, err = meter.Int64Counter("chat.requests",
		metric.WithDescription("Chat messages answered, by rule and transport"))
	if err != nil {
		s.logger.Warn("failed to create counter", "name", "chat.requests", "error", err)
	}
	s.cacheHit, err = meter.Int64Counter("chat.cache.hits",
		metric.WithDescription("Replies served from the cache"))
	if err != nil {
		s.logger.Warn("failed to create counter", "name", "chat.cache.hits", "error", err)
	}
	s.latency, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"))
	if err != nil {
		s.logger.Warn("failed to create histogram", "name", "http.server.request.duration", "error", err)
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST "+backend.PathChat, s.handleChat)
	mux.HandleFunc("POST "+backend.PathLegacyChat, s.handleChat)
	mux.HandleFunc("GET "+backend.PathWebSocket, s.handleWebSocket)
	mux.HandleFunc("GET "+backend.PathHealth, s.handleHealth)
	return s.instrument(mux)
}

// instrument wraps every request in a span and records its duration
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), "http.request")
		defer span.End()

		start := time.Now()
		req := r.WithContext(ctx)
		next.ServeHTTP(w, req)

		// the mux records the matched pattern on req
		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		span.SetName(route)

		if s.latency != nil {
			s.latency.Record(ctx, float64(time.Since(start).Milliseconds()),
				metric.WithAttributes(attribute.String("route", route)))
		}
	})
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("chat server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.closeWebSockets()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	s.logger.Info("chat server stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(w, struct {
		Title    string
		Endpoint string
		History  []template.HTML
	}{Title: s.cfg.Title, Endpoint: backend.PathChat, History: s.history(r)})
	if err != nil {
		s.logger.Error("failed to render index", "error", err)
	}
}

// history renders the stored transcript of the request's session, if any
func (s *Server) history(r *http.Request) []template.HTML {
	id := s.cookieSession(r)
	if id == "" {
		return nil
	}
	sess, err := s.store.LoadSession(r.Context(), id)
	if err != nil {
		s.logger.Warn("failed to load session", "session_id", id, "error", err)
		return nil
	}

	entries := make([]template.HTML, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		entry, err := render.HTML(msg)
		if err != nil {
			s.logger.Error("failed to render message", "session_id", id, "error", err)
			return nil
		}
		entries = append(entries, entry)
	}
	return entries
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, backend.HealthResponse{Status: "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req backend.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("rejected chat request", "error", err)
		writeJSON(w, http.StatusBadRequest, backend.ErrorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, backend.ErrorResponse{Error: chaterr.ErrEmptyMessage.Error()})
		return
	}

	sessionID := s.httpSession(w, r)
	reply := s.answer(r.Context(), sessionID, req.Message, "http")
	writeJSON(w, http.StatusOK, backend.ChatResponse{Reply: reply})
}

// httpSession resolves the conversation from the session cookie, starting one if needed
func (s *Server) httpSession(w http.ResponseWriter, r *http.Request) string {
	if s.store == nil {
		return ""
	}
	if id := s.cookieSession(r); id != "" {
		return id
	}

	sess, err := s.store.NewSession(r.Context(), r.RemoteAddr)
	if err != nil {
		s.logger.Warn("failed to create session", "error", err)
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("created new session", "session_id", sess.ID)
	return sess.ID
}

// cookieSession returns the session named by the request cookie when the store knows it
func (s *Server) cookieSession(r *http.Request) string {
	if s.store == nil {
		return ""
	}
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	ok, err := s.store.SessionExists(r.Context(), c.Value)
	if err != nil {
		s.logger.Warn("failed to check session", "error", err)
		return ""
	}
	if !ok {
		s.logger.Info("ignoring unknown session cookie")
		return ""
	}
	return c.Value
}

// answer produces the reply for message, consulting the cache and logging the exchange
func (s *Server) answer(ctx context.Context, sessionID, message, via string) string {
	userMsg := session.NewMessage(session.RoleUser, message)

	key := cache.GenerateCacheKey(responder.Normalize(message))
	reply, hit := s.cache.Get(key)
	rule := "cached"
	if hit {
		if s.cacheHit != nil {
			s.cacheHit.Add(ctx, 1)
		}
	} else {
		ans := s.responder.Reply(ctx, message)
		reply, rule = ans.Text, ans.Rule
		if ans.Cacheable {
			s.cache.Store(key, reply)
		}
	}

	if s.requests != nil {
		s.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("rule", rule),
			attribute.String("transport", via),
		))
	}
	s.logger.Info("answered message", "rule", rule, "transport", via, "session_id", sessionID)

	if s.store != nil && sessionID != "" {
		if err := s.store.AppendMessages(ctx, sessionID, userMsg, session.NewMessage(session.RoleBot, reply)); err != nil {
			s.logger.Error("failed to save messages", "session_id", sessionID, "error", err)
		}
	}
	return reply
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
