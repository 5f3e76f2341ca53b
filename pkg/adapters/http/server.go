package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/actorflow/internal/logging"
	"github.com/aretw0/actorflow/pkg/actor"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is a read-only introspection API over an actor system.
//
//	GET /healthz        liveness
//	GET /actors         every registered actor
//	GET /actors/{name}  one actor with its attributes
//	GET /events         lifecycle events as server-sent events (?interpreter=name)
//	GET /metrics        Prometheus metrics, when a gatherer is configured
type Server struct {
	sys      *actor.System
	streams  *StreamManager
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer serves /metrics from g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server for sys.
func NewServer(sys *actor.System, opts ...Option) *Server {
	s := &Server{sys: sys, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	return s
}

// Streams exposes the event fan-out.
func (s *Server) Streams() *StreamManager {
	return s.streams
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/actors", s.listActors)
	r.Get("/actors/{name}", s.getActor)
	r.Get("/events", s.events)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ActorView is the JSON form of an actor.
type ActorView struct {
	Name       string         `json:"name"`
	Alive      bool           `json:"alive"`
	Pending    int            `json:"pending"`
	Parent     string         `json:"parent,omitempty"`
	Children   []string       `json:"children,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func view(h actor.Handle, withAttrs bool) ActorView {
	v := ActorView{
		Name:     h.Name(),
		Alive:    h.IsAlive(),
		Pending:  h.Pending(),
		Parent:   h.ParentName(),
		Children: h.ChildNames(),
	}
	if withAttrs {
		v.Attributes = h.Attributes().Snapshot()
	}
	return v
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	st := s.sys.Stats()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"actors":    st.Actors,
		"processed": st.Processed,
		"failed":    st.Failed,
		"discarded": st.Discarded,
	})
}

func (s *Server) listActors(w http.ResponseWriter, _ *http.Request) {
	names := s.sys.ListNames()
	out := make([]ActorView, 0, len(names))
	for _, name := range names {
		if h, ok := s.sys.Get(name); ok {
			out = append(out, view(h, false))
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getActor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h, ok := s.sys.Get(name)
	if !ok {
		http.Error(w, fmt.Sprintf("actor %q not found", name), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, view(h, true))
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	topic := r.URL.Query().Get("interpreter")
	ch, cancel := s.streams.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprint(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("sse subscribed", "interpreter", topic)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

// Hooks returns lifecycle hooks that publish every interpreter event to the
// /events stream, under the interpreter's name as topic.
func (s *Server) Hooks() domain.LifecycleHooks {
	publish := func(interpreter string, evt any) {
		data, err := json.Marshal(evt)
		if err != nil {
			s.logger.Warn("encode event", "err", err)
			return
		}
		s.streams.Broadcast(interpreter, string(data))
	}
	return domain.LifecycleHooks{
		OnTransition:   func(_ context.Context, e *domain.TransitionEvent) { publish(e.Interpreter, e) },
		OnActionResult: func(_ context.Context, e *domain.ActionEvent) { publish(e.Interpreter, e) },
		OnNoMatch:      func(_ context.Context, e *domain.NoMatchEvent) { publish(e.Interpreter, e) },
	}
}

// ListenAndServe serves the handler on addr until ctx is done, then shuts down
// with the given grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("introspection server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
