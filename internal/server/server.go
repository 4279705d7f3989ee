// Package server exposes the bridge over HTTP: the telephony webhook that
// answers inbound calls, the websocket media endpoint the provider streams
// audio through, and the control surface (mute, play, say, hangup, voices,
// status) that operators drive during a call.
//
// All handlers act on the single shared [state.CallState] through the
// [media.Streamer]; the server itself holds no call state beyond the
// pending answer handle that links the webhook to the media connection.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/avelow/voxbridge/internal/health"
	"github.com/avelow/voxbridge/internal/media"
	"github.com/avelow/voxbridge/internal/observe"
	"github.com/avelow/voxbridge/internal/state"
	"github.com/avelow/voxbridge/pkg/provider/callctl"
	"github.com/avelow/voxbridge/pkg/provider/tts"
)

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Server wires the HTTP surface to the media orchestrator.
type Server struct {
	streamer *media.Streamer
	calls    *state.CallState
	synth    tts.Service

	listenAddr string
	publicHost string
	controller callctl.Controller
	probes     *health.Handler
	metrics    *observe.Metrics
	log        *slog.Logger

	// pending carries the answer handle from the webhook to the media
	// websocket that the provider opens moments later.
	mu      sync.Mutex
	pending *callctl.Handle

	httpSrv *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithListenAddr sets the listen address (default ":8080").
func WithListenAddr(addr string) Option {
	return func(s *Server) { s.listenAddr = addr }
}

// WithPublicHost sets the externally reachable host used to build the
// wss:// media URL handed to the telephony provider.
func WithPublicHost(host string) Option {
	return func(s *Server) { s.publicHost = host }
}

// WithController sets the telephony call controller. Without one the
// webhook and hangup endpoints report the capability as unimplemented.
func WithController(c callctl.Controller) Option {
	return func(s *Server) { s.controller = c }
}

// WithHealth sets the liveness/readiness probe handler.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.probes = h }
}

// WithServerLogger sets the logger (default slog.Default).
func WithServerLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithServerMetrics sets the metrics collection (default the global set).
func WithServerMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a Server around the orchestrator, the shared call state and
// the synthesis chain.
func New(streamer *media.Streamer, calls *state.CallState, synth tts.Service, opts ...Option) *Server {
	s := &Server{
		streamer:   streamer,
		calls:      calls,
		synth:      synth,
		listenAddr: ":8080",
		probes:     health.New(),
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Routes builds the full route table.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /events", s.handleInboundCall)
	mux.HandleFunc("GET /media", s.handleMedia)

	mux.HandleFunc("POST /api/mute", s.handleMute)
	mux.HandleFunc("POST /api/play", s.handlePlay)
	mux.HandleFunc("POST /api/say", s.handleSay)
	mux.HandleFunc("POST /api/hangup", s.handleHangup)
	mux.HandleFunc("GET /api/health", s.handleCallStatus)
	mux.HandleFunc("GET /api/voices", s.handleVoices)

	s.probes.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withMetrics(mux)
}

// Run serves until ctx is cancelled, then drains gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("http server listening", "addr", s.listenAddr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// setPending stores the answer handle for the next media connection.
func (s *Server) setPending(h callctl.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &h
}

// takePending returns and clears the stored answer handle, if any.
func (s *Server) takePending() (callctl.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return callctl.Handle{}, false
	}
	h := *s.pending
	s.pending = nil
	return h, true
}
