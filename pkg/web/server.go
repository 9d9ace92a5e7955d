// Package web provides the real-time turn-taking dashboard.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-floor/pkg/fsm"
	"github.com/teslashibe/go-floor/pkg/hub"
	"github.com/teslashibe/go-floor/pkg/observation"
	"github.com/teslashibe/go-floor/pkg/protocol"
	"github.com/teslashibe/go-floor/pkg/turn"
)

// maxTransitions bounds the transition log
const maxTransitions = 500

// Controller is what the dashboard needs from a turn controller.
type Controller interface {
	Last() turn.Snapshot
	QueueAction()
	EndAction()
	Machine() *fsm.Machine[observation.Vector]
}

// TransitionEntry is one state change in the dashboard log
type TransitionEntry struct {
	Time string `json:"time"`
	Tick uint64 `json:"tick"`
	From string `json:"from"`
	To   string `json:"to"`
	Rule string `json:"rule"`
}

// Config configures a Server
type Config struct {
	Port int

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	port   int
	ctl    Controller
	logger *slog.Logger

	// Transition log (last maxTransitions entries)
	transitions   []TransitionEntry
	transitionsMu sync.RWMutex

	// Hub for websocket broadcast
	statusHub *hub.Hub
}

// NewServer creates a new web dashboard server
func NewServer(ctl Controller, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		port:        cfg.Port,
		ctl:         ctl,
		logger:      cfg.Logger.With("component", "web"),
		transitions: make([]TransitionEntry, 0, maxTransitions),
	}
	s.statusHub = hub.New("status", hub.WithLogger(s.logger), hub.WithHandler(s.handleInbound))

	app := fiber.New(fiber.Config{
		AppName:               "Floor Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	// CORS for local development
	app.Use(cors.New())

	app.Get("/healthz", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/graph", s.handleGraph)
	api.Get("/graph.dot", s.handleGraphDOT)
	api.Get("/transitions", s.handleTransitions)
	api.Post("/queue", s.handleQueue)
	api.Post("/end", s.handleEnd)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the fiber app, for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve runs the hub and serves on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.statusHub.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			s.logger.Warn("dashboard shutdown", "error", err)
		}
	}()

	s.logger.Info("web dashboard listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Start listens on the configured port and serves until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("web: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Publish implements turn.Sink: it broadcasts every snapshot and logs
// state changes.
func (s *Server) Publish(snap turn.Snapshot) {
	if msg, err := protocol.NewSnapshotMessage(snapshotData(snap)); err == nil {
		s.broadcast(msg)
	}
	if !snap.Changed {
		return
	}

	s.transitionsMu.Lock()
	s.transitions = append(s.transitions, TransitionEntry{
		Time: snap.At.Format("15:04:05.000"),
		Tick: snap.Tick,
		From: snap.Previous,
		To:   snap.State,
		Rule: snap.Transition,
	})
	if len(s.transitions) > maxTransitions {
		s.transitions = s.transitions[1:]
	}
	s.transitionsMu.Unlock()

	if msg, err := protocol.NewTransitionMessage(snap.Tick, snap.Previous, snap.State, snap.Transition, snap.At); err == nil {
		s.broadcast(msg)
	}
}

func (s *Server) broadcast(msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		s.logger.Warn("encode dashboard message", "type", msg.Type, "error", err)
		return
	}
	s.statusHub.Broadcast(hub.NewJSONMessage(data))
}

// StatusHub returns the status hub for external use
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func snapshotData(snap turn.Snapshot) protocol.SnapshotData {
	return protocol.SnapshotData{
		ControllerID:  snap.ControllerID,
		Variant:       snap.Variant,
		Tick:          snap.Tick,
		At:            snap.At.UnixMilli(),
		State:         snap.State,
		Previous:      snap.Previous,
		Transition:    snap.Transition,
		Changed:       snap.Changed,
		Vector:        snap.Vector.Slice(),
		Channels:      snap.Channels,
		ActionQueued:  snap.ActionQueued,
		ActionRunning: snap.ActionRunning,
	}
}
