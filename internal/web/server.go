// ABOUTME: HTTP server wiring channel pages, the create-channel flow, admin screens and permission endpoints.
// ABOUTME: Every page mounts a per-viewer permission evaluator and renders through gates and the plugin dispatcher.

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/2389/teamhub/internal/auth"
	"github.com/2389/teamhub/internal/logging"
	"github.com/2389/teamhub/internal/metrics"
	"github.com/2389/teamhub/internal/rbac"
	"github.com/2389/teamhub/internal/sessions"
	"github.com/2389/teamhub/internal/store"
	"github.com/2389/teamhub/plugins/core"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Backend is the part of the backend client the server needs
type Backend interface {
	SnapshotFetcher(token string) rbac.Fetcher
	GetChannel(ctx context.Context, token, serverID, channelID string) (core.Channel, error)
	CreateChannel(ctx context.Context, token, serverID string, req core.CreateRequest) (core.Channel, error)
	ListRoles(ctx context.Context, token, serverID string) ([]rbac.Role, error)
	ListMembers(ctx context.Context, token, serverID string) ([]rbac.Member, error)
	AssignRoles(ctx context.Context, token, serverID, memberID string, roleIDs []string) (rbac.Member, error)
}

// Options configures a Server
type Options struct {
	Registry *core.Registry
	Backend  Backend
	Sessions *sessions.Store
	Metrics  *metrics.Metrics
	Store    *store.Store // optional request and fetch log persistence
	Logger   *logrus.Logger

	// SnapshotWait bounds how long a page render waits for the permission
	// snapshot before rendering loading placeholders
	SnapshotWait time.Duration

	// SnapshotAge is how long a settled snapshot is reused by page renders
	// before they start a new fetch. Zero means DefaultSnapshotAge.
	SnapshotAge time.Duration
}

// DefaultSnapshotAge is the snapshot reuse window when none is configured
const DefaultSnapshotAge = 10 * time.Second

// Server serves the teamhub web surface
type Server struct {
	registry     *core.Registry
	dispatcher   *core.Dispatcher
	backend      Backend
	sessions     *sessions.Store
	metrics      *metrics.Metrics
	store        *store.Store
	log          *logrus.Logger
	snapshotWait time.Duration
	snapshotAge  time.Duration
}

// New creates a server. Registry and Backend are required.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	sess := opts.Sessions
	if sess == nil {
		sess = sessions.New(sessions.DefaultSize, sessions.DefaultTTL, log)
	}

	s := &Server{
		registry:     opts.Registry,
		backend:      opts.Backend,
		sessions:     sess,
		metrics:      opts.Metrics,
		store:        opts.Store,
		log:          log,
		snapshotWait: opts.SnapshotWait,
		snapshotAge:  opts.SnapshotAge,
	}
	if s.snapshotAge <= 0 {
		s.snapshotAge = DefaultSnapshotAge
	}
	s.dispatcher = core.NewDispatcher(opts.Registry, s.observeFallback)
	return s
}

func (s *Server) observeFallback(t core.ChannelType) {
	s.log.WithField("channel_type", string(t)).Info("no plugin registered for channel type")
	if s.metrics != nil {
		s.metrics.ObserveFallback(t)
	}
}

// Handler returns the router with all middleware and routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(metrics.HTTPMetricsMiddleware(s.metrics))
	}
	r.Use(auth.Middleware)
	var rec logging.Recorder
	if s.store != nil {
		rec = s.store
	}
	r.Use(logging.Middleware(rec, s.log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel_types": s.registry.Len()})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/channel-types", s.channelTypes)

	r.Route("/servers/{serverID}", func(r chi.Router) {
		r.Use(auth.RequireViewer)

		r.Get("/channels/new", s.newChannel)
		r.Post("/channels", s.createChannel)
		r.Get("/channels/{channelID}", s.channelPage)
		r.Get("/channels/{channelID}/settings", s.channelSettings)

		r.Get("/admin/roles", s.adminRoles)
		r.Get("/admin/members", s.adminMembers)
		r.Post("/admin/members/{memberID}/roles", s.assignRoles)

		r.Get("/permissions", s.permissions)
		r.Post("/permissions/refresh", s.refreshPermissions)
		r.Get("/gates/{kind}", s.gatePoll)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
