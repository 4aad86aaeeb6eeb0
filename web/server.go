package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dagwatch/dagwatch/core"
	"github.com/dagwatch/dagwatch/notify"
)

// Store is the persistence surface the REST façade needs. The store
// package's Store satisfies it.
type Store interface {
	core.ConfigStore
	core.RunStore

	ListConfigs(ctx context.Context) ([]*core.JobConfig, error)
	ListConfigsByApp(ctx context.Context, appName string) ([]*core.JobConfig, error)
	ListAppNames(ctx context.Context) ([]string, error)
	InsertConfig(ctx context.Context, cfg *core.JobConfig) (*core.JobConfig, error)

	RecentRuns(ctx context.Context, limit int) ([]*core.JobRun, error)

	ChannelByName(ctx context.Context, name string) (*core.Channel, error)
	ListChannels(ctx context.Context) ([]*core.Channel, error)
	InsertChannel(ctx context.Context, ch *core.Channel) (*core.Channel, error)
	UpdateChannel(ctx context.Context, ch *core.Channel) (*core.Channel, error)

	GetSettings(ctx context.Context) (core.Settings, error)
	SaveSettings(ctx context.Context, in core.Settings) (core.Settings, error)
}

// Server is the REST façade.
type Server struct {
	store      Store
	dispatcher *notify.Dispatcher
	ingestor   *core.Ingestor
	settings   *core.SettingsCache
	logger     core.Logger
	clock      core.Clock
	validate   *validator.Validate
	srv        *http.Server
}

func NewServer(
	addr string,
	st Store,
	dispatcher *notify.Dispatcher,
	ingestor *core.Ingestor,
	settings *core.SettingsCache,
	logger core.Logger,
	clock core.Clock,
) *Server {
	s := &Server{
		store:      st,
		dispatcher: dispatcher,
		ingestor:   ingestor,
		settings:   settings,
		logger:     logger,
		clock:      clock,
		validate:   newValidator(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.healthHandler)
	mux.HandleFunc("GET /api/applications", s.listApplicationsHandler)

	mux.HandleFunc("GET /api/channels", s.listChannelsHandler)
	mux.HandleFunc("POST /api/channels", s.createChannelHandler)
	mux.HandleFunc("GET /api/channels/providers", s.listProvidersHandler)
	mux.HandleFunc("GET /api/channels/{name}", s.getChannelHandler)
	mux.HandleFunc("PUT /api/channels/{name}", s.updateChannelHandler)

	mux.HandleFunc("GET /api/job-configs", s.listConfigsHandler)
	mux.HandleFunc("POST /api/job-configs", s.createConfigHandler)
	mux.HandleFunc("GET /api/job-configs/{app}", s.listConfigsByAppHandler)
	mux.HandleFunc("GET /api/job-configs/{app}/{job}", s.getConfigHandler)
	mux.HandleFunc("PUT /api/job-configs/{app}/{job}", s.updateConfigHandler)

	mux.HandleFunc("POST /api/applications/{app}/jobs/{job}/trigger", s.triggerJobHandler)
	mux.HandleFunc("POST /api/applications/{app}/jobs/{job}/stage-update", s.stageUpdateByContextHandler)

	mux.HandleFunc("GET /api/job-runs", s.listRunsHandler)
	mux.HandleFunc("GET /api/job-runs/{run_id}", s.getRunHandler)
	mux.HandleFunc("POST /api/job-runs/{run_id}/stage-update", s.stageUpdateByIDHandler)

	mux.HandleFunc("GET /api/settings", s.getSettingsHandler)
	mux.HandleFunc("PUT /api/settings", s.updateSettingsHandler)

	rl := newRateLimiter(100, 20)
	var handler http.Handler = mux
	handler = securityHeaders(handler)
	handler = rl.middleware(handler)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	s.logger.Noticef("web server listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decode parses and validates a JSON request body. On failure it writes
// the response itself and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, core.BadRequestf("invalid request body: %v", err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeFailReasons(w, validationReasons(err))
		return false
	}
	return true
}
