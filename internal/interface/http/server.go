package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bizhub-io/gamification-engine/internal/application/command"
	"github.com/bizhub-io/gamification-engine/internal/application/query"
)

// API bundles the command and query handlers behind the REST routes.
type API struct {
	recordAction      *command.RecordActionHandler
	evaluate          *command.EvaluateHandler
	initializeCatalog *command.InitializeCatalogHandler

	getDashboard    *query.GetDashboardHandler
	getAchievements *query.GetAchievementsHandler
	getLeaderboard  *query.GetLeaderboardHandler
	getProgress     *query.GetProgressHandler
	nextMilestones  *query.NextMilestonesHandler

	// eagerEvaluation runs an evaluation pass on the request path after an
	// action is recorded, so the response carries the newly earned
	// achievements. When evaluation is event-driven instead, the response
	// carries an empty earned list and the bus subscriber does the work.
	eagerEvaluation bool

	logger *slog.Logger
}

// NewAPI creates a new API.
func NewAPI(
	recordAction *command.RecordActionHandler,
	evaluate *command.EvaluateHandler,
	initializeCatalog *command.InitializeCatalogHandler,
	getDashboard *query.GetDashboardHandler,
	getAchievements *query.GetAchievementsHandler,
	getLeaderboard *query.GetLeaderboardHandler,
	getProgress *query.GetProgressHandler,
	nextMilestones *query.NextMilestonesHandler,
	eagerEvaluation bool,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		recordAction:      recordAction,
		evaluate:          evaluate,
		initializeCatalog: initializeCatalog,
		getDashboard:      getDashboard,
		getAchievements:   getAchievements,
		getLeaderboard:    getLeaderboard,
		getProgress:       getProgress,
		nextMilestones:    nextMilestones,
		eagerEvaluation:   eagerEvaluation,
		logger:            logger,
	}
}

// Router builds the chi route tree.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(a.loggingMiddleware)

	r.Get("/health", a.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/dashboard", a.handleGetDashboard)

		r.Route("/progress", func(r chi.Router) {
			r.Get("/", a.handleGetProgress)
			r.Post("/", a.handleUpdateProgress)
		})

		r.Route("/achievements", func(r chi.Router) {
			r.Get("/", a.handleGetAchievements)
			r.Post("/check", a.handleCheckAchievements)
			r.Post("/initialize", a.handleInitializeAchievements)
		})

		r.Get("/leaderboard", a.handleGetLeaderboard)
		r.Get("/milestones", a.handleGetMilestones)
	})

	return r
}

// loggingMiddleware logs one line per request.
func (a *API) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		a.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Server wraps http.Server with graceful shutdown.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a Server listening on addr.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}
