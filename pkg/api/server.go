// Package api implements the public HTTP/SSE surface (spec §6.2): session
// lifecycle, ad hoc keyword execution, the live event stream, and the
// keyword catalog.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/optics-run/optics/pkg/auditstore"
	"github.com/optics-run/optics/pkg/backend"
	"github.com/optics-run/optics/pkg/config"
	"github.com/optics-run/optics/pkg/keywords"
	"github.com/optics-run/optics/pkg/report"
	"github.com/optics-run/optics/pkg/scheduler"
	"github.com/optics-run/optics/pkg/session"
	"github.com/optics-run/optics/pkg/version"
)

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	globalConfig *config.GlobalConfig
	manager      *session.Manager
	scheduler    *scheduler.Scheduler
	keywords     *keywords.Registry
	factories    *backend.FactoryRegistry
	auditClient  *auditstore.Client // nil disables audit persistence and the DB health check
	auditStore   *auditstore.Store  // nil when auditClient is nil
	outputDir    string

	reportsMu sync.Mutex
	reports   map[string]*report.Writer // sessionID -> its JUnit writer, when report_enabled
}

// NewServer creates a new API server with Echo v5, wired against the
// process-wide session manager, scheduler, keyword registry and backend
// factory registry. auditClient and outputDir may be left nil/empty:
// audit persistence and per-session output directories are both optional.
func NewServer(
	cfg *config.GlobalConfig,
	manager *session.Manager,
	sched *scheduler.Scheduler,
	kwReg *keywords.Registry,
	factories *backend.FactoryRegistry,
	auditClient *auditstore.Client,
	outputDir string,
) *Server {
	s := &Server{
		echo:         echo.New(),
		globalConfig: cfg,
		manager:      manager,
		scheduler:    sched,
		keywords:     kwReg,
		factories:    factories,
		auditClient:  auditClient,
		outputDir:    outputDir,
		reports:      make(map[string]*report.Writer),
	}
	if auditClient != nil {
		s.auditStore = auditstore.NewStore(auditClient)
	}
	s.setupRoutes()
	return s
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	// Server-wide body size limit (2 MB): a suite config or action body
	// should never approach this; rejects oversized payloads at the HTTP
	// read level.
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/", s.healthHandler)

	v1 := s.echo.Group("/v1")
	v1.GET("/keywords", s.listKeywordsHandler)

	v1.POST("/sessions/start", s.startSessionHandler)
	v1.POST("/sessions/:id/action", s.actionHandler)
	v1.GET("/sessions/:id/events", s.eventsHandler)
	v1.DELETE("/sessions/:id/stop", s.stopSessionHandler)

	v1.GET("/sessions/:id/screenshot", s.screenshotHandler)
	v1.GET("/sessions/:id/source", s.sourceHandler)
	v1.GET("/sessions/:id/elements", s.elementsHandler)
	v1.GET("/sessions/:id/screen_elements", s.screenElementsHandler)
	v1.GET("/sessions/:id/driver-id", s.driverIDHandler)
}

// Start starts the HTTP server on the given address (non-blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener.
// Used by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// registerReport creates and subscribes a JUnit writer for sess, keyed by
// its id so closeReport can later render and persist it. No-op if w is nil
// (report_enabled was false or the session has no output directory).
func (s *Server) registerReport(sess *session.Session, w *report.Writer) {
	if w == nil {
		return
	}
	sess.Bus.Subscribe("report", w)
	s.reportsMu.Lock()
	s.reports[sess.ID()] = w
	s.reportsMu.Unlock()
}

// closeReport renders and persists sessionID's JUnit report, if one was
// registered, logging rather than failing the caller on a write error.
func (s *Server) closeReport(sessionID string) {
	s.reportsMu.Lock()
	w, ok := s.reports[sessionID]
	delete(s.reports, sessionID)
	s.reportsMu.Unlock()
	if !ok {
		return
	}
	if err := w.Close(); err != nil {
		slog.Warn("report: failed to persist session report", "session_id", sessionID, "error", err)
	}
}

// healthHandler handles GET /.
func (s *Server) healthHandler(c *echo.Context) error {
	status := "healthy"
	var checks map[string]HealthCheck

	if s.auditClient != nil {
		reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		checks = make(map[string]HealthCheck)
		if _, err := auditstore.Health(reqCtx, s.auditClient.DB()); err != nil {
			status = "unhealthy"
			checks["audit_store"] = HealthCheck{Status: "unhealthy", Message: err.Error()}
		} else {
			checks["audit_store"] = HealthCheck{Status: "healthy"}
		}
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, &HealthResponse{
		Status:  status,
		Version: version.Full(),
		Checks:  checks,
	})
}
