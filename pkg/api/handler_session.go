package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/optics-run/optics/pkg/backend"
	"github.com/optics-run/optics/pkg/config"
	"github.com/optics-run/optics/pkg/report"
	"github.com/optics-run/optics/pkg/session"
)

// sessionFromPath resolves the :id path parameter to its live Session,
// mapping an unknown id to mapError's 404 path.
func (s *Server) sessionFromPath(c *echo.Context) (*session.Session, error) {
	return s.manager.Get(c.Param("id"))
}

// startSessionHandler handles POST /v1/sessions/start.
func (s *Server) startSessionHandler(c *echo.Context) error {
	var req StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session config: "+err.Error())
	}

	resolved := req
	if s.globalConfig != nil {
		resolved = s.globalConfig.Resolve(req)
	}

	registry, err := s.factories.Build(map[backend.Capability][]backend.InstanceConfig{
		backend.CapabilityDrive:         toInstanceConfigs(resolved.DriverSources, backend.CapabilityDrive),
		backend.CapabilityElementSource: toInstanceConfigs(resolved.ElementSources, backend.CapabilityElementSource),
		backend.CapabilityTextDetect:    toInstanceConfigs(resolved.TextSources, backend.CapabilityTextDetect),
		backend.CapabilityImageDetect:   toInstanceConfigs(resolved.ImageSources, backend.CapabilityImageDetect),
	})
	if err != nil {
		return mapError(err)
	}

	bridge := backend.NewBridge()
	sess := s.manager.Create(registry, bridge)
	sess.SetDryRun(resolved.DryRun)

	if s.auditStore != nil {
		bound := s.auditStore.ForSession(sess.ID())
		sess.Bus.Subscribe("auditstore", bound)
		if err := bound.RecordSession(c.Request().Context(), sess.ID(), string(sess.Status()), sess.DryRun(), sess.CreatedAt(), sess.CreatedAt()); err != nil {
			slog.Warn("auditstore: failed to record new session", "session_id", sess.ID(), "error", err)
		}
	}

	if resolved.ReportEnabled != nil && *resolved.ReportEnabled && resolved.OutputDir != "" {
		sessionDir := filepath.Join(resolved.OutputDir, sess.ID())
		if err := os.MkdirAll(sessionDir, 0o755); err != nil {
			slog.Warn("report: failed to create session output directory", "session_id", sess.ID(), "error", err)
		} else {
			reportPath := filepath.Join(sessionDir, "junit_output_"+sess.ID()+".xml")
			redactor := resolved.Masking.BuildRedactor()
			s.registerReport(sess, report.New(sess.ID(), reportPath, redactor))
		}
	}

	var driverID string
	if drv, ok := registry.PrimaryDriver(); ok {
		startCtx, cancel := context.WithTimeout(c.Request().Context(), backend.DefaultTimeout)
		defer cancel()
		if err := drv.Start(startCtx); err != nil {
			_ = sess.SetStatus(session.StatusError)
			return mapError(err)
		}
		driverID = drv.ID()
	}

	return c.JSON(http.StatusOK, &StartSessionResponse{
		SessionID: sess.ID(),
		DriverID:  driverID,
		Status:    sess.Status(),
	})
}

// toInstanceConfigs adapts a resolved backend source list into the
// capability-tagged InstanceConfig list backend.FactoryRegistry.Build
// expects; which source list an entry came from implies its capability.
func toInstanceConfigs(sources []config.BackendSourceConfig, cap backend.Capability) []backend.InstanceConfig {
	out := make([]backend.InstanceConfig, 0, len(sources))
	for _, src := range sources {
		out = append(out, backend.InstanceConfig{
			Name:         src.Name,
			Enabled:      src.Enabled,
			URL:          src.URL,
			Capabilities: map[backend.Capability]bool{cap: true},
		})
	}
	return out
}

// actionHandler handles POST /v1/sessions/{id}/action.
func (s *Server) actionHandler(c *echo.Context) error {
	sess, err := s.sessionFromPath(c)
	if err != nil {
		return mapError(err)
	}

	var req ActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid action request: "+err.Error())
	}

	return s.invokeKeyword(c, sess, req.Keyword, req.Params)
}

// invokeKeyword resolves and calls a single keyword directly against a
// session's element store, bypassing the scheduler's tree-walking and
// overall pass/fail bookkeeping: an ad hoc API call is one keyword, not a
// suite run, and must not move the session into a terminal status.
func (s *Server) invokeKeyword(c *echo.Context, sess *session.Session, name string, params []string) error {
	kw, err := s.keywords.Lookup(name)
	if err != nil {
		return mapError(err)
	}

	args := make([]string, len(params))
	for i, p := range params {
		if kw.IsRaw(i) {
			args[i] = p
			continue
		}
		resolved, err := sess.Store.ResolveScalar(p)
		if err != nil {
			return mapError(err)
		}
		args[i] = resolved
	}

	executionID := uuid.New().String()
	s.publishExecution(sess, executionID, kw.Name, "RUNNING", "")

	var result any
	if sess.DryRun() {
		result = "dry-run"
	} else {
		result, err = kw.Func(c.Request().Context(), args)
	}
	if err != nil {
		s.publishExecution(sess, executionID, kw.Name, "FAIL", err.Error())
		return mapError(err)
	}

	s.publishExecution(sess, executionID, kw.Name, "PASS", "")
	return c.JSON(http.StatusOK, &ActionResponse{
		ExecutionID: executionID,
		Status:      "PASS",
		Data:        result,
	})
}

// stopSessionHandler handles DELETE /v1/sessions/{id}/stop.
func (s *Server) stopSessionHandler(c *echo.Context) error {
	id := c.Param("id")
	sess, err := s.manager.Get(id)
	if err != nil {
		return mapError(err)
	}

	if kw, lookupErr := s.keywords.Lookup("close_and_terminate_app"); lookupErr == nil {
		if _, err := kw.Func(c.Request().Context(), nil); err != nil {
			slog.Warn("close_and_terminate_app failed during session stop", "session_id", id, "error", err)
		}
	}

	if err := s.manager.Terminate(c.Request().Context(), id); err != nil {
		return mapError(err)
	}
	s.closeReport(id)

	return c.JSON(http.StatusOK, &StopSessionResponse{
		SessionID: id,
		Status:    sess.Status(),
	})
}
