package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optics-run/optics/pkg/backend"
	"github.com/optics-run/optics/pkg/config"
	"github.com/optics-run/optics/pkg/keywords"
	"github.com/optics-run/optics/pkg/scheduler"
	"github.com/optics-run/optics/pkg/session"
)

func TestStartSessionWritesJUnitReportOnStop(t *testing.T) {
	reg := keywords.NewRegistry()
	require.NoError(t, reg.Register(keywords.Keyword{
		Name: "close_and_terminate_app",
		Func: func(ctx context.Context, args []string) (any, error) { return nil, nil },
	}))
	mgr := session.NewManager()
	s := NewServer(nil, mgr, scheduler.New(reg), reg, backend.NewFactoryRegistry(), nil, "")

	outputDir := t.TempDir()
	reportEnabled := true
	body, err := json.Marshal(config.SessionConfig{OutputDir: outputDir, ReportEnabled: &reportEnabled})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/start", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var started StartSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	s.reportsMu.Lock()
	_, tracked := s.reports[started.SessionID]
	s.reportsMu.Unlock()
	assert.True(t, tracked, "expected a report writer to be registered for the started session")

	stopReq := httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+started.SessionID+"/stop", nil)
	stopRec := httptest.NewRecorder()
	s.echo.ServeHTTP(stopRec, stopReq)
	require.Equal(t, http.StatusOK, stopRec.Code)

	reportPath := filepath.Join(outputDir, started.SessionID, "junit_output_"+started.SessionID+".xml")
	contents, err := os.ReadFile(reportPath)
	require.NoError(t, err, "expected report file to be written on stop")
	assert.Contains(t, string(contents), "<testsuites")

	s.reportsMu.Lock()
	_, stillTracked := s.reports[started.SessionID]
	s.reportsMu.Unlock()
	assert.False(t, stillTracked, "expected report writer to be removed after close")
}

func TestStartSessionSkipsReportWhenDisabled(t *testing.T) {
	mgr := session.NewManager()
	s := NewServer(nil, mgr, scheduler.New(keywords.NewRegistry()), keywords.NewRegistry(), backend.NewFactoryRegistry(), nil, "")

	body, err := json.Marshal(config.SessionConfig{OutputDir: t.TempDir()})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/start", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var started StartSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	s.reportsMu.Lock()
	_, tracked := s.reports[started.SessionID]
	s.reportsMu.Unlock()
	assert.False(t, tracked, "report_enabled was not set, so no writer should be registered")
}
