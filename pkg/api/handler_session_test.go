package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optics-run/optics/pkg/backend"
	"github.com/optics-run/optics/pkg/keywords"
	"github.com/optics-run/optics/pkg/scheduler"
	"github.com/optics-run/optics/pkg/session"
)

func newTestServerWithKeywords(t *testing.T, kws ...keywords.Keyword) (*Server, *session.Manager) {
	t.Helper()
	reg := keywords.NewRegistry()
	for _, kw := range kws {
		require.NoError(t, reg.Register(kw))
	}
	mgr := session.NewManager()
	s := NewServer(nil, mgr, scheduler.New(reg), reg, backend.NewFactoryRegistry(), nil, "")
	return s, mgr
}

func TestActionHandlerInvokesKeyword(t *testing.T) {
	s, mgr := newTestServerWithKeywords(t, keywords.Keyword{
		Name: "echo_param",
		Func: func(ctx context.Context, args []string) (any, error) {
			return "got:" + args[0], nil
		},
		Arity: 1,
	})
	sess := mgr.Create(backend.NewRegistry(), nil)

	body, err := json.Marshal(ActionRequest{Mode: "keyword", Keyword: "echo_param", Params: []string{"hello"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sess.ID()+"/action", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ActionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PASS", resp.Status)
	assert.Equal(t, "got:hello", resp.Data)
}

func TestActionHandlerUnknownKeywordMapsToStructuredError(t *testing.T) {
	s, mgr := newTestServerWithKeywords(t)
	sess := mgr.Create(backend.NewRegistry(), nil)

	body, err := json.Marshal(ActionRequest{Mode: "keyword", Keyword: "nope"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sess.ID()+"/action", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "E0402")
}

func TestStopSessionHandlerInvokesCloseKeywordAndTerminates(t *testing.T) {
	closed := false
	s, mgr := newTestServerWithKeywords(t, keywords.Keyword{
		Name: "close_and_terminate_app",
		Func: func(ctx context.Context, args []string) (any, error) {
			closed = true
			return nil, nil
		},
	})
	sess := mgr.Create(backend.NewRegistry(), nil)

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+sess.ID()+"/stop", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, closed)
	assert.Equal(t, session.StatusTerminated, sess.Status())
}

func TestDriverIDHandlerReportsNotFoundWithoutDriver(t *testing.T) {
	s, mgr := newTestServerWithKeywords(t)
	sess := mgr.Create(backend.NewRegistry(), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sess.ID()+"/driver-id", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
