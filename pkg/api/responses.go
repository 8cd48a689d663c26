package api

import "github.com/optics-run/optics/pkg/session"

// StartSessionResponse is returned by POST /v1/sessions/start.
type StartSessionResponse struct {
	SessionID string         `json:"session_id"`
	DriverID  string         `json:"driver_id,omitempty"`
	Status    session.Status `json:"status"`
}

// ActionResponse is returned by POST /v1/sessions/{id}/action and by the
// convenience GET endpoints that wrap a single fixed keyword call.
type ActionResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
	Data        any    `json:"data,omitempty"`
}

// StopSessionResponse is returned by DELETE /v1/sessions/{id}/stop.
type StopSessionResponse struct {
	SessionID string         `json:"session_id"`
	Status    session.Status `json:"status"`
}

// KeywordMeta describes one registered keyword's invocation shape for
// GET /v1/keywords.
type KeywordMeta struct {
	Name      string `json:"name"`
	Arity     int    `json:"arity"`
	RawParams []int  `json:"raw_params,omitempty"`
}

// HealthResponse is returned by GET /.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks,omitempty"`
}

// HealthCheck represents the status of a single health check component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorPayload is the structured error body returned for keyword
// execution failures (spec §6.2: "errors return the structured error
// payload"), mirroring opticserr.Error's fields.
type ErrorPayload struct {
	Code      string         `json:"code"`
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// HeartbeatEvent is the SSE frame sent every 15s on an idle events
// stream (spec §6.2).
type HeartbeatEvent struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}
