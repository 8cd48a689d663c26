package api

import "github.com/optics-run/optics/pkg/config"

// StartSessionRequest is the body of POST /v1/sessions/start: a session
// config (driver/element/text/image source lists, project path) plus
// the dry-run flag. SessionConfig's custom UnmarshalJSON resolves the
// element_sources/elements_sources synonym before this type ever sees it.
type StartSessionRequest = config.SessionConfig

// ActionRequest is the body of POST /v1/sessions/{id}/action.
type ActionRequest struct {
	Mode    string   `json:"mode"`
	Keyword string   `json:"keyword"`
	Params  []string `json:"params,omitempty"`
}
