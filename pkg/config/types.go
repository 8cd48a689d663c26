package config

import (
	"encoding/json"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// BackendSourceConfig is the declared configuration record for one backend
// instance, per spec: "{name, enabled, url?, capabilities-map}". Which of
// the four source lists (driver_sources, elements_sources, text_sources,
// image_sources) an entry appears in implies its capability.
type BackendSourceConfig struct {
	Name    string            `yaml:"name" json:"name"`
	Enabled bool              `yaml:"enabled" json:"enabled"`
	URL     string            `yaml:"url,omitempty" json:"url,omitempty"`
	Timeout int               `yaml:"timeout,omitempty" json:"timeout,omitempty"` // seconds
	Options map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
}

// MaskingConfig selects which pattern groups and individual patterns apply
// to a session's reported keyword arguments and log text.
type MaskingConfig struct {
	Enabled        bool             `yaml:"enabled" json:"enabled"`
	PatternGroups  []string         `yaml:"pattern_groups,omitempty" json:"pattern_groups,omitempty"`
	Patterns       []string         `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	CustomPatterns []MaskingPattern `yaml:"custom_patterns,omitempty" json:"custom_patterns,omitempty"`
}

// MaskingPattern defines a regex-based masking pattern.
type MaskingPattern struct {
	Pattern     string `yaml:"pattern" json:"pattern" validate:"required"`
	Replacement string `yaml:"replacement" json:"replacement" validate:"required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// SessionConfig is the per-run configuration: the four ordered backend
// source lists, the project path, and overrides resolved against the
// GlobalConfig. This is both what a YAML config suite file parses into
// (spec §6.1: "a YAML with driver_sources and elements_sources keys is a
// config file") and the body of POST /v1/sessions/start.
type SessionConfig struct {
	ProjectPath   string                `yaml:"project_path,omitempty" json:"project_path,omitempty"`
	OutputDir     string                `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`
	DriverSources []BackendSourceConfig `yaml:"driver_sources,omitempty" json:"driver_sources,omitempty"`
	TextSources   []BackendSourceConfig `yaml:"text_sources,omitempty" json:"text_sources,omitempty"`
	ImageSources  []BackendSourceConfig `yaml:"image_sources,omitempty" json:"image_sources,omitempty"`
	Masking       *MaskingConfig        `yaml:"masking,omitempty" json:"masking,omitempty"`
	ReportEnabled *bool                 `yaml:"report_enabled,omitempty" json:"report_enabled,omitempty"`
	DryRun        bool                  `yaml:"dry_run,omitempty" json:"dry_run,omitempty"`

	// ElementSources holds the resolved value of whichever of
	// element_sources / elements_sources the input declared (spec §9 OQ2).
	ElementSources []BackendSourceConfig `yaml:"-" json:"-"`
}

// rawSessionConfig mirrors SessionConfig for decoding, carrying both
// spellings of the element-sources key so the synonym can be normalized.
type rawSessionConfig struct {
	ProjectPath     string                `yaml:"project_path,omitempty" json:"project_path,omitempty"`
	OutputDir       string                `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`
	DriverSources   []BackendSourceConfig `yaml:"driver_sources,omitempty" json:"driver_sources,omitempty"`
	ElementSourcesA []BackendSourceConfig `yaml:"element_sources,omitempty" json:"element_sources,omitempty"`
	ElementSourcesB []BackendSourceConfig `yaml:"elements_sources,omitempty" json:"elements_sources,omitempty"`
	TextSources     []BackendSourceConfig `yaml:"text_sources,omitempty" json:"text_sources,omitempty"`
	ImageSources    []BackendSourceConfig `yaml:"image_sources,omitempty" json:"image_sources,omitempty"`
	Masking         *MaskingConfig        `yaml:"masking,omitempty" json:"masking,omitempty"`
	ReportEnabled   *bool                 `yaml:"report_enabled,omitempty" json:"report_enabled,omitempty"`
	DryRun          bool                  `yaml:"dry_run,omitempty" json:"dry_run,omitempty"`
}

func (s *SessionConfig) adoptRaw(raw rawSessionConfig) {
	s.ProjectPath = raw.ProjectPath
	s.OutputDir = raw.OutputDir
	s.DriverSources = raw.DriverSources
	s.TextSources = raw.TextSources
	s.ImageSources = raw.ImageSources
	s.Masking = raw.Masking
	s.ReportEnabled = raw.ReportEnabled
	s.DryRun = raw.DryRun

	switch {
	case len(raw.ElementSourcesA) > 0 && len(raw.ElementSourcesB) > 0:
		slog.Warn("config: both element_sources and elements_sources set, preferring element_sources")
		s.ElementSources = raw.ElementSourcesA
	case len(raw.ElementSourcesA) > 0:
		s.ElementSources = raw.ElementSourcesA
	default:
		s.ElementSources = raw.ElementSourcesB
	}
}

// UnmarshalYAML resolves the element_sources/elements_sources synonym
// (spec §9 OQ2) into a single ElementSources field, preferring
// element_sources when both are present.
func (s *SessionConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw rawSessionConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.adoptRaw(raw)
	return nil
}

// UnmarshalJSON applies the same element-sources synonym resolution to a
// POST /v1/sessions/start JSON body.
func (s *SessionConfig) UnmarshalJSON(data []byte) error {
	var raw rawSessionConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.adoptRaw(raw)
	return nil
}
