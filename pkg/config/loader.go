package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const globalConfigFileName = "global_config.yaml"

// globalYAMLConfig mirrors global_config.yaml's on-disk shape.
type globalYAMLConfig struct {
	Defaults  *Defaults      `yaml:"defaults"`
	Queue     *QueueConfig   `yaml:"queue"`
	Retention *RetentionConfig `yaml:"retention"`
	API       *APIConfig     `yaml:"api"`
	Audit     *AuditConfig   `yaml:"audit"`

	DriverSources  []BackendSourceConfig `yaml:"driver_sources"`
	ElementSources []BackendSourceConfig `yaml:"element_sources"`
	TextSources    []BackendSourceConfig `yaml:"text_sources"`
	ImageSources   []BackendSourceConfig `yaml:"image_sources"`
}

// Initialize loads, validates, and returns ready-to-use global
// configuration. configDir is typically "~/.optics"; the file is
// auto-created with built-in defaults if missing (spec §6.4).
func Initialize(ctx context.Context, configDir string) (*GlobalConfig, error) {
	log := slog.With("config_dir", configDir)

	if err := ensureGlobalConfigFile(configDir); err != nil {
		return nil, NewLoadError(globalConfigFileName, err)
	}

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("configuration initialized",
		"driver_sources", len(cfg.DefaultDriverSources),
		"element_sources", len(cfg.DefaultElementSources))
	return cfg, nil
}

// ensureGlobalConfigFile writes a minimal default config file if
// configDir/global_config.yaml does not already exist.
func ensureGlobalConfigFile(configDir string) error {
	path := filepath.Join(configDir, globalConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	builtin := GetBuiltinConfig()
	doc := globalYAMLConfig{
		Defaults:  builtin.Defaults,
		Queue:     builtin.Queue,
		Retention: builtin.Retention,
		API:       &APIConfig{Host: "127.0.0.1", Port: 8765},
		Audit:     &AuditConfig{Enabled: false},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	slog.Info("config: auto-creating default global config", "path", path)
	return os.WriteFile(path, out, 0o644)
}

func load(_ context.Context, configDir string) (*GlobalConfig, error) {
	path := filepath.Join(configDir, globalConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}
	data = ExpandEnv(data)

	var doc globalYAMLConfig
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	builtin := GetBuiltinConfig()

	defaults := doc.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if err := mergo.Merge(defaults, builtin.Defaults); err != nil {
		return nil, fmt.Errorf("failed to merge defaults: %w", err)
	}
	if defaults.Masking == nil {
		defaults.Masking = &MaskingConfig{Enabled: true, PatternGroups: []string{"security"}}
	}

	queue := doc.Queue
	if queue == nil {
		queue = DefaultQueueConfig()
	} else if err := mergo.Merge(queue, builtin.Queue); err != nil {
		return nil, fmt.Errorf("failed to merge queue config: %w", err)
	}

	retention := doc.Retention
	if retention == nil {
		retention = DefaultRetentionConfig()
	} else if err := mergo.Merge(retention, builtin.Retention); err != nil {
		return nil, fmt.Errorf("failed to merge retention config: %w", err)
	}

	api := doc.API
	if api == nil {
		api = &APIConfig{Host: "127.0.0.1", Port: 8765}
	}
	audit := doc.Audit
	if audit == nil {
		audit = &AuditConfig{}
	}

	return &GlobalConfig{
		configDir:             configDir,
		Defaults:              defaults,
		Queue:                 queue,
		Retention:             retention,
		API:                   api,
		Audit:                 audit,
		DefaultDriverSources:  doc.DriverSources,
		DefaultElementSources: doc.ElementSources,
		DefaultTextSources:    doc.TextSources,
		DefaultImageSources:   doc.ImageSources,
	}, nil
}

// LoadSessionConfig parses a suite's YAML config file (spec §6.1: "a
// YAML with driver_sources and elements_sources keys is a config file")
// or a POST /v1/sessions/start JSON body into a SessionConfig, then
// applies the TEST_SESSION_ENV_VARIABLES override (spec §6.4).
func LoadSessionConfig(data []byte, isJSON bool) (SessionConfig, error) {
	var sess SessionConfig
	var err error
	if isJSON {
		err = json.Unmarshal(data, &sess)
	} else {
		err = yaml.Unmarshal(ExpandEnv(data), &sess)
	}
	if err != nil {
		return SessionConfig{}, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if err := applyEnvOverride(&sess); err != nil {
		return SessionConfig{}, err
	}
	return sess, nil
}

// applyEnvOverride merges TEST_SESSION_ENV_VARIABLES (a JSON object of
// SessionConfig field overrides) over sess, field-by-field, non-zero
// values winning.
func applyEnvOverride(sess *SessionConfig) error {
	raw := os.Getenv("TEST_SESSION_ENV_VARIABLES")
	if raw == "" {
		return nil
	}
	var override SessionConfig
	if err := json.Unmarshal([]byte(raw), &override); err != nil {
		return fmt.Errorf("TEST_SESSION_ENV_VARIABLES: %w", err)
	}
	return mergo.Merge(sess, override, mergo.WithOverride)
}

// IsConfigYAML reports whether a YAML suite file is a config file by
// content, per spec §6.1: "A YAML with driver_sources and
// elements_sources keys is a config file."
func IsConfigYAML(doc map[string]any) bool {
	_, hasDriver := doc["driver_sources"]
	_, hasElementsA := doc["element_sources"]
	_, hasElementsB := doc["elements_sources"]
	return hasDriver && (hasElementsA || hasElementsB)
}
