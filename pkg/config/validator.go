package config

import (
	"fmt"
	"regexp"
)

// Validator validates a loaded GlobalConfig with clear, component-scoped
// error messages (fail-fast: stops at the first failure).
type Validator struct {
	cfg *GlobalConfig
}

// NewValidator creates a validator for cfg.
func NewValidator(cfg *GlobalConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every check in a fixed order: queue, retention,
// masking, then each of the four backend source lists.
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention: %w", err)
	}
	if v.cfg.Defaults.Masking != nil {
		if err := v.validateMasking(v.cfg.Defaults.Masking); err != nil {
			return fmt.Errorf("masking: %w", err)
		}
	}
	for component, sources := range map[string][]BackendSourceConfig{
		"driver_sources":  v.cfg.DefaultDriverSources,
		"element_sources": v.cfg.DefaultElementSources,
		"text_sources":    v.cfg.DefaultTextSources,
		"image_sources":   v.cfg.DefaultImageSources,
	} {
		if err := v.validateSources(component, sources); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q.WorkerCount < 1 {
		return NewValidationError("queue", "", "worker_count", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	if q.ScanInterval <= 0 {
		return NewValidationError("queue", "", "scan_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if q.StuckThreshold <= 0 {
		return NewValidationError("queue", "", "stuck_threshold", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r.SessionRetentionDays < 0 {
		return NewValidationError("retention", "", "session_retention_days", fmt.Errorf("%w: must be >= 0", ErrInvalidValue))
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention", "", "cleanup_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

// validateMasking compiles every regex pattern the config references,
// including custom patterns, to fail fast rather than at first use.
func (v *Validator) validateMasking(m *MaskingConfig) error {
	builtin := GetBuiltinConfig()
	for _, name := range m.Patterns {
		if _, ok := builtin.MaskingPatterns[name]; !ok {
			return NewValidationError("masking", name, "patterns", ErrMissingRequiredField)
		}
	}
	for _, group := range m.PatternGroups {
		if _, ok := builtin.PatternGroups[group]; !ok {
			return NewValidationError("masking", group, "pattern_groups", ErrMissingRequiredField)
		}
	}
	for _, p := range m.CustomPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return NewValidationError("masking", p.Pattern, "custom_patterns", err)
		}
	}
	return nil
}

func (v *Validator) validateSources(component string, sources []BackendSourceConfig) error {
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		if s.Name == "" {
			return NewValidationError(component, "", "name", ErrMissingRequiredField)
		}
		if seen[s.Name] {
			return NewValidationError(component, s.Name, "name", fmt.Errorf("%w: duplicate name", ErrInvalidValue))
		}
		seen[s.Name] = true
		if s.Timeout < 0 {
			return NewValidationError(component, s.Name, "timeout", fmt.Errorf("%w: must be >= 0", ErrInvalidValue))
		}
	}
	return nil
}
