package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *GlobalConfig {
	return &GlobalConfig{
		Defaults:  &Defaults{OutputDir: "out", Masking: &MaskingConfig{Enabled: true, PatternGroups: []string{"basic"}}},
		Queue:     DefaultQueueConfig(),
		Retention: DefaultRetentionConfig(),
		DefaultDriverSources: []BackendSourceConfig{
			{Name: "chrome", Enabled: true},
		},
	}
}

func TestValidatorAcceptsValidConfig(t *testing.T) {
	err := NewValidator(validConfig()).ValidateAll()
	assert.NoError(t, err)
}

func TestValidatorRejectsZeroWorkerCount(t *testing.T) {
	cfg := validConfig()
	cfg.Queue.WorkerCount = 0
	err := NewValidator(cfg).ValidateAll()
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestValidatorRejectsNegativeRetentionDays(t *testing.T) {
	cfg := validConfig()
	cfg.Retention.SessionRetentionDays = -1
	err := NewValidator(cfg).ValidateAll()
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestValidatorRejectsUnknownPatternGroup(t *testing.T) {
	cfg := validConfig()
	cfg.Defaults.Masking.PatternGroups = []string{"nonexistent"}
	err := NewValidator(cfg).ValidateAll()
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestValidatorRejectsInvalidCustomPattern(t *testing.T) {
	cfg := validConfig()
	cfg.Defaults.Masking.CustomPatterns = []MaskingPattern{
		{Pattern: "(unterminated", Replacement: "x"},
	}
	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidatorRejectsDuplicateSourceName(t *testing.T) {
	cfg := validConfig()
	cfg.DefaultDriverSources = append(cfg.DefaultDriverSources, BackendSourceConfig{Name: "chrome", Enabled: true})
	err := NewValidator(cfg).ValidateAll()
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestValidatorRejectsMissingSourceName(t *testing.T) {
	cfg := validConfig()
	cfg.DefaultDriverSources = []BackendSourceConfig{{Enabled: true}}
	err := NewValidator(cfg).ValidateAll()
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}
