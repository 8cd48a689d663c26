package config

// Defaults holds system-wide values applied when a session doesn't
// override them.
type Defaults struct {
	// OutputDir is the base directory for per-session output, with
	// "<session_id>" appended at session creation (spec §6.3).
	OutputDir string `yaml:"output_dir,omitempty"`

	// MaxAttempts is the default max_attempts for a keyword node absent
	// an explicit override.
	MaxAttempts int `yaml:"max_attempts,omitempty" validate:"omitempty,min=1"`

	// StrategyTimeoutSeconds bounds locate()'s overall search budget
	// (spec §4.5.3) when a keyword doesn't specify one.
	StrategyTimeoutSeconds int `yaml:"strategy_timeout_seconds,omitempty" validate:"omitempty,min=1"`

	// ReportEnabled toggles the per-session JUnit writer by default.
	ReportEnabled bool `yaml:"report_enabled"`

	Masking *MaskingConfig `yaml:"masking,omitempty"`
}
