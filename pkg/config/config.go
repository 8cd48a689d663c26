package config

// GlobalConfig is the umbrella configuration loaded once per process from
// ~/.optics/global_config.yaml (spec §6.4), merged with built-in defaults.
// A SessionConfig (from a suite's YAML config file, or a
// POST /v1/sessions/start body) is later resolved against it.
type GlobalConfig struct {
	configDir string

	Defaults  *Defaults
	Queue     *QueueConfig
	Retention *RetentionConfig
	API       *APIConfig
	Audit     *AuditConfig

	DefaultDriverSources  []BackendSourceConfig
	DefaultElementSources []BackendSourceConfig
	DefaultTextSources    []BackendSourceConfig
	DefaultImageSources   []BackendSourceConfig
}

// ConfigDir returns the directory the global config file was loaded
// from (or would be auto-created in).
func (c *GlobalConfig) ConfigDir() string {
	return c.configDir
}

// Resolve merges sess over the GlobalConfig's defaults, producing the
// fully-resolved SessionConfig a Session is constructed from. Each
// backend source list is merged by name with mergeBackendSources: a
// session entry overrides the global default with the same name, new
// names are appended, and a global default not mentioned by the
// session survives untouched. Scalars fall back to the global default
// when unset.
func (c *GlobalConfig) Resolve(sess SessionConfig) SessionConfig {
	out := sess

	out.DriverSources = mergeBackendSources(c.DefaultDriverSources, sess.DriverSources)
	out.ElementSources = mergeBackendSources(c.DefaultElementSources, sess.ElementSources)
	out.TextSources = mergeBackendSources(c.DefaultTextSources, sess.TextSources)
	out.ImageSources = mergeBackendSources(c.DefaultImageSources, sess.ImageSources)

	if out.OutputDir == "" {
		out.OutputDir = c.Defaults.OutputDir
	}
	out.Masking = mergeMasking(c.Defaults.Masking, sess.Masking)
	if out.ReportEnabled == nil {
		enabled := c.Defaults.ReportEnabled
		out.ReportEnabled = &enabled
	}
	return out
}
