package config

// Default values for configuration options, used both as the starting
// point for TOML decoding (so unset fields retain defaults) and as the
// fallback when no config file exists.
const (
	defaultPollIntervalMinutes = 5
	defaultSyncIgnoreFile      = ".syncignore"
	defaultLogLevel            = "info"
	defaultLogFormat           = "auto"
	defaultTimeoutSeconds      = 30
)

// DefaultConfig returns a Config populated with all default values, with
// sync_root and catalog_path left empty — the caller must supply those.
func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			PollIntervalMinutes: defaultPollIntervalMinutes,
		},
		Filter: FilterConfig{
			SyncIgnoreFile: defaultSyncIgnoreFile,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Network: NetworkConfig{
			TimeoutSeconds: defaultTimeoutSeconds,
		},
	}
}
