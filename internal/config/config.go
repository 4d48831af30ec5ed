package config

const (
	DefaultTimeZone = "UTC"

	// Upload pipeline defaults, overridable per service in services.yaml.
	DefaultMaxFiles      = 25
	DefaultMaxFileMB     = 50
	DefaultMaxBatchMB    = 200
	DefaultMaxConcurrent = 3
	DefaultChunkSize     = 5

	// Janitor Configuration Constants
	DefaultJanitorSchedule     = "0 * * * *"
	DefaultStaleBatchHours     = 6
	DefaultStagedRetentionDays = 30
)
