package config

import "github.com/spf13/viper"

// SetViperDefaults sets all default configuration values on v
func SetViperDefaults(v *viper.Viper) {
	// Sandbox defaults
	v.SetDefault("sandbox.roots", []string{})
	v.SetDefault("sandbox.strict_symlinks", true)

	// Mediator defaults
	v.SetDefault("mediator.timeout", DefaultTimeout)
	v.SetDefault("mediator.max_output_bytes", DefaultMaxOutputBytes)
	v.SetDefault("mediator.runner", DefaultRunner)
	v.SetDefault("mediator.bin_dir", DefaultBinDir)
	v.SetDefault("mediator.docker.image", DefaultContainerImage)
	v.SetDefault("mediator.docker.memory_limit", DefaultContainerMemory)
	v.SetDefault("mediator.docker.cpu_limit", DefaultContainerCPUs)
	v.SetDefault("mediator.docker.pool_size", 0)
	v.SetDefault("mediator.docker.pool_max_uses", DefaultPoolMaxUses)
	v.SetDefault("mediator.docker.pool_idle_timeout", DefaultPoolIdleTimeout)
	v.SetDefault("mediator.docker.pool_health_interval", DefaultPoolHealthInterval)

	// Evaluator defaults
	v.SetDefault("evaluator.max_concurrency", DefaultMaxConcurrency)

	// Audit defaults
	v.SetDefault("audit.backend", DefaultAuditBackend)
	v.SetDefault("audit.path", DefaultAuditLogPath)
	v.SetDefault("audit.format", DefaultAuditFormat)

	// Logging defaults
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}
