package config

import "time"

// Default values and limits for metagate
const (
	// Mediator limits
	DefaultTimeout        = 30 * time.Second
	DefaultMaxOutputBytes = 10 * 1024 * 1024 // 10MB - captured tool output per invocation
	DefaultRunner         = "local"
	DefaultBinDir         = "/usr/bin"

	// Container runner
	DefaultContainerImage  = "metagate-tools:latest"
	DefaultContainerMemory = "128m"
	DefaultContainerCPUs   = 1

	// Warm container pool, disabled unless pool_size > 0
	DefaultPoolMaxUses        = 50
	DefaultPoolIdleTimeout    = 5 * time.Minute
	DefaultPoolHealthInterval = 30 * time.Second

	// Batch fan-out
	DefaultMaxConcurrency = 8

	// Audit configuration
	DefaultAuditBackend = "file"
	DefaultAuditLogPath = "metagate-audit.log"
	DefaultAuditFormat  = "json"

	// Logging
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// Config file lookup
	ConfigName = "metagate"
	EnvPrefix  = "METAGATE"
)
