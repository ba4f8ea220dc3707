// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides the shared Redis connection settings.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq client, worker and scheduler.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetOverdueSweepCron() string
}

// PipelineConfig provides settings for the stage graph and prerequisite checks.
type PipelineConfig interface {
	GetPipelineConfigPath() string
	GetPhoneDefaultRegion() string
}

// WorkloadConfig provides the workload score weights and scoring fan-out.
type WorkloadConfig interface {
	GetWorkloadWeightActiveLeads() int
	GetWorkloadWeightPendingTasks() int
	GetWorkloadWeightOverdueTasks() int
	GetWorkloadMaxConcurrency() int
}

// AssignmentConfig provides settings for serializing automatic assignment.
type AssignmentConfig interface {
	RedisConfig
	IsAssignmentSerialized() bool
	GetAssignmentLockTTL() time.Duration
}

// EventStreamConfig provides settings for forwarding domain events to NATS.
type EventStreamConfig interface {
	GetNATSURL() string
	GetNATSSubjectPrefix() string
	IsNATSEnabled() bool
}

// TelemetryConfig provides OpenTelemetry exporter settings.
type TelemetryConfig interface {
	GetOTELEndpoint() string
	GetOTELInsecure() bool
	GetServiceName() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	ServiceName               string
	HTTPAddr                  string
	DatabaseURL               string
	JWTAccessSecret           string
	CORSAllowAll              bool
	CORSOrigins               []string
	CORSAllowCreds            bool
	RedisURL                  string
	RedisTLSInsecure          bool
	AsynqQueueName            string
	AsynqConcurrency          int
	OverdueSweepCron          string
	PipelineConfigPath        string
	PhoneDefaultRegion        string
	WorkloadWeightActiveLeads int
	WorkloadWeightPending     int
	WorkloadWeightOverdue     int
	WorkloadMaxConcurrency    int
	AssignmentSerialize       bool
	AssignmentLockTTL         time.Duration
	NATSURL                   string
	NATSSubjectPrefix         string
	OTELEndpoint              string
	OTELInsecure              bool
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }

// SchedulerConfig implementation
func (c *Config) GetAsynqQueueName() string   { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int    { return c.AsynqConcurrency }
func (c *Config) GetOverdueSweepCron() string { return c.OverdueSweepCron }

// PipelineConfig implementation
func (c *Config) GetPipelineConfigPath() string { return c.PipelineConfigPath }
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// WorkloadConfig implementation
func (c *Config) GetWorkloadWeightActiveLeads() int  { return c.WorkloadWeightActiveLeads }
func (c *Config) GetWorkloadWeightPendingTasks() int { return c.WorkloadWeightPending }
func (c *Config) GetWorkloadWeightOverdueTasks() int { return c.WorkloadWeightOverdue }
func (c *Config) GetWorkloadMaxConcurrency() int     { return c.WorkloadMaxConcurrency }

// AssignmentConfig implementation
func (c *Config) IsAssignmentSerialized() bool {
	return c.AssignmentSerialize && c.RedisURL != ""
}
func (c *Config) GetAssignmentLockTTL() time.Duration { return c.AssignmentLockTTL }

// EventStreamConfig implementation
func (c *Config) GetNATSURL() string           { return c.NATSURL }
func (c *Config) GetNATSSubjectPrefix() string { return c.NATSSubjectPrefix }
func (c *Config) IsNATSEnabled() bool          { return c.NATSURL != "" }

// TelemetryConfig implementation
func (c *Config) GetOTELEndpoint() string { return c.OTELEndpoint }
func (c *Config) GetOTELInsecure() bool   { return c.OTELInsecure }
func (c *Config) GetServiceName() string  { return c.ServiceName }

// Load reads configuration from environment variables and enforces the
// settings the API and scheduler cannot run without.
func Load() (*Config, error) {
	cfg, err := LoadRules()
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// LoadRules reads configuration without requiring connection settings. It
// is used by tooling that only needs the pipeline definition and weights.
func LoadRules() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                       getEnv("APP_ENV", "development"),
		ServiceName:               getEnv("OTEL_SERVICE_NAME", "sales-pipeline"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		JWTAccessSecret:           getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:              corsAllowAll,
		CORSOrigins:               corsOrigins,
		CORSAllowCreds:            strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                  getEnv("REDIS_URL", ""),
		RedisTLSInsecure:          strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:            getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:          mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		OverdueSweepCron:          getEnv("OVERDUE_SWEEP_CRON", "@every 5m"),
		PipelineConfigPath:        getEnv("PIPELINE_CONFIG_PATH", ""),
		PhoneDefaultRegion:        strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "NL")),
		WorkloadWeightActiveLeads: mustInt(getEnv("WORKLOAD_WEIGHT_ACTIVE_LEADS", "2")),
		WorkloadWeightPending:     mustInt(getEnv("WORKLOAD_WEIGHT_PENDING_TASKS", "1")),
		WorkloadWeightOverdue:     mustInt(getEnv("WORKLOAD_WEIGHT_OVERDUE_TASKS", "3")),
		WorkloadMaxConcurrency:    mustInt(getEnv("WORKLOAD_MAX_CONCURRENCY", "8")),
		AssignmentSerialize:       strings.EqualFold(getEnv("ASSIGNMENT_SERIALIZE", "false"), "true"),
		AssignmentLockTTL:         mustDuration(getEnv("ASSIGNMENT_LOCK_TTL", "10s")),
		NATSURL:                   getEnv("NATS_URL", ""),
		NATSSubjectPrefix:         getEnv("NATS_SUBJECT_PREFIX", "pipeline"),
		OTELEndpoint:              getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:              strings.EqualFold(getEnv("OTEL_INSECURE", "false"), "true"),
	}

	if cfg.WorkloadWeightActiveLeads < 0 || cfg.WorkloadWeightPending < 0 || cfg.WorkloadWeightOverdue < 0 {
		return nil, fmt.Errorf("WORKLOAD_WEIGHT_* values must not be negative")
	}
	if cfg.WorkloadMaxConcurrency < 1 {
		cfg.WorkloadMaxConcurrency = 1
	}
	if cfg.AssignmentLockTTL <= 0 {
		cfg.AssignmentLockTTL = 10 * time.Second
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
