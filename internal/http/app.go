package http

import (
	"context"

	"sales_pipeline_backend/platform/config"
	"sales_pipeline_backend/platform/logger"
)

// RouterConfig is the configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/health; typically the database pool.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what the composition root hands to router.New.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
