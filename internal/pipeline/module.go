// Package pipeline provides the sales pipeline bounded context module: stage
// transitions guarded by prerequisites, and workload based assignment.
package pipeline

import (
	"sales_pipeline_backend/internal/events"
	apphttp "sales_pipeline_backend/internal/http"
	"sales_pipeline_backend/internal/pipeline/engine"
	"sales_pipeline_backend/internal/pipeline/handler"
	"sales_pipeline_backend/internal/pipeline/repository"
	"sales_pipeline_backend/internal/pipeline/service"
	"sales_pipeline_backend/platform/lock"
	"sales_pipeline_backend/platform/logger"
	"sales_pipeline_backend/platform/validator"
)

// Module is the pipeline bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	engine  *engine.Engine
}

// NewModule wires the service and handler around an already built engine.
// locker may be nil when assignment does not need cross-process serialization.
func NewModule(repo repository.Repository, eng *engine.Engine, eventBus events.Bus, locker lock.Locker, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repo, eng, eventBus, log)
	svc.SetAssignmentLocker(locker)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		engine:  eng,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipeline"
}

// Service returns the pipeline service for the scheduler worker and CLI.
func (m *Module) Service() *service.Service {
	return m.service
}

// Engine returns the rules engine the module was built with.
func (m *Module) Engine() *engine.Engine {
	return m.engine
}

// RegisterRoutes mounts pipeline routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
