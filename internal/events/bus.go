package events

import (
	platformevents "sales_pipeline_backend/platform/events"
	"sales_pipeline_backend/platform/logger"
)

type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus returns the process-wide bus the pipeline publishes on.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
