package prerequisite

import (
	"fmt"
	"sort"
	"sync"

	"sales_pipeline_backend/internal/pipeline/domain"
)

// Registry maps a target stage to the ordered checks that must pass before a
// lead may enter it. It is filled during startup and only read afterwards.
type Registry struct {
	checks map[string][]Check
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{checks: make(map[string][]Check)}
}

// Register appends checks for a target stage, keeping registration order.
// Call it only while assembling the pipeline, before the registry is shared.
func (r *Registry) Register(stage string, checks ...Check) *Registry {
	r.checks[stage] = append(r.checks[stage], checks...)
	return r
}

// ChecksFor returns the checks registered for stage in registration order.
// A stage with no checks yields an empty slice.
func (r *Registry) ChecksFor(stage string) []Check {
	return append([]Check(nil), r.checks[stage]...)
}

// IDsFor returns the identifiers of the checks registered for stage.
func (r *Registry) IDsFor(stage string) []string {
	ids := make([]string, 0, len(r.checks[stage]))
	for _, check := range r.checks[stage] {
		ids = append(ids, check.ID())
	}
	return ids
}

// Stages lists the stages that have at least one check, sorted by name.
func (r *Registry) Stages() []string {
	stages := make([]string, 0, len(r.checks))
	for stage, checks := range r.checks {
		if len(checks) > 0 {
			stages = append(stages, stage)
		}
	}
	sort.Strings(stages)
	return stages
}

// Dependencies are the collaborators check factories may use.
type Dependencies struct {
	Messages    MessageLookup
	PhoneRegion string
}

// Factory builds a check from its dependencies.
type Factory func(deps Dependencies) Check

// Catalog maps check identifiers used in pipeline definitions to factories.
// New checks are added by registering a factory, not by editing the validator.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// DefaultCatalog returns a catalog with the built-in checks registered.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.MustRegister(CheckOfferSentMessage, func(deps Dependencies) Check {
		return NewOfferSentCheck(deps.Messages)
	})
	c.MustRegister(CheckContactComplete, func(Dependencies) Check {
		return ContactCompletenessCheck{}
	})
	c.MustRegister(CheckPhoneValid, func(deps Dependencies) Check {
		return PhoneValidCheck{Region: deps.PhoneRegion}
	})
	return c
}

// Register adds a factory under id. Identifiers must be unique.
func (c *Catalog) Register(id string, factory Factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" || factory == nil {
		return fmt.Errorf("prerequisite: check id and factory are required")
	}
	if _, exists := c.factories[id]; exists {
		return fmt.Errorf("prerequisite: check %q already registered", id)
	}
	c.factories[id] = factory
	return nil
}

// MustRegister is Register for static setup code; it panics on conflicts.
func (c *Catalog) MustRegister(id string, factory Factory) {
	if err := c.Register(id, factory); err != nil {
		panic(err)
	}
}

// Has reports whether id is registered.
func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[id]
	return ok
}

// Build instantiates the check registered under id. An unknown id is a
// configuration error for the stage that referenced it.
func (c *Catalog) Build(stage, id string, deps Dependencies) (Check, error) {
	c.mu.RLock()
	factory, ok := c.factories[id]
	c.mu.RUnlock()
	if !ok {
		return nil, domain.NewConfigurationError(stage, fmt.Sprintf("unknown prerequisite check %q", id))
	}
	return factory(deps), nil
}
