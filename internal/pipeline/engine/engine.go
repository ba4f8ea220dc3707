// Package engine wires the pipeline rules (stage graph, prerequisite
// registry, transition validator and assignment selector) from a definition
// and the stores they read. The API, the scheduler and pipelinectl all build
// their rules through here so they agree on the configuration.
package engine

import (
	"sales_pipeline_backend/internal/pipeline/definition"
	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/internal/pipeline/prerequisite"
	"sales_pipeline_backend/internal/pipeline/validation"
	"sales_pipeline_backend/internal/pipeline/workload"
	"sales_pipeline_backend/platform/config"
)

// Engine holds the assembled, read-only rules.
type Engine struct {
	Graph     *domain.StageGraph
	Registry  *prerequisite.Registry
	Validator *validation.Validator
	Scorer    *workload.Scorer
	Selector  *workload.Selector
}

// Deps are the stores and settings the rules read.
type Deps struct {
	Messages    prerequisite.MessageLookup
	Counts      workload.CountReader
	PhoneRegion string
	Weights     domain.WorkloadWeights
	Concurrency int
	// Catalog defaults to prerequisite.DefaultCatalog.
	Catalog *prerequisite.Catalog
}

// Build assembles an Engine. Any inconsistency in the definition is returned
// as a *domain.ConfigurationError so startup can refuse to serve.
func Build(def definition.File, deps Deps) (*Engine, error) {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = prerequisite.DefaultCatalog()
	}

	graph, registry, err := def.Build(catalog, prerequisite.Dependencies{
		Messages:    deps.Messages,
		PhoneRegion: deps.PhoneRegion,
	})
	if err != nil {
		return nil, err
	}

	weights := deps.Weights
	if weights == (domain.WorkloadWeights{}) {
		weights = domain.DefaultWorkloadWeights()
	}

	scorer := workload.NewScorer(deps.Counts, graph.ActiveStages(),
		workload.WithWeights(weights),
		workload.WithConcurrency(deps.Concurrency),
	)

	return &Engine{
		Graph:     graph,
		Registry:  registry,
		Validator: validation.New(graph, registry),
		Scorer:    scorer,
		Selector:  workload.NewSelector(scorer),
	}, nil
}

// Load reads the definition named by cfg and builds the engine with the
// configured weights.
func Load(cfg interface {
	config.PipelineConfig
	config.WorkloadConfig
}, messages prerequisite.MessageLookup, counts workload.CountReader) (*Engine, error) {
	def, err := definition.Load(cfg.GetPipelineConfigPath())
	if err != nil {
		return nil, err
	}
	return Build(def, Deps{
		Messages:    messages,
		Counts:      counts,
		PhoneRegion: cfg.GetPhoneDefaultRegion(),
		Weights: domain.WorkloadWeights{
			ActiveLeads:  cfg.GetWorkloadWeightActiveLeads(),
			PendingTasks: cfg.GetWorkloadWeightPendingTasks(),
			OverdueTasks: cfg.GetWorkloadWeightOverdueTasks(),
		},
		Concurrency: cfg.GetWorkloadMaxConcurrency(),
	})
}
