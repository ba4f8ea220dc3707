package domain

import (
	"fmt"
	"sort"
	"strings"
)

// StageGraph is the static finite-state workflow for leads. It is built once
// from configuration and is safe for concurrent reads without locking.
type StageGraph struct {
	stages map[string]Stage
	order  []string
	edges  map[string]map[string]TransitionEdge
}

// NewStageGraph validates the stage and edge definitions and returns an
// immutable graph. Any inconsistency is reported as a *ConfigurationError.
func NewStageGraph(stages []Stage, edges []TransitionEdge) (*StageGraph, error) {
	g := &StageGraph{
		stages: make(map[string]Stage, len(stages)),
		order:  make([]string, 0, len(stages)),
		edges:  make(map[string]map[string]TransitionEdge),
	}

	hasActive := false
	for _, stage := range stages {
		name := strings.TrimSpace(stage.Name)
		if name == "" {
			return nil, newConfigurationError("", "stage name must not be empty")
		}
		if _, exists := g.stages[name]; exists {
			return nil, newConfigurationError(name, "duplicate stage")
		}
		if !IsKnownCategory(stage.Category) {
			return nil, newConfigurationError(name, fmt.Sprintf("unknown stage category %q", stage.Category))
		}
		stage.Name = name
		g.stages[name] = stage
		g.order = append(g.order, name)
		if stage.IsActive() {
			hasActive = true
		}
	}
	if len(g.stages) == 0 {
		return nil, newConfigurationError("", "at least one stage is required")
	}
	if !hasActive {
		return nil, newConfigurationError("", "at least one stage must be in the active category")
	}

	for _, edge := range edges {
		if _, ok := g.stages[edge.From]; !ok {
			return nil, unknownStage(edge.From)
		}
		if _, ok := g.stages[edge.To]; !ok {
			return nil, unknownStage(edge.To)
		}
		next, ok := g.edges[edge.From]
		if !ok {
			next = make(map[string]TransitionEdge)
			g.edges[edge.From] = next
		}
		if _, dup := next[edge.To]; dup {
			return nil, newConfigurationError(edge.From, fmt.Sprintf("duplicate transition to %q", edge.To))
		}
		edge.Prerequisites = append([]string(nil), edge.Prerequisites...)
		next[edge.To] = edge
	}

	sort.SliceStable(g.order, func(i, j int) bool {
		return g.stages[g.order[i]].Ordinal < g.stages[g.order[j]].Ordinal
	})

	return g, nil
}

// HasStage reports whether name is a configured stage.
func (g *StageGraph) HasStage(name string) bool {
	_, ok := g.stages[name]
	return ok
}

// Stage returns the stage with the given name.
func (g *StageGraph) Stage(name string) (Stage, error) {
	stage, ok := g.stages[name]
	if !ok {
		return Stage{}, unknownStage(name)
	}
	return stage, nil
}

// Stages returns all stages ordered by ordinal.
func (g *StageGraph) Stages() []Stage {
	result := make([]Stage, 0, len(g.order))
	for _, name := range g.order {
		result = append(result, g.stages[name])
	}
	return result
}

// IsLegalEdge reports whether a lead may move from one stage to another.
// A self-move is legal only when the self-edge is configured explicitly.
func (g *StageGraph) IsLegalEdge(fromStage, toStage string) (bool, error) {
	if !g.HasStage(fromStage) {
		return false, unknownStage(fromStage)
	}
	if !g.HasStage(toStage) {
		return false, unknownStage(toStage)
	}
	_, ok := g.edges[fromStage][toStage]
	return ok, nil
}

// Edge returns the configured edge between two stages.
func (g *StageGraph) Edge(fromStage, toStage string) (TransitionEdge, bool) {
	edge, ok := g.edges[fromStage][toStage]
	if !ok {
		return TransitionEdge{}, false
	}
	edge.Prerequisites = append([]string(nil), edge.Prerequisites...)
	return edge, true
}

// EdgesFrom returns the stages reachable in one move from stage, ordered by ordinal.
func (g *StageGraph) EdgesFrom(stage string) ([]Stage, error) {
	if !g.HasStage(stage) {
		return nil, unknownStage(stage)
	}
	result := make([]Stage, 0, len(g.edges[stage]))
	for _, name := range g.order {
		if _, ok := g.edges[stage][name]; ok {
			result = append(result, g.stages[name])
		}
	}
	return result, nil
}

// Edges returns every configured edge ordered by source then target ordinal.
func (g *StageGraph) Edges() []TransitionEdge {
	result := make([]TransitionEdge, 0)
	for _, from := range g.order {
		for _, to := range g.order {
			if edge, ok := g.Edge(from, to); ok {
				result = append(result, edge)
			}
		}
	}
	return result
}

// ActiveStages returns the names of stages whose leads count as active workload.
func (g *StageGraph) ActiveStages() []string {
	result := make([]string, 0, len(g.order))
	for _, name := range g.order {
		if g.stages[name].IsActive() {
			result = append(result, name)
		}
	}
	return result
}
