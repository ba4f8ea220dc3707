// Package definition loads the pipeline definition (stages, legal transitions
// and prerequisite checks) and assembles the stage graph and check registry
// from it. Definitions are read from YAML or TOML; an embedded default is
// used when no file is configured.
package definition

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/internal/pipeline/prerequisite"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// File is the on-disk shape of a pipeline definition.
type File struct {
	Stages        []StageSpec         `yaml:"stages" toml:"stages"`
	Transitions   []TransitionSpec    `yaml:"transitions" toml:"transitions"`
	Prerequisites map[string][]string `yaml:"prerequisites" toml:"prerequisites"`
}

// StageSpec declares one stage. Its position in File.Stages is its ordinal.
type StageSpec struct {
	Name     string `yaml:"name" toml:"name"`
	Category string `yaml:"category" toml:"category"`
}

// TransitionSpec declares the legal targets from one stage.
type TransitionSpec struct {
	From string   `yaml:"from" toml:"from"`
	To   []string `yaml:"to" toml:"to"`
}

// Format selects the parser for Parse.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Default returns the embedded default definition.
func Default() (File, error) {
	return Parse(defaultYAML, FormatYAML)
}

// Load reads a definition file. An empty path yields the default definition.
func Load(path string) (File, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}

	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".toml":
		format = FormatTOML
	default:
		return File{}, fmt.Errorf("pipeline definition %s: unsupported extension", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read pipeline definition: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes a definition in the given format.
func Parse(data []byte, format Format) (File, error) {
	var f File
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return File{}, fmt.Errorf("parse pipeline yaml: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &f); err != nil {
			return File{}, fmt.Errorf("parse pipeline toml: %w", err)
		}
	default:
		return File{}, fmt.Errorf("unknown pipeline definition format %q", format)
	}
	return f, nil
}

// Graph builds the stage graph. Each edge carries the prerequisite ids of its
// target stage so callers can show what a move requires.
func (f File) Graph() (*domain.StageGraph, error) {
	stages := make([]domain.Stage, 0, len(f.Stages))
	for i, s := range f.Stages {
		stages = append(stages, domain.Stage{
			Name:     strings.TrimSpace(s.Name),
			Ordinal:  i,
			Category: domain.StageCategory(strings.TrimSpace(s.Category)),
		})
	}

	var edges []domain.TransitionEdge
	for _, t := range f.Transitions {
		for _, to := range t.To {
			edges = append(edges, domain.TransitionEdge{
				From:          strings.TrimSpace(t.From),
				To:            strings.TrimSpace(to),
				Prerequisites: append([]string(nil), f.Prerequisites[strings.TrimSpace(to)]...),
			})
		}
	}

	return domain.NewStageGraph(stages, edges)
}

// Build assembles the graph and the prerequisite registry. Every check id
// must be known to catalog and every stage named under prerequisites must
// exist in the graph.
func (f File) Build(catalog *prerequisite.Catalog, deps prerequisite.Dependencies) (*domain.StageGraph, *prerequisite.Registry, error) {
	graph, err := f.Graph()
	if err != nil {
		return nil, nil, err
	}

	registry := prerequisite.NewRegistry()
	for stage, ids := range f.Prerequisites {
		if !graph.HasStage(stage) {
			return nil, nil, domain.NewConfigurationError(stage, "prerequisites declared for unknown stage")
		}
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				return nil, nil, domain.NewConfigurationError(stage, fmt.Sprintf("duplicate prerequisite %q", id))
			}
			seen[id] = struct{}{}

			check, err := catalog.Build(stage, id, deps)
			if err != nil {
				return nil, nil, err
			}
			registry.Register(stage, check)
		}
	}

	return graph, registry, nil
}
