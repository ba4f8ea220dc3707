package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/internal/pipeline/engine"
	"sales_pipeline_backend/internal/pipeline/repository"
	"sales_pipeline_backend/platform/config"

	"github.com/spf13/cobra"
)

// loadEngine builds the rules engine against an in-memory repository so the
// definition can be checked without a database.
func loadEngine() (*engine.Engine, *repository.Memory, error) {
	cfg, err := config.LoadRules()
	if err != nil {
		return nil, nil, err
	}
	if definitionPath != "" {
		cfg.PipelineConfigPath = definitionPath
	}
	mem := repository.NewMemory()
	eng, err := engine.Load(cfg, mem, mem)
	if err != nil {
		return nil, nil, err
	}
	return eng, mem, nil
}

type stageSummary struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Next     []string `json:"next"`
	Requires []string `json:"requires,omitempty"`
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Load the pipeline definition and print the stage graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := loadEngine()
		if err != nil {
			return fmt.Errorf("invalid pipeline definition: %w", err)
		}

		summaries := make([]stageSummary, 0, len(eng.Graph.Stages()))
		for _, st := range eng.Graph.Stages() {
			next, err := eng.Graph.EdgesFrom(st.Name)
			if err != nil {
				return err
			}
			s := stageSummary{
				Name:     st.Name,
				Category: string(st.Category),
				Next:     stageNames(next),
				Requires: eng.Registry.IDsFor(st.Name),
			}
			summaries = append(summaries, s)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, summaries)
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tCATEGORY\tNEXT\tREQUIRES")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.Category, strings.Join(s.Next, ","), strings.Join(s.Requires, ","))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d stages, %d transitions\n", len(summaries), len(eng.Graph.Edges()))
		return nil
	},
}

func stageNames(stages []domain.Stage) []string {
	names := make([]string, 0, len(stages))
	for _, st := range stages {
		names = append(names, st.Name)
	}
	return names
}
