package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/internal/pipeline/engine"
	"sales_pipeline_backend/internal/pipeline/repository"
	"sales_pipeline_backend/platform/config"
	"sales_pipeline_backend/platform/db"

	"github.com/spf13/cobra"
)

var rankingIncludeInactive bool

var rankingCmd = &cobra.Command{
	Use:   "ranking",
	Short: "Score every eligible agent against the live database, least loaded first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if definitionPath != "" {
			cfg.PipelineConfigPath = definitionPath
		}

		ctx := cmd.Context()
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		repo := repository.New(pool)
		eng, err := engine.Load(cfg, repo, repo)
		if err != nil {
			return err
		}

		agents, err := repo.ListAgents(ctx, domain.EligibilityFilter{IncludeInactive: rankingIncludeInactive})
		if err != nil {
			return err
		}
		ranking := eng.Selector.Rank(ctx, agents)

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, ranking.Scores)
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "AGENT\tNAME\tLEADS\tPENDING\tOVERDUE\tSCORE\tLAST ASSIGNED")
		for _, sc := range ranking.Scores {
			last := "never"
			if sc.Agent.LastAssignedAt != nil {
				last = sc.Agent.LastAssignedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
				sc.Agent.ID, sc.Agent.Name, sc.ActiveLeads, sc.PendingTasks, sc.OverdueTasks, sc.Score, last)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		for _, f := range ranking.Failures {
			fmt.Fprintf(out, "could not score %s: %v\n", f.AgentID, f.Err)
		}
		return nil
	},
}

func init() {
	rankingCmd.Flags().BoolVar(&rankingIncludeInactive, "include-inactive", false, "also score inactive agents")
}
