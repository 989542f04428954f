package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dansasser/mcg-agent/pkg/audit"
	"github.com/dansasser/mcg-agent/pkg/cache"
	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/ingest"
	"github.com/dansasser/mcg-agent/pkg/pipeline"
	"github.com/dansasser/mcg-agent/pkg/provider"
	"github.com/dansasser/mcg-agent/pkg/search"
	"github.com/dansasser/mcg-agent/pkg/transform"
)

// smokeCmd runs one prompt through the full pipeline against an in-memory
// SQLite corpus with the transformer-only provider. No network, no external
// model: a fast end-to-end sanity check of the governance wiring.
func smokeCmd() *cobra.Command {
	var prompt string
	var seed bool

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run a local end-to-end pipeline pass",
		RunE: func(c *cobra.Command, _ []string) error {
			sqlitePath = ":memory:"
			db, err := openDB(c.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if seed {
				if err := ingest.Seed(c.Context(), db); err != nil {
					return err
				}
			}

			enforcer := governance.NewEnforcer(governance.NewCatalog(), governance.Options{})
			trail := audit.NewTrail(nil)
			connectors := search.NewConnectors(db, cache.Noop{}, time.Minute)
			assembler := pipeline.NewAssembler(connectors, enforcer, trail)
			driver := pipeline.NewDriver(enforcer, assembler, trail, pipeline.Config{
				Transformer:          provider.NewTransformer(provider.TransformerPunctuationOnly, transform.DefaultPunctuationPolicy()),
				TransformerAvailable: true,
			})

			result, err := driver.ProcessRequest(c.Context(), "smoke", prompt)
			if err != nil {
				return err
			}
			printJSON(map[string]any{
				"task_id":     result.TaskID,
				"final_stage": result.FinalStage,
				"content":     result.Content,
				"snippets":    len(result.Bundle.InputSources),
				"violations":  result.Governance.ViolationCount,
				"change_log":  len(result.Bundle.ChangeLog),
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "Hello world!", "Prompt to run through the pipeline")
	cmd.Flags().BoolVar(&seed, "seed", true, "Seed the in-memory corpus first")
	return cmd
}
