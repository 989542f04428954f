package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dansasser/mcg-agent/pkg/database"
	"github.com/dansasser/mcg-agent/pkg/ingest"
)

var sqlitePath string

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcgctl",
		Short: "Operator tooling for the mcg-agent corpus and pipeline",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&sqlitePath, "sqlite", "",
		"Use a SQLite database at this path instead of Postgres (':memory:' allowed)")

	root.AddCommand(ingestCmd(), seedCmd(), smokeCmd())
	return root
}

// openDB connects per the --sqlite flag or the DB_* environment.
func openDB(ctx context.Context) (*database.Client, error) {
	if sqlitePath != "" {
		return database.OpenSQLite(ctx, sqlitePath)
	}
	cfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return database.NewClient(ctx, cfg)
}

func printJSON(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(raw))
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import corpus data",
	}

	var source string
	personal := &cobra.Command{
		Use:   "personal <conversations.json>",
		Short: "Import a chat export into the personal corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			db, err := openDB(c.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			stats, err := ingest.ImportPersonal(c.Context(), db, args[0], source)
			if err != nil {
				return err
			}
			printJSON(map[string]any{"import_personal": stats})
			return nil
		},
	}
	personal.Flags().StringVar(&source, "source", "chat_export", "Source label for provenance")

	var platform string
	social := &cobra.Command{
		Use:   "social <posts.json>",
		Short: "Import posts into the social corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			db, err := openDB(c.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			stats, err := ingest.ImportSocial(c.Context(), db, args[0], platform)
			if err != nil {
				return err
			}
			printJSON(map[string]any{"import_social": stats})
			return nil
		},
	}
	social.Flags().StringVar(&platform, "platform", "", "Override platform for all posts")

	var defaultAuthority float64
	published := &cobra.Command{
		Use:   "published <articles.json>",
		Short: "Import articles into the published corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			db, err := openDB(c.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			stats, err := ingest.ImportPublished(c.Context(), db, args[0], defaultAuthority)
			if err != nil {
				return err
			}
			printJSON(map[string]any{"import_published": stats})
			return nil
		},
	}
	published.Flags().Float64Var(&defaultAuthority, "default-authority", 0.0,
		"Default authority score for unknown domains")

	cmd.AddCommand(personal, social, published)
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert a small sample corpus",
		RunE: func(c *cobra.Command, _ []string) error {
			db, err := openDB(c.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := ingest.Seed(c.Context(), db); err != nil {
				return err
			}
			printJSON(map[string]any{"seed": "ok"})
			return nil
		},
	}
}
