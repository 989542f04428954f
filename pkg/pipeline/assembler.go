package pipeline

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"

	"github.com/dansasser/mcg-agent/pkg/audit"
	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/models"
	"github.com/dansasser/mcg-agent/pkg/search"
	"github.com/dansasser/mcg-agent/pkg/tools"
)

// Assembler builds the per-task context pack by running the three corpus
// searches under Ideator governance. It never invokes a model; its output is
// purely retrieval. Connectors run concurrently but results merge in the
// fixed order Personal, Social, Published.
type Assembler struct {
	searchPersonal  *tools.GovernedTool
	searchSocial    *tools.GovernedTool
	searchPublished *tools.GovernedTool
}

// NewAssembler wires the connectors behind governed search tools.
func NewAssembler(connectors *search.Connectors, enforcer *governance.Enforcer, trail *audit.Trail) *Assembler {
	return &Assembler{
		searchPersonal: tools.NewIdeatorSearchTool("search_personal", enforcer, trail,
			func(ctx context.Context, _ tools.RunContext, args tools.Args) (any, error) {
				return connectors.QueryPersonal(ctx, cast.ToString(args["query"]), search.PersonalFilters{}, cast.ToInt(args["limit"])), nil
			}),
		searchSocial: tools.NewIdeatorSearchTool("search_social", enforcer, trail,
			func(ctx context.Context, _ tools.RunContext, args tools.Args) (any, error) {
				return connectors.QuerySocial(ctx, cast.ToString(args["query"]), search.SocialFilters{}, cast.ToInt(args["limit"])), nil
			}),
		searchPublished: tools.NewIdeatorSearchTool("search_published", enforcer, trail,
			func(ctx context.Context, _ tools.RunContext, args tools.Args) (any, error) {
				return connectors.QueryPublished(ctx, cast.ToString(args["query"]), search.PublishedFilters{}, cast.ToInt(args["limit"])), nil
			}),
	}
}

// Build assembles the context pack for the prompt. Searches run
// concurrently; insertion order stays Personal, Social, Published.
func (a *Assembler) Build(ctx context.Context, rc tools.RunContext, prompt string) (*models.ContextPack, error) {
	pack := models.NewContextPack(rc.TaskID, rc.Classification)

	searches := []struct {
		corpus models.Corpus
		tool   *tools.GovernedTool
	}{
		{models.CorpusPersonal, a.searchPersonal},
		{models.CorpusSocial, a.searchSocial},
		{models.CorpusPublished, a.searchPublished},
	}

	results := make([]search.Result, len(searches))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range searches {
		g.Go(func() error {
			raw, err := s.tool.Execute(gctx, rc, tools.Args{
				"corpus": string(s.corpus),
				"query":  prompt,
			})
			if err != nil {
				return fmt.Errorf("%s search failed: %w", s.corpus, err)
			}
			if result, ok := raw.(search.Result); ok {
				results[i] = result
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, result := range results {
		pack.AddSnippets(result.Snippets, models.StageIdeator)
	}
	return pack, nil
}
