package orchestrator

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/daydemir/devloop/internal/roles"
)

// NormalizeQuery is the key under which a query's results are stored
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// searchQueries looks up every query in parallel and returns the formatted
// page content keyed by normalised query. Blank and duplicate queries are
// dropped. The first failure cancels the rest.
func (o *Orchestrator) searchQueries(ctx context.Context, objective string, queries []string) (map[string]string, error) {
	seen := make(map[string]bool, len(queries))
	var unique []string
	for _, q := range queries {
		key := NormalizeQuery(q)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, key)
	}

	results := make(map[string]string, len(unique))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.SearchConcurrency)
	for _, query := range unique {
		g.Go(func() error {
			content, err := o.lookup(gctx, objective, query)
			if err != nil {
				return err
			}
			mu.Lock()
			results[query] = content
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// lookup searches one query, reads the first hit and formats it
func (o *Orchestrator) lookup(ctx context.Context, objective, query string) (string, error) {
	link, err := o.svc.Search.FirstLink(ctx, query)
	if err != nil {
		return "", collaboratorErr("search", objective, err)
	}

	b := o.svc.NewBrowser()
	if err := b.Navigate(ctx, link); err != nil {
		return "", collaboratorErr("browser", objective, err)
	}
	if _, err := b.Screenshot(ctx, objective); err != nil {
		return "", collaboratorErr("browser", objective, err)
	}
	text, err := b.ExtractText(ctx)
	if err != nil {
		return "", collaboratorErr("browser", objective, err)
	}

	return invoke(ctx, o.roles.Formatter, objective, roles.FormatInput{Text: text, Objective: objective})
}
