package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/masahif/tadoru/pkg/crawler"
)

// newPageLogger reports each fetched page through logger.
func newPageLogger(logger *slog.Logger) crawler.Action {
	return crawler.ActionFunc(func(ctx context.Context, page crawler.FetchedPage) error {
		attrs := []any{
			"url", page.URL,
			"status", page.StatusCode,
			"bytes", len(page.Body),
			"links", len(page.Links),
			"duration_ms", page.Duration.Milliseconds(),
		}
		switch {
		case page.Failed():
			logger.Warn("Fetch failed", append(attrs, "error", page.Err)...)
		case page.IsError():
			logger.Warn("Error page", attrs...)
		default:
			logger.Debug("Page", attrs...)
		}
		return nil
	})
}

// actionChain runs every action for each page, in order, and joins their
// errors. Run starts are forwarded to the members that want them.
type actionChain []crawler.Action

func chainActions(actions ...crawler.Action) crawler.Action {
	if len(actions) == 1 {
		return actions[0]
	}
	return actionChain(actions)
}

func (c actionChain) Execute(ctx context.Context, page crawler.FetchedPage) error {
	var errs []error
	for _, a := range c {
		if err := a.Execute(ctx, page); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c actionChain) RunStarted(ctx context.Context, runID, seed string) error {
	var errs []error
	for _, a := range c {
		if starter, ok := a.(crawler.RunStarter); ok {
			if err := starter.RunStarted(ctx, runID, seed); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
