package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// dispatcher hands every fetched page to the caller's Action, isolating its
// failures from the crawl.
type dispatcher struct {
	action Action
	logger *slog.Logger
	errors atomic.Int64
}

// dispatch invokes the action once. Errors and panics are logged, counted
// and returned, never propagated into the crawl loop.
func (d *dispatcher) dispatch(ctx context.Context, page FetchedPage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanic, r)
		}
		if err != nil {
			d.errors.Add(1)
			d.logger.Warn("Page action failed", "url", page.URL, "status", page.StatusCode, "error", err)
		}
	}()

	return d.action.Execute(ctx, page)
}

// failures returns the number of isolated action failures.
func (d *dispatcher) failures() int {
	return int(d.errors.Load())
}

// exitNotifier fires the exit callbacks of one run exactly once.
type exitNotifier struct {
	callbacks []ExitCallback
	logger    *slog.Logger
	once      sync.Once
}

func newExitNotifier(callbacks []ExitCallback, logger *slog.Logger) *exitNotifier {
	cbs := make([]ExitCallback, len(callbacks))
	copy(cbs, callbacks)
	return &exitNotifier{callbacks: cbs, logger: logger}
}

// notify calls each callback in registration order with its own copy of
// urls. Later calls are no-ops.
func (n *exitNotifier) notify(urls []string) {
	n.once.Do(func() {
		for i, cb := range n.callbacks {
			n.call(i, cb, urls)
		}
	})
}

func (n *exitNotifier) call(index int, cb ExitCallback, urls []string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("Exit callback panicked", "callback", index, "panic", r)
		}
	}()

	result := make([]string, len(urls))
	copy(result, urls)
	cb.CallBack(result)
}
