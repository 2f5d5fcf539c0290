package crawler

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a crawl run.
type State int32

const (
	// StateIdle means the run is configured but no work has started
	StateIdle State = iota
	// StateRunning means frontier consumers are fetching pages
	StateRunning
	// StateDraining means no new keys are handed out and in-flight pages are finishing
	StateDraining
	// StateCompleted is terminal: the result is fixed and exit callbacks have fired
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// stateMachine guards the Idle -> Running -> Draining -> Completed order.
type stateMachine struct {
	v atomic.Int32
}

func (m *stateMachine) load() State {
	return State(m.v.Load())
}

// advance moves forward to next. Backward moves are ignored.
func (m *stateMachine) advance(next State) bool {
	for {
		cur := m.v.Load()
		if State(cur) >= next {
			return false
		}
		if m.v.CompareAndSwap(cur, int32(next)) {
			return true
		}
	}
}

// Future is the handle returned by CrawlAsync. It resolves exactly once.
type Future struct {
	runID string
	state *stateMachine
	done  chan struct{}
	once  sync.Once
	urls  []string
	err   error
}

func newFuture(runID string, state *stateMachine) *Future {
	return &Future{
		runID: runID,
		state: state,
		done:  make(chan struct{}),
	}
}

// resolve stores the outcome; only the first call has any effect.
func (f *Future) resolve(urls []string, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.urls = urls
		f.err = err
		close(f.done)
		resolved = true
	})
	return resolved
}

// RunID identifies the crawl run behind this future.
func (f *Future) RunID() string {
	return f.runID
}

// State returns the current state of the run.
func (f *Future) State() State {
	return f.state.load()
}

// Done is closed once the run has completed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the run completes and returns its result. The error is
// non-nil only when the run was cut short by its context; the URLs are then
// the partial result.
func (f *Future) Get() ([]string, error) {
	<-f.done
	return f.result(), f.err
}

// Wait is like Get but gives up when ctx is done. Giving up does not stop
// the run.
func (f *Future) Wait(ctx context.Context) ([]string, error) {
	select {
	case <-f.done:
		return f.result(), f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) result() []string {
	out := make([]string, len(f.urls))
	copy(out, f.urls)
	return out
}
