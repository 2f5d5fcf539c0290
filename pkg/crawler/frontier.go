package crawler

import (
	"context"
	"sync"
)

// Frontier is the FIFO work queue of a single crawl run together with its
// visited set. The visited test and the enqueue happen under one lock, so a
// key is handed out at most once per run no matter how many pages link to
// it or how many consumers drain the queue.
type Frontier struct {
	mu       sync.Mutex
	queue    []string
	visited  map[string]struct{}
	inFlight int
	changed  chan struct{} // closed and replaced on every state change
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		visited: make(map[string]struct{}),
		changed: make(chan struct{}),
	}
}

// Enqueue marks key visited and appends it to the queue. It returns false,
// leaving the queue untouched, when key was already visited.
func (f *Frontier) Enqueue(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[key]; ok {
		return false
	}
	f.visited[key] = struct{}{}
	f.queue = append(f.queue, key)
	f.broadcast()
	return true
}

// MarkVisited records key as visited without queueing it. Keys rejected by
// a filter are marked so they are not evaluated again.
func (f *Frontier) MarkVisited(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[key]; ok {
		return false
	}
	f.visited[key] = struct{}{}
	return true
}

// Next hands out the next queued key and counts it as in flight until Done
// is called. While the queue is empty but other keys are in flight, Next
// waits, since their pages may add more work. It returns false when the
// queue is empty with nothing in flight, or when ctx is done.
func (f *Frontier) Next(ctx context.Context) (string, bool) {
	for {
		if ctx.Err() != nil {
			return "", false
		}

		f.mu.Lock()
		if len(f.queue) > 0 {
			key := f.queue[0]
			f.queue[0] = ""
			f.queue = f.queue[1:]
			f.inFlight++
			f.mu.Unlock()
			return key, true
		}
		if f.inFlight == 0 {
			f.mu.Unlock()
			return "", false
		}
		changed := f.changed
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-changed:
		}
	}
}

// Done releases the in-flight slot taken by Next.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight > 0 {
		f.inFlight--
	}
	f.broadcast()
}

// Len returns the number of queued keys.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Seen reports whether key has been queued or marked visited.
func (f *Frontier) Seen(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[key]
	return ok
}

// Visited returns the number of distinct keys seen so far.
func (f *Frontier) Visited() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// broadcast wakes every goroutine waiting in Next. Callers hold f.mu.
func (f *Frontier) broadcast() {
	close(f.changed)
	f.changed = make(chan struct{})
}
