package crawler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestFrontierFIFOAndDedup(t *testing.T) {
	f := NewFrontier()
	ctx := context.Background()

	if !f.Enqueue("a") || !f.Enqueue("b") || !f.Enqueue("c") {
		t.Fatal("first enqueue of each key should succeed")
	}
	if f.Enqueue("b") {
		t.Error("duplicate enqueue should be a no-op")
	}
	if f.Len() != 3 {
		t.Errorf("Len() = %d, want 3", f.Len())
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok := f.Next(ctx)
		if !ok || got != want {
			t.Fatalf("Next() = %q, %v; want %q", got, ok, want)
		}
		f.Done()
	}

	if _, ok := f.Next(ctx); ok {
		t.Error("Next() on drained frontier should report empty")
	}

	if f.Enqueue("a") {
		t.Error("a dequeued key stays visited")
	}
	if f.Visited() != 3 {
		t.Errorf("Visited() = %d, want 3", f.Visited())
	}
}

func TestFrontierMarkVisited(t *testing.T) {
	f := NewFrontier()

	if !f.MarkVisited("x") {
		t.Error("first MarkVisited should succeed")
	}
	if f.Enqueue("x") {
		t.Error("marked key must not be enqueued")
	}
	if !f.Seen("x") {
		t.Error("Seen should report marked key")
	}
	if f.Len() != 0 {
		t.Errorf("Len() = %d, want 0", f.Len())
	}
}

func TestFrontierNextWaitsForInFlight(t *testing.T) {
	f := NewFrontier()
	ctx := context.Background()
	f.Enqueue("seed")

	if _, ok := f.Next(ctx); !ok {
		t.Fatal("expected seed")
	}

	got := make(chan string, 1)
	go func() {
		key, _ := f.Next(ctx)
		got <- key
	}()

	select {
	case <-got:
		t.Fatal("Next should block while a key is in flight")
	case <-time.After(20 * time.Millisecond):
	}

	f.Enqueue("child")
	f.Done()

	select {
	case key := <-got:
		if key != "child" {
			t.Errorf("Next() = %q, want child", key)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not wake up")
	}
}

func TestFrontierNextReturnsWhenIdle(t *testing.T) {
	f := NewFrontier()
	ctx := context.Background()
	f.Enqueue("seed")
	_, _ = f.Next(ctx)

	done := make(chan bool, 1)
	go func() {
		_, ok := f.Next(ctx)
		done <- ok
	}()

	f.Done()
	select {
	case ok := <-done:
		if ok {
			t.Error("Next should report empty once nothing is in flight")
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not return")
	}
}

func TestFrontierNextContextCancelled(t *testing.T) {
	f := NewFrontier()
	f.Enqueue("a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := f.Next(ctx); ok {
		t.Error("Next should not hand out work after cancellation")
	}
}

func TestFrontierConcurrentEnqueue(t *testing.T) {
	f := NewFrontier()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if f.Enqueue(fmt.Sprintf("key-%d", i)) {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if accepted != 100 {
		t.Errorf("accepted %d enqueues, want 100", accepted)
	}
	if f.Len() != 100 {
		t.Errorf("Len() = %d, want 100", f.Len())
	}
}

func TestResultSet(t *testing.T) {
	r := NewResultSet()
	r.Add("b")
	r.Add("a")
	if r.Add("b") {
		t.Error("duplicate Add should report false")
	}

	urls := r.URLs()
	if len(urls) != 2 || urls[0] != "b" || urls[1] != "a" {
		t.Errorf("URLs() = %v, want [b a]", urls)
	}
	urls[0] = "mutated"
	if !r.Contains("b") || r.URLs()[0] != "b" {
		t.Error("URLs() must return a copy")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}
