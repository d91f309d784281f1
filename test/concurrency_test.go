package test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
)

// TestConcurrentReadsCollapse hammers one paste id from many
// goroutines and checks that the cache plus in-flight collapsing keep
// the backend hit count far below the request count. Run with -race.
func TestConcurrentReadsCollapse(t *testing.T) {
	backend := newBackend()
	server := httptest.NewServer(backend.router())
	defer server.Close()
	app := newTestApp(t, server)
	ctx := context.Background()

	app.sess.StartNew("")
	app.sess.SetContent("shared body")
	saved, err := app.sess.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	before := backend.getCount()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paste, err := app.client.Get(ctx, saved.ID)
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			if paste.Content != "shared body" {
				t.Errorf("content = %q", paste.Content)
			}
		}()
	}
	wg.Wait()

	// Create fills the read cache, so in the common case the backend
	// sees zero additional reads; singleflight bounds the worst case.
	if hits := backend.getCount() - before; hits > 1 {
		t.Errorf("backend reads = %d, want at most 1", hits)
	}
}

// TestConcurrentCreates checks the client survives parallel writers.
func TestConcurrentCreates(t *testing.T) {
	backend := newBackend()
	server := httptest.NewServer(backend.router())
	defer server.Close()
	app := newTestApp(t, server)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paste, _, err := app.client.Create(ctx, draftWithContent("concurrent content"))
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			ids <- paste.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
