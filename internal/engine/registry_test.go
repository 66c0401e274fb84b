// internal/engine/registry_test.go
package engine_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/engine"
)

type fakeObserver struct {
	mu    sync.Mutex
	calls int32
	snap  *schemas.Snapshot
	doc   *html.Node
	err   error
	delay time.Duration
	gate  chan struct{}
}

func (f *fakeObserver) Observe(ctx context.Context) (*schemas.Snapshot, *html.Node, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.doc, f.err
}

func TestRegistryObserveReturnsCapture(t *testing.T) {
	snap := schemas.EmptySnapshot()
	snap.URL = "https://example.com"
	obs := &fakeObserver{snap: snap, doc: &html.Node{Type: html.DocumentNode}}
	reg := engine.NewRegistry(obs, time.Second, zap.NewNop())

	got := reg.Observe(context.Background(), "session-1")
	require.NotNil(t, got.Snapshot)
	assert.Equal(t, "https://example.com", got.Snapshot.URL)
	assert.NotNil(t, got.Doc)
}

func TestRegistryObserveDegradesOnFailure(t *testing.T) {
	obs := &fakeObserver{err: errors.New("tab crashed")}
	reg := engine.NewRegistry(obs, time.Second, zap.NewNop())

	got := reg.Observe(context.Background(), "session-1")
	require.NotNil(t, got.Snapshot)
	assert.True(t, got.Snapshot.IsEmpty())
	assert.Nil(t, got.Doc)
}

func TestRegistryObserveDegradesOnTimeout(t *testing.T) {
	obs := &fakeObserver{snap: schemas.EmptySnapshot(), delay: 5 * time.Second}
	reg := engine.NewRegistry(obs, 50*time.Millisecond, zap.NewNop())

	start := time.Now()
	got := reg.Observe(context.Background(), "session-1")
	assert.Less(t, time.Since(start), time.Second)
	require.NotNil(t, got.Snapshot)
	assert.True(t, got.Snapshot.IsEmpty())
}

func TestRegistryObserveSharesInflightCapture(t *testing.T) {
	gate := make(chan struct{})
	snap := schemas.EmptySnapshot()
	snap.Title = "shared"
	obs := &fakeObserver{snap: snap, gate: gate}
	reg := engine.NewRegistry(obs, 2*time.Second, zap.NewNop())

	const workers = 4
	results := make(chan engine.Observation, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- reg.Observe(context.Background(), "same-key")
		}()
	}

	// Let every caller pile onto the same flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(results)

	for got := range results {
		require.NotNil(t, got.Snapshot)
		assert.Equal(t, "shared", got.Snapshot.Title)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&obs.calls))
}
