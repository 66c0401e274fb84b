// internal/engine/registry.go
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
)

// Observation pairs a snapshot with the parse tree it was extracted from. Doc
// is nil for degraded observations.
type Observation struct {
	Snapshot *schemas.Snapshot
	Doc      *html.Node
}

// Observer captures the current page state.
type Observer interface {
	Observe(ctx context.Context) (*schemas.Snapshot, *html.Node, error)
}

// Registry serializes observations per session key. Concurrent requests for
// the same key share a single capture through singleflight, and any capture
// that fails or overruns its deadline degrades to an empty snapshot, so the
// loop always gets an observation back.
type Registry struct {
	observer Observer
	timeout  time.Duration
	group    singleflight.Group
	logger   *zap.Logger
}

// NewRegistry builds a registry over an observer. timeout bounds each capture.
func NewRegistry(observer Observer, timeout time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		observer: observer,
		timeout:  timeout,
		logger:   logger.Named("engine.registry"),
	}
}

// Observe returns the current observation for the session key, degraded to an
// empty snapshot on failure or timeout. It never fails.
func (r *Registry) Observe(ctx context.Context, key string) Observation {
	captureCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := r.group.DoChan(key, func() (interface{}, error) {
		snap, doc, err := r.observer.Observe(captureCtx)
		if err != nil {
			return nil, err
		}
		return Observation{Snapshot: snap, Doc: doc}, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			r.logger.Warn("Observation failed; degrading to empty snapshot.",
				zap.String("key", key), zap.Error(res.Err))
			return degradedObservation()
		}
		return res.Val.(Observation)
	case <-captureCtx.Done():
		// Forget the in-flight capture so the next request starts fresh
		// instead of latching onto a stuck one.
		r.group.Forget(key)
		r.logger.Warn("Observation timed out; degrading to empty snapshot.",
			zap.String("key", key), zap.Duration("timeout", r.timeout))
		return degradedObservation()
	}
}

func degradedObservation() Observation {
	return Observation{Snapshot: schemas.EmptySnapshot()}
}
