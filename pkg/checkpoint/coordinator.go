/*
Copyright 2024 The RetailPulse Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/retailpulse/retailpulse/pkg/shared/logging"
)

// Token is a snapshot of the per-partition processed offsets, taken when a
// batch of finalized rows is handed to the sinks. Committing the token after
// all sinks acknowledged advances the durable checkpoint: accumulators are
// derivable state, offsets are the durable index.
type Token struct {
	Offsets map[int32]int64
}

// Coordinator tracks processed offsets per partition and advances the
// committed offset vector only after sink acknowledgement. On restart,
// replay begins at committed offset + 1; since accumulators are pure sums,
// replaying a partially open window from scratch reproduces identical
// results.
type Coordinator struct {
	mu        sync.Mutex
	processed map[int32]int64
	committed map[int32]int64
	store     Store
	onCommit  func(context.Context, map[int32]int64)
	logger    *zap.SugaredLogger
}

type Option func(*Coordinator)

// WithLogger sets the logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// NewCoordinator returns a Coordinator persisting through the given store.
func NewCoordinator(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		processed: make(map[int32]int64),
		committed: make(map[int32]int64),
		store:     store,
		logger:    logging.NewLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Restore loads the committed offset vector from the store. Must be called
// before ingestion starts.
func (c *Coordinator) Restore(ctx context.Context) (map[int32]int64, error) {
	offsets, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore checkpoint: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for p, o := range offsets {
		c.committed[p] = o
		c.processed[p] = o
	}
	if len(offsets) > 0 {
		c.logger.Infow("Restored checkpoint", zap.Any("offsets", offsets))
	}
	return offsets, nil
}

// SetCommitListener registers fn, invoked with the newly advanced offsets
// after every successful commit. The engine uses it to ack the source, so
// source-side positions never run ahead of the checkpoint.
func (c *Coordinator) SetCommitListener(fn func(context.Context, map[int32]int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCommit = fn
}

// Observe records that the event at (partition, offset) has been fully
// applied to the aggregation state.
func (c *Coordinator) Observe(partition int32, offset int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.processed[partition]; !ok || offset > current {
		c.processed[partition] = offset
	}
}

// Snapshot returns a token of the current processed offsets.
func (c *Coordinator) Snapshot() Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	offsets := make(map[int32]int64, len(c.processed))
	for p, o := range c.processed {
		offsets[p] = o
	}
	return Token{Offsets: offsets}
}

// Commit advances the committed offsets to the token's and persists them.
// Called by the sink dispatcher once every sink acknowledged the rows the
// token covers; never called for unacknowledged data.
func (c *Coordinator) Commit(ctx context.Context, token Token) error {
	c.mu.Lock()
	advanced := make(map[int32]int64)
	for partition, offset := range token.Offsets {
		if current, ok := c.committed[partition]; !ok || offset > current {
			c.committed[partition] = offset
			advanced[partition] = offset
		}
	}
	onCommit := c.onCommit
	c.mu.Unlock()
	if len(advanced) == 0 {
		return nil
	}
	if err := c.store.Save(ctx, advanced); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	commitCount.Inc()
	if onCommit != nil {
		onCommit(ctx, advanced)
	}
	return nil
}

// Committed returns the committed offset vector.
func (c *Coordinator) Committed() map[int32]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int32]int64, len(c.committed))
	for p, o := range c.committed {
		out[p] = o
	}
	return out
}
