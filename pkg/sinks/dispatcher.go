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

package sinks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/retailpulse/retailpulse/pkg/checkpoint"
	"github.com/retailpulse/retailpulse/pkg/shared/logging"
)

const (
	defaultMaxRetries   = 5
	defaultRetryBackoff = 100 * time.Millisecond
)

// Dispatcher routes finalized rows to the sinks registered for a named
// stream. A tuple handed to Dispatch has already been removed from the
// aggregation store and is never re-drawn; failed writes are retried here,
// and the checkpoint token is committed only once every sink acknowledged
// every row.
type Dispatcher struct {
	mu          sync.RWMutex
	routes      map[string][]Sinker
	coordinator *checkpoint.Coordinator

	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.SugaredLogger
}

type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger
func WithLogger(l *zap.SugaredLogger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithMaxRetries sets how many times a failed sink write is retried before
// the stream is declared failed.
func WithMaxRetries(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxRetries = n
	}
}

// WithRetryBackoff sets the base backoff between write retries.
func WithRetryBackoff(backoff time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.retryBackoff = backoff
	}
}

// NewDispatcher returns a Dispatcher committing acked tokens to the given
// coordinator.
func NewDispatcher(coordinator *checkpoint.Coordinator, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		routes:       make(map[string][]Sinker),
		coordinator:  coordinator,
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
		logger:       logging.NewLogger(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Register adds a sink to the named stream.
func (d *Dispatcher) Register(stream string, sink Sinker) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[stream] = append(d.routes[stream], sink)
}

// Dispatch writes the batch to every sink of the stream and, when all sinks
// acknowledged all rows, commits the batch's checkpoint token. On exhausted
// retries the error is returned and the checkpoint is not advanced, so the
// unacknowledged rows stay covered by replay.
func (d *Dispatcher) Dispatch(ctx context.Context, stream string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	d.mu.RLock()
	targets := d.routes[stream]
	d.mu.RUnlock()
	if len(targets) == 0 {
		return fmt.Errorf("no sink registered for stream %q", stream)
	}

	var writeErr error
	for _, sink := range targets {
		if err := d.writeWithRetry(ctx, stream, sink, messages); err != nil {
			writeErr = multierr.Append(writeErr, err)
		}
	}
	if writeErr != nil {
		return fmt.Errorf("stream %q: %w", stream, writeErr)
	}

	rowsEmittedCount.WithLabelValues(stream).Add(float64(len(messages)))
	if err := d.coordinator.Commit(ctx, messages[0].Token); err != nil {
		return fmt.Errorf("stream %q: %w", stream, err)
	}
	return nil
}

// writeWithRetry retries only the messages that failed, with linear backoff.
func (d *Dispatcher) writeWithRetry(ctx context.Context, stream string, sink Sinker, messages []Message) error {
	remaining := messages
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * d.retryBackoff):
			}
		}
		errs := sink.Write(ctx, remaining)
		var failed []Message
		for i, err := range errs {
			if err != nil {
				failed = append(failed, remaining[i])
				sinkWriteErrorCount.WithLabelValues(stream, sink.GetName()).Inc()
				d.logger.Warnw("Sink write failed",
					zap.String("stream", stream), zap.String("sink", sink.GetName()),
					zap.Int("attempt", attempt), zap.Error(err))
			}
		}
		if len(failed) == 0 {
			return nil
		}
		remaining = failed
	}
	return fmt.Errorf("sink %q: %d message(s) unacknowledged after %d retries", sink.GetName(), len(remaining), d.maxRetries)
}

// Close closes every registered sink.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	for _, targets := range d.routes {
		for _, sink := range targets {
			err = multierr.Append(err, sink.Close())
		}
	}
	return err
}
