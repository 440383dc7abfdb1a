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

// Package trigger runs the periodic flush cadence of each output stream.
// Ticks are wall-clock scheduled but make no windowing decision themselves;
// which windows close depends only on the watermark, so output cadence and
// correctness stay orthogonal.
package trigger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/retailpulse/retailpulse/pkg/shared/logging"
)

// FlushFunc drains whatever the output has ready and hands it to its sinks.
type FlushFunc func(ctx context.Context) error

type output struct {
	name     string
	interval time.Duration
	flush    FlushFunc
}

// Scheduler owns one ticking goroutine per registered output, each on its own
// independently configured cadence.
type Scheduler struct {
	outputs []output
	logger  *zap.SugaredLogger
}

type Option func(*Scheduler)

// WithLogger sets the logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// NewScheduler returns an empty Scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger: logging.NewLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds an output with its own trigger cadence. Must be called
// before Run.
func (s *Scheduler) Register(name string, interval time.Duration, flush FlushFunc) {
	s.outputs = append(s.outputs, output{name: name, interval: interval, flush: flush})
}

// Run ticks every output until ctx is done. A flush error is logged and
// counted but does not stop the other outputs; only context cancellation
// ends the run. Callers perform the final shutdown flush themselves, after
// ingestion has stopped.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, out := range s.outputs {
		out := out
		g.Go(func() error {
			ticker := time.NewTicker(out.interval)
			defer ticker.Stop()
			s.logger.Infow("Trigger started", zap.String("output", out.name), zap.Duration("interval", out.interval))
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := out.flush(gctx); err != nil {
						triggerErrorCount.WithLabelValues(out.name).Inc()
						s.logger.Errorw("Trigger flush failed", zap.String("output", out.name), zap.Error(err))
					} else {
						triggerCount.WithLabelValues(out.name).Inc()
					}
				}
			}
		})
	}
	return g.Wait()
}
