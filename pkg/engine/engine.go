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

// Package engine wires the pipeline together: source ingestion, event
// decoding and enrichment, sliding-window aggregation per grouping
// dimension, watermark tracking, periodic triggers, sink dispatch and
// checkpointing.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/retailpulse/retailpulse/pkg/aggregate"
	"github.com/retailpulse/retailpulse/pkg/checkpoint"
	"github.com/retailpulse/retailpulse/pkg/config"
	"github.com/retailpulse/retailpulse/pkg/event"
	"github.com/retailpulse/retailpulse/pkg/shared/logging"
	"github.com/retailpulse/retailpulse/pkg/sinks"
	"github.com/retailpulse/retailpulse/pkg/sources"
	"github.com/retailpulse/retailpulse/pkg/trigger"
	"github.com/retailpulse/retailpulse/pkg/watermark"
	"github.com/retailpulse/retailpulse/pkg/window"
)

const defaultShutdownTimeout = 30 * time.Second

type summaryEntry struct {
	payload   []byte
	eventTime time.Time
}

// Engine runs the streaming analytics pipeline. Workers pull message batches
// from the source; each message is decoded, enriched, applied to every
// grouping dimension's window store and buffered for the raw summary stream.
// The trigger scheduler periodically drains closed windows to the sinks; the
// checkpoint advances only after sink acknowledgement.
type Engine struct {
	conf        *config.Config
	source      sources.Sourcer
	dispatcher  *sinks.Dispatcher
	coordinator *checkpoint.Coordinator

	assigner   *window.Sliding
	tracker    *watermark.Tracker
	scheduler  *trigger.Scheduler
	dimensions []*dimensionState

	summaryMu    sync.Mutex
	summaryBuf   []summaryEntry
	summaryFloor map[int32]int64

	// lostFloors is the earliest offset per partition whose rows were handed
	// to a sink but never acknowledged. The checkpoint stays below them so a
	// restart replays the lost rows.
	lostMu     sync.Mutex
	lostFloors map[int32]int64

	// resumeFloor is the committed offset vector at startup; redelivered
	// messages at or below it are already reflected in committed output
	resumeFloor map[int32]int64

	workers int
	logger  *zap.SugaredLogger
}

type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithWorkers sets the number of ingestion workers. The default of one
// preserves per-partition processing order; more workers are safe because
// the accumulators are commutative, only the raw summary emission order
// becomes nondeterministic.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// New builds an Engine over the given source, sink dispatcher and checkpoint
// coordinator. The configured grouping dimensions each get an independent
// aggregation store.
func New(conf *config.Config, source sources.Sourcer, dispatcher *sinks.Dispatcher, coordinator *checkpoint.Coordinator, opts ...Option) (*Engine, error) {
	assigner, err := window.NewSliding(conf.WindowLength, conf.SlideInterval)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		conf:         conf,
		source:       source,
		dispatcher:   dispatcher,
		coordinator:  coordinator,
		assigner:     assigner,
		tracker:      watermark.NewTracker(conf.AllowedLateness),
		summaryFloor: make(map[int32]int64),
		lostFloors:   make(map[int32]int64),
		workers:      1,
		logger:       logging.NewLogger(),
	}
	for _, o := range opts {
		o(e)
	}
	// the source learns about progress only through committed checkpoints, so
	// its own position can never run ahead of replayability
	coordinator.SetCommitListener(func(ctx context.Context, offsets map[int32]int64) {
		if err := source.Ack(ctx, offsets); err != nil {
			e.logger.Warnw("Failed to ack committed offsets to source", zap.Error(err))
		}
	})
	e.scheduler = trigger.NewScheduler(trigger.WithLogger(e.logger))
	for _, name := range conf.GroupingDimensions {
		dim, err := newDimensionState(name, conf)
		if err != nil {
			return nil, err
		}
		e.dimensions = append(e.dimensions, dim)
	}
	return e, nil
}

// Run restores the checkpoint, starts the trigger scheduler and the
// ingestion workers, and blocks until ctx is done. On cancellation intake
// stops first, then every remaining window is drained and dispatched
// best-effort and the final checkpoint is persisted.
func (e *Engine) Run(ctx context.Context) error {
	committed, err := e.coordinator.Restore(ctx)
	if err != nil {
		return err
	}
	if err := e.source.ResumeFrom(ctx, committed); err != nil {
		return err
	}
	e.resumeFloor = make(map[int32]int64, len(committed))
	for p, o := range committed {
		e.resumeFloor[p] = o
	}

	e.scheduler.Register(config.StreamRawSummary, e.conf.Sinks.RawSummary.TriggerInterval, e.flushSummary)
	for _, dim := range e.dimensions {
		dim := dim
		e.scheduler.Register(dim.stream, dim.triggerInterval, func(ctx context.Context) error {
			return e.flushDimension(ctx, dim)
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.scheduler.Run(gctx)
	})
	for i := 0; i < e.workers; i++ {
		g.Go(func() error {
			return e.runWorker(gctx)
		})
	}
	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	e.logger.Info("Ingestion stopped, flushing remaining windows")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	return multierr.Append(runErr, e.finalFlush(shutdownCtx))
}

func (e *Engine) runWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		msgs, err := e.source.Read(ctx, e.conf.ReadBatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.logger.Errorw("Failed to read from source", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(e.conf.ReadTimeout):
			}
			continue
		}
		if len(msgs) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(e.conf.ReadTimeout):
			}
			continue
		}
		// no source ack here: acks follow committed checkpoints only
		for _, msg := range msgs {
			e.processMessage(msg)
		}
	}
}

// processMessage applies one source message to the pipeline. Malformed
// payloads are counted and dropped; their offset is still observed so the
// checkpoint can pass over them.
func (e *Engine) processMessage(msg *sources.Message) {
	eventsReadCount.Inc()
	if floor, ok := e.resumeFloor[msg.Partition]; ok && msg.Offset <= floor {
		// redelivered below the restored checkpoint; its output is already
		// committed
		return
	}
	record, err := event.Decode(msg.Payload)
	if err != nil {
		decodeErrorCount.Inc()
		e.logger.Warnw("Dropping malformed event",
			zap.Int32("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		e.coordinator.Observe(msg.Partition, msg.Offset)
		return
	}
	enriched := event.Enrich(record)

	wm, hasWM := e.tracker.Current()
	ref := aggregate.SourceRef{Partition: msg.Partition, Offset: msg.Offset}
	for _, dim := range e.dimensions {
		key := dim.keyFn(enriched)
		for _, win := range e.assigner.AssignWindows(enriched.EventTime) {
			dim.store.Update(win, key, enriched, ref, wm, hasWM)
		}
	}
	// the watermark advances only after the record is fully applied, so the
	// record can never close a window it still belongs to
	e.tracker.Observe(enriched.EventTime)
	if current, ok := e.tracker.Current(); ok {
		watermarkGauge.Set(float64(current.UnixMilli()))
	}

	e.bufferSummary(enriched, msg)
	e.coordinator.Observe(msg.Partition, msg.Offset)
}

func (e *Engine) bufferSummary(enriched *event.EnrichedRecord, msg *sources.Message) {
	payload, err := json.Marshal(enriched.SummaryRow())
	if err != nil {
		e.logger.Errorw("Failed to encode summary row", zap.Error(err))
		return
	}
	e.summaryMu.Lock()
	defer e.summaryMu.Unlock()
	e.summaryBuf = append(e.summaryBuf, summaryEntry{payload: payload, eventTime: enriched.EventTime})
	if current, ok := e.summaryFloor[msg.Partition]; !ok || msg.Offset < current {
		e.summaryFloor[msg.Partition] = msg.Offset
	}
}

// checkpointToken caps the processed offsets at the earliest offset still
// contributing to an open window or to an unflushed summary row. Committing
// the capped token leaves every such offset replayable, so a restart rebuilds
// the open state exactly.
func (e *Engine) checkpointToken() checkpoint.Token {
	token := e.coordinator.Snapshot()
	capFloors := func(floors map[int32]int64) {
		for partition, floor := range floors {
			current, ok := token.Offsets[partition]
			if !ok || floor-1 >= current {
				continue
			}
			if floor == 0 {
				delete(token.Offsets, partition)
			} else {
				token.Offsets[partition] = floor - 1
			}
		}
	}
	for _, dim := range e.dimensions {
		capFloors(dim.store.OpenFloors())
	}
	e.summaryMu.Lock()
	floors := make(map[int32]int64, len(e.summaryFloor))
	for p, o := range e.summaryFloor {
		floors[p] = o
	}
	e.summaryMu.Unlock()
	capFloors(floors)
	e.lostMu.Lock()
	lost := make(map[int32]int64, len(e.lostFloors))
	for p, o := range e.lostFloors {
		lost[p] = o
	}
	e.lostMu.Unlock()
	capFloors(lost)
	return token
}

// recordLostFloors pins the checkpoint below rows that were drained but
// never acknowledged by their sinks. They stay pinned until restart, when
// replay regenerates the rows.
func (e *Engine) recordLostFloors(floors map[int32]int64) {
	e.lostMu.Lock()
	defer e.lostMu.Unlock()
	for partition, offset := range floors {
		if current, ok := e.lostFloors[partition]; !ok || offset < current {
			e.lostFloors[partition] = offset
		}
	}
}

// flushSummary hands the buffered raw summary rows to the sinks. Rows taken
// from the buffer are not retried beyond the dispatcher's retries; a failed
// batch stays covered by the checkpoint and reappears on replay.
func (e *Engine) flushSummary(ctx context.Context) error {
	e.summaryMu.Lock()
	buf := e.summaryBuf
	floors := e.summaryFloor
	e.summaryBuf = nil
	e.summaryFloor = make(map[int32]int64)
	e.summaryMu.Unlock()
	if len(buf) == 0 {
		return nil
	}
	token := e.checkpointToken()
	msgs := make([]sinks.Message, len(buf))
	for i, entry := range buf {
		msgs[i] = sinks.Message{Payload: entry.payload, EventTime: entry.eventTime, Token: token}
	}
	if err := e.dispatcher.Dispatch(ctx, config.StreamRawSummary, msgs); err != nil {
		e.recordLostFloors(floors)
		return err
	}
	return nil
}

// flushDimension drains the dimension's windows closed by the current
// watermark and dispatches them. With no watermark yet, nothing can close. A
// halted dimension stops draining; its windows stay open and pin the
// checkpoint.
func (e *Engine) flushDimension(ctx context.Context, dim *dimensionState) error {
	if dim.halted.Load() {
		return nil
	}
	wm, ok := e.tracker.Current()
	if !ok {
		return nil
	}
	return e.dispatchClosed(ctx, dim, dim.store.DrainClosed(wm))
}

func (e *Engine) dispatchClosed(ctx context.Context, dim *dimensionState, closed []aggregate.ClosedPartition) error {
	if len(closed) == 0 {
		return nil
	}
	floors := make(map[int32]int64)
	for _, cp := range closed {
		for partition, offset := range cp.MinOffsets {
			if current, ok := floors[partition]; !ok || offset < current {
				floors[partition] = offset
			}
		}
	}
	// the token is taken after the drain so the drained windows no longer
	// hold the checkpoint back
	token := e.checkpointToken()
	msgs := make([]sinks.Message, 0, len(closed))
	for _, cp := range closed {
		payload, err := dim.rowFn(cp.Partition, cp.Accumulator)
		if err != nil {
			e.recordLostFloors(floors)
			return err
		}
		msgs = append(msgs, sinks.Message{Payload: payload, EventTime: cp.Partition.Window.End, Token: token})
	}
	if err := e.dispatcher.Dispatch(ctx, dim.stream, msgs); err != nil {
		// the drained rows cannot be re-drawn; pin the checkpoint below
		// their offsets and stop the dimension so no further rows are lost
		e.recordLostFloors(floors)
		dim.halted.Store(true)
		e.logger.Errorw("Halting dimension after unacknowledged sink writes",
			zap.String("dimension", dim.name), zap.Error(err))
		return err
	}
	return nil
}

// finalFlush force-closes every remaining window, flushes the summary buffer
// and persists the final checkpoint. Only called after ingestion stopped.
func (e *Engine) finalFlush(ctx context.Context) error {
	var err error
	for _, dim := range e.dimensions {
		err = multierr.Append(err, e.dispatchClosed(ctx, dim, dim.store.DrainAll()))
	}
	err = multierr.Append(err, e.flushSummary(ctx))
	if err != nil {
		return err
	}
	return e.coordinator.Commit(ctx, e.checkpointToken())
}
