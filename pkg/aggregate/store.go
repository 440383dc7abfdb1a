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

package aggregate

import (
	"hash/fnv"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/retailpulse/retailpulse/pkg/event"
	"github.com/retailpulse/retailpulse/pkg/window"
)

const defaultShardCount = 16

// SourceRef locates the source event that produced an update. The store
// keeps the earliest contributing offset of every open partition, which
// bounds how far the checkpoint may advance: replay must restart no later
// than the earliest offset still reflected only in open windows.
type SourceRef struct {
	Partition int32
	Offset    int64
}

// ClosedPartition is a finalized (window, key) partition drained from the
// store, ready for emission. MinOffsets is the earliest contributing offset
// per source partition; if the emission is never acknowledged, the consumer
// must keep the checkpoint below these offsets.
type ClosedPartition struct {
	Partition   window.Partition
	Accumulator Accumulator
	MinOffsets  map[int32]int64
}

type storeEntry struct {
	partition window.Partition
	endMillis int64
	acc       Accumulator
	// minOffsets is the earliest contributing offset per source partition.
	minOffsets map[int32]int64
}

// shard guards a subset of the partitions. frontier is the window-end bound
// (unix millis) at or below which windows are closed on this shard; once a
// window end falls at or below it, no update may recreate that partition.
type shard struct {
	mu       sync.Mutex
	entries  map[string]*storeEntry
	frontier int64
}

// Store is the only shared mutable structure of one grouping dimension: a
// mapping from (window, key) to its accumulator. Updates for different keys
// proceed on independent shards; updates for the same key serialize on the
// shard mutex. DrainClosed removes closed partitions atomically with respect
// to concurrent updates, so a closed window can never be silently re-opened.
type Store struct {
	dimension string
	shards    []*shard
	lateDrops *atomic.Int64
}

// NewStore returns an empty store for one grouping dimension.
func NewStore(dimension string) *Store {
	shards := make([]*shard, defaultShardCount)
	for i := range shards {
		shards[i] = &shard{
			entries:  make(map[string]*storeEntry),
			frontier: math.MinInt64,
		}
	}
	return &Store{
		dimension: dimension,
		shards:    shards,
		lateDrops: atomic.NewInt64(0),
	}
}

// Dimension returns the grouping dimension the store aggregates for.
func (s *Store) Dimension() string {
	return s.dimension
}

func (s *Store) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Update applies the record to the accumulator for (win, key), creating it
// lazily on first use. The watermark wm is the value at call time; hasWM is
// false while no event has been observed yet. If the window already closed,
// either against wm or against a previous drain, the event is dropped as
// late and false is returned.
func (s *Store) Update(win window.IntervalWindow, key string, rec *event.EnrichedRecord, ref SourceRef, wm time.Time, hasWM bool) bool {
	endMillis := win.End.UnixMilli()
	if hasWM && endMillis <= wm.UnixMilli() {
		s.lateDrops.Inc()
		lateDropCount.WithLabelValues(s.dimension).Inc()
		return false
	}

	partition := window.Partition{Window: win, Key: key}
	id := partition.String()
	sh := s.shardFor(id)

	sh.mu.Lock()
	defer sh.mu.Unlock()
	// a drain may have closed the window between the watermark check above
	// and acquiring the shard lock
	if endMillis <= sh.frontier {
		s.lateDrops.Inc()
		lateDropCount.WithLabelValues(s.dimension).Inc()
		return false
	}
	entry, ok := sh.entries[id]
	if !ok {
		entry = &storeEntry{
			partition:  partition,
			endMillis:  endMillis,
			minOffsets: make(map[int32]int64),
		}
		sh.entries[id] = entry
		openPartitionsGauge.WithLabelValues(s.dimension).Inc()
	}
	entry.acc.Add(rec)
	if current, ok := entry.minOffsets[ref.Partition]; !ok || ref.Offset < current {
		entry.minOffsets[ref.Partition] = ref.Offset
	}
	updateCount.WithLabelValues(s.dimension).Inc()
	return true
}

// DrainClosed removes and returns every partition whose window end is at or
// before the watermark, ordered by window start then key. Each shard's
// frontier advances before its entries are collected, so a racing Update for
// a drained window is rejected rather than resurrecting it. A partition is
// returned at most once across all drains.
func (s *Store) DrainClosed(wm time.Time) []ClosedPartition {
	return s.drain(wm.UnixMilli())
}

// DrainAll removes and returns every remaining partition regardless of the
// watermark. Used on shutdown for best-effort finalization of open windows.
func (s *Store) DrainAll() []ClosedPartition {
	return s.drain(math.MaxInt64)
}

func (s *Store) drain(frontierMillis int64) []ClosedPartition {
	var closed []ClosedPartition
	for _, sh := range s.shards {
		sh.mu.Lock()
		if frontierMillis > sh.frontier {
			sh.frontier = frontierMillis
		}
		for id, entry := range sh.entries {
			if entry.endMillis <= frontierMillis {
				closed = append(closed, ClosedPartition{Partition: entry.partition, Accumulator: entry.acc, MinOffsets: entry.minOffsets})
				delete(sh.entries, id)
				openPartitionsGauge.WithLabelValues(s.dimension).Dec()
			}
		}
		sh.mu.Unlock()
	}
	sort.Slice(closed, func(i, j int) bool {
		wi, wj := closed[i].Partition.Window, closed[j].Partition.Window
		if !wi.Start.Equal(wj.Start) {
			return wi.Start.Before(wj.Start)
		}
		return closed[i].Partition.Key < closed[j].Partition.Key
	})
	if len(closed) > 0 {
		closedWindowCount.WithLabelValues(s.dimension).Add(float64(len(closed)))
	}
	return closed
}

// OpenFloors returns, per source partition, the earliest offset still
// contributing to an open window. The checkpoint must not advance to or past
// these offsets, or a restart would lose their contribution.
func (s *Store) OpenFloors() map[int32]int64 {
	floors := make(map[int32]int64)
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, entry := range sh.entries {
			for partition, offset := range entry.minOffsets {
				if current, ok := floors[partition]; !ok || offset < current {
					floors[partition] = offset
				}
			}
		}
		sh.mu.Unlock()
	}
	return floors
}

// LateDrops returns the number of events rejected because their window had
// already closed.
func (s *Store) LateDrops() int64 {
	return s.lateDrops.Load()
}

// OpenPartitions returns the number of currently open (window, key)
// partitions.
func (s *Store) OpenPartitions() int {
	var n int
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}
