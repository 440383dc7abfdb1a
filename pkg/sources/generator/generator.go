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

// Package generator provides an in-memory, replayable source. It backs the
// engine tests and the idempotent-recovery property: replaying the same
// message set from a committed offset vector reproduces identical output.
package generator

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/retailpulse/retailpulse/pkg/event"
	"github.com/retailpulse/retailpulse/pkg/sources"
)

// MemorySource replays a fixed set of messages in per-partition offset
// order. ResumeFrom skips messages at or below the committed offsets,
// simulating a restart.
type MemorySource struct {
	name string

	mu      sync.Mutex
	pending []*sources.Message
	acked   map[int32]int64
}

var _ sources.Sourcer = (*MemorySource)(nil)

// NewMemorySource returns a source replaying msgs in per-partition offset
// order.
func NewMemorySource(name string, msgs []*sources.Message) *MemorySource {
	pending := make([]*sources.Message, len(msgs))
	copy(pending, msgs)
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Partition != pending[j].Partition {
			return pending[i].Partition < pending[j].Partition
		}
		return pending[i].Offset < pending[j].Offset
	})
	return &MemorySource{
		name:    name,
		pending: pending,
		acked:   make(map[int32]int64),
	}
}

// NewEventSource is a convenience constructor placing the given records on a
// single partition with consecutive offsets, JSON-encoded the way the real
// feed is.
func NewEventSource(name string, partition int32, records []*event.EventRecord) (*MemorySource, error) {
	msgs := make([]*sources.Message, 0, len(records))
	for i, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, &sources.Message{Partition: partition, Offset: int64(i), Payload: payload})
	}
	return NewMemorySource(name, msgs), nil
}

// ResumeFrom drops all messages whose offset is at or below the committed
// offset of their partition.
func (m *MemorySource) ResumeFrom(_ context.Context, committed map[int32]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining := m.pending[:0]
	for _, msg := range m.pending {
		if offset, ok := committed[msg.Partition]; ok && msg.Offset <= offset {
			continue
		}
		remaining = append(remaining, msg)
	}
	m.pending = remaining
	return nil
}

func (m *MemorySource) GetName() string {
	return m.name
}

func (m *MemorySource) Read(_ context.Context, count int64) ([]*sources.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.pending))
	if n > count {
		n = count
	}
	msgs := make([]*sources.Message, n)
	copy(msgs, m.pending[:n])
	m.pending = m.pending[n:]
	return msgs, nil
}

func (m *MemorySource) Ack(_ context.Context, offsets map[int32]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for partition, offset := range offsets {
		if current, ok := m.acked[partition]; !ok || offset > current {
			m.acked[partition] = offset
		}
	}
	return nil
}

// Acked returns the highest acked offset per partition.
func (m *MemorySource) Acked() map[int32]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int32]int64, len(m.acked))
	for p, o := range m.acked {
		out[p] = o
	}
	return out
}

func (m *MemorySource) Pending(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.pending)), nil
}

func (m *MemorySource) Close() error {
	return nil
}
