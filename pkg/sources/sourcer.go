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

// Package sources defines the ingestion boundary: a Sourcer delivers opaque
// payloads with partition/offset metadata, at-least-once.
package sources

import (
	"context"
	"math"
)

// PendingNotAvailable is returned by Pending when the backlog cannot be
// determined.
const PendingNotAvailable = int64(math.MinInt64)

// Message is one raw payload read from a source partition. Offsets are
// monotonically increasing within a partition; delivery order within a
// partition matches offset order, but carries no event-time guarantee.
type Message struct {
	Partition int32
	Offset    int64
	Payload   []byte
}

// Sourcer is the ingestion interface consumed by the engine.
type Sourcer interface {
	// GetName returns the name of the source.
	GetName() string
	// ResumeFrom positions the source after the given committed per-partition
	// offsets. Must be called before the first Read. A source may still
	// redeliver messages at or below a committed offset; the consumer filters
	// those by offset.
	ResumeFrom(ctx context.Context, offsets map[int32]int64) error
	// Read returns up to count messages. It blocks up to the source's read
	// timeout and may return fewer messages, including none.
	Read(ctx context.Context, count int64) ([]*Message, error)
	// Ack marks the given per-partition offsets as durably reflected in
	// committed output. Only offsets covered by the checkpoint may be acked.
	Ack(ctx context.Context, offsets map[int32]int64) error
	// Pending returns the number of messages not yet read, or
	// PendingNotAvailable.
	Pending(ctx context.Context) (int64, error)
	// Close releases the source's resources.
	Close() error
}
