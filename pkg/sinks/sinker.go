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

// Package sinks defines the output boundary: named append-only streams whose
// finalized rows are handed to sink writers exactly once, and the dispatcher
// gating checkpoint advancement on sink acknowledgement.
package sinks

import (
	"context"
	"time"

	"github.com/retailpulse/retailpulse/pkg/checkpoint"
)

// Message is one finalized output row handed to a sink, alongside the
// checkpoint token covering the source offsets it reflects.
type Message struct {
	// Payload is the encoded row.
	Payload []byte
	// EventTime is the window end for windowed rows, the record's event time
	// for raw summary rows.
	EventTime time.Time
	// Token covers the source offsets reflected in this row's batch.
	Token checkpoint.Token
}

// Sinker writes messages to one physical target. Write returns one error
// slot per message; a nil slot acknowledges durable write of that message.
type Sinker interface {
	// GetName returns the sink name.
	GetName() string
	// Write writes the batch, returning per-message errors.
	Write(ctx context.Context, messages []Message) []error
	// Close flushes and releases the sink.
	Close() error
}
