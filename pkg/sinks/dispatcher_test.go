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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailpulse/retailpulse/pkg/checkpoint"
)

// captureSink records written payloads and can be made to fail the first
// failFirst attempts per message.
type captureSink struct {
	name      string
	mu        sync.Mutex
	written   [][]byte
	failFirst int
	attempts  int
}

func (c *captureSink) GetName() string { return c.name }

func (c *captureSink) Write(_ context.Context, messages []Message) []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	errs := make([]error, len(messages))
	if c.attempts <= c.failFirst {
		for i := range errs {
			errs[i] = errors.New("transient write failure")
		}
		return errs
	}
	for _, m := range messages {
		c.written = append(c.written, m.Payload)
	}
	return errs
}

func (c *captureSink) Close() error { return nil }

func testMessages(token checkpoint.Token, payloads ...string) []Message {
	msgs := make([]Message, 0, len(payloads))
	for _, p := range payloads {
		msgs = append(msgs, Message{Payload: []byte(p), Token: token})
	}
	return msgs
}

func TestDispatcher_CommitsAfterAllSinksAck(t *testing.T) {
	ctx := context.Background()
	coordinator := checkpoint.NewCoordinator(checkpoint.NewMemoryStore())
	coordinator.Observe(0, 9)

	dispatcher := NewDispatcher(coordinator, WithRetryBackoff(time.Millisecond))
	first := &captureSink{name: "first"}
	second := &captureSink{name: "second"}
	dispatcher.Register("time_kpi", first)
	dispatcher.Register("time_kpi", second)

	token := coordinator.Snapshot()
	require.NoError(t, dispatcher.Dispatch(ctx, "time_kpi", testMessages(token, `{"a":1}`, `{"a":2}`)))

	assert.Len(t, first.written, 2)
	assert.Len(t, second.written, 2)
	assert.Equal(t, map[int32]int64{0: 9}, coordinator.Committed())
}

func TestDispatcher_RetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	coordinator := checkpoint.NewCoordinator(checkpoint.NewMemoryStore())
	coordinator.Observe(0, 3)

	dispatcher := NewDispatcher(coordinator, WithRetryBackoff(time.Millisecond))
	flaky := &captureSink{name: "flaky", failFirst: 2}
	dispatcher.Register("time_kpi", flaky)

	token := coordinator.Snapshot()
	require.NoError(t, dispatcher.Dispatch(ctx, "time_kpi", testMessages(token, `{"a":1}`)))
	assert.Len(t, flaky.written, 1)
	assert.Equal(t, map[int32]int64{0: 3}, coordinator.Committed())
}

func TestDispatcher_NoCommitOnExhaustedRetries(t *testing.T) {
	ctx := context.Background()
	coordinator := checkpoint.NewCoordinator(checkpoint.NewMemoryStore())
	coordinator.Observe(0, 5)

	dispatcher := NewDispatcher(coordinator, WithMaxRetries(1), WithRetryBackoff(time.Millisecond))
	broken := &captureSink{name: "broken", failFirst: 100}
	dispatcher.Register("time_kpi", broken)

	token := coordinator.Snapshot()
	err := dispatcher.Dispatch(ctx, "time_kpi", testMessages(token, `{"a":1}`))
	assert.Error(t, err)
	// checkpoint must not advance past unacknowledged data
	assert.Empty(t, coordinator.Committed())
}

func TestDispatcher_UnknownStream(t *testing.T) {
	dispatcher := NewDispatcher(checkpoint.NewCoordinator(checkpoint.NewMemoryStore()))
	err := dispatcher.Dispatch(context.Background(), "nope", testMessages(checkpoint.Token{}, `{"a":1}`))
	assert.Error(t, err)
}

func TestDispatcher_EmptyBatchIsNoop(t *testing.T) {
	dispatcher := NewDispatcher(checkpoint.NewCoordinator(checkpoint.NewMemoryStore()))
	assert.NoError(t, dispatcher.Dispatch(context.Background(), "nope", nil))
}
