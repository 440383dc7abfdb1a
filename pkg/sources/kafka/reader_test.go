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

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailpulse/retailpulse/pkg/shared/logging"
)

func TestNewKafkaSource(t *testing.T) {
	ks, err := NewKafkaSource([]string{"b1"}, "invoices", "retailpulse",
		WithLogger(logging.NewLogger()), WithBufferSize(100), WithReadTimeOut(100*time.Millisecond))

	// no errors if everything is good.
	require.NoError(t, err)
	require.NotNil(t, ks)

	assert.Equal(t, "retailpulse", ks.groupName)
	assert.Equal(t, "kafka-invoices", ks.GetName())

	// config is all set and initialized correctly
	assert.NotNil(t, ks.config)
	assert.Equal(t, 100, ks.handlerBuffer)
	assert.Equal(t, 100*time.Millisecond, ks.readTimeout)
	assert.Equal(t, 100, cap(ks.handler.messages))
	assert.True(t, ks.config.Consumer.Return.Errors)
}

func TestNewKafkaSource_Validation(t *testing.T) {
	_, err := NewKafkaSource(nil, "invoices", "g")
	assert.Error(t, err)
	_, err = NewKafkaSource([]string{"b1"}, "", "g")
	assert.Error(t, err)
}

func TestDefaultBufferSize(t *testing.T) {
	ks, err := NewKafkaSource([]string{"b1"}, "invoices", "retailpulse", WithReadTimeOut(100*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 100, ks.handlerBuffer)
}

func TestRead_DrainsBufferedMessagesAndTimesOut(t *testing.T) {
	ks, err := NewKafkaSource([]string{"b1"}, "invoices", "retailpulse",
		WithBufferSize(10), WithReadTimeOut(50*time.Millisecond))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ks.handler.messages <- &sarama.ConsumerMessage{
			Topic:     "invoices",
			Partition: 0,
			Offset:    int64(i),
			Value:     []byte(`{}`),
		}
	}

	msgs, err := ks.Read(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, int32(0), m.Partition)
		assert.Equal(t, int64(i), m.Offset)
	}
}

func TestAck_NoSession(t *testing.T) {
	ks, err := NewKafkaSource([]string{"b1"}, "invoices", "retailpulse")
	require.NoError(t, err)

	// acks without a live consumer session must surface an error rather than
	// silently dropping the offsets
	err = ks.Ack(context.Background(), map[int32]int64{0: 5})
	assert.Error(t, err)
}

// fakeSession records offset marks in place of a live consumer group session.
type fakeSession struct {
	marks map[string]map[int32]int64
}

func newFakeSession() *fakeSession {
	return &fakeSession{marks: make(map[string]map[int32]int64)}
}

func (f *fakeSession) Claims() map[string][]int32 { return nil }
func (f *fakeSession) MemberID() string           { return "member-1" }
func (f *fakeSession) GenerationID() int32        { return 1 }

func (f *fakeSession) MarkOffset(topic string, partition int32, offset int64, _ string) {
	if f.marks[topic] == nil {
		f.marks[topic] = make(map[int32]int64)
	}
	f.marks[topic][partition] = offset
}

func (f *fakeSession) Commit()                                     {}
func (f *fakeSession) ResetOffset(string, int32, int64, string)    {}
func (f *fakeSession) MarkMessage(*sarama.ConsumerMessage, string) {}
func (f *fakeSession) Context() context.Context                    { return context.Background() }

func TestResumeFrom_MarksSessionAfterCommitted(t *testing.T) {
	ks, err := NewKafkaSource([]string{"b1"}, "invoices", "retailpulse")
	require.NoError(t, err)
	require.NoError(t, ks.ResumeFrom(context.Background(), map[int32]int64{0: 41, 2: 7}))

	sess := newFakeSession()
	require.NoError(t, ks.handler.Setup(sess))

	// every new session starts right after the committed offsets
	assert.Equal(t, map[int32]int64{0: 42, 2: 8}, sess.marks["invoices"])

	// an acked (committed) offset marks the next offset to read
	require.NoError(t, ks.Ack(context.Background(), map[int32]int64{0: 45}))
	assert.Equal(t, int64(46), sess.marks["invoices"][0])
}
