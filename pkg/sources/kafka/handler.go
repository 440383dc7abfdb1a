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
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/retailpulse/retailpulse/pkg/shared/logging"
)

// consumerHandler struct
type consumerHandler struct {
	ready       chan bool
	readyCloser sync.Once
	messages    chan *sarama.ConsumerMessage
	sess        sarama.ConsumerGroupSession
	sessLock    sync.RWMutex
	resumeTopic string
	resume      map[int32]int64
	resumeLock  sync.Mutex
	logger      *zap.SugaredLogger
}

// new handler initializes the channel for passing messages
func newConsumerHandler(readChanSize int) *consumerHandler {
	return &consumerHandler{
		ready:    make(chan bool),
		messages: make(chan *sarama.ConsumerMessage, readChanSize),
		logger:   logging.NewLogger(),
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (consumer *consumerHandler) Setup(sess sarama.ConsumerGroupSession) error {
	consumer.sessLock.Lock()
	consumer.sess = sess
	consumer.sessLock.Unlock()
	consumer.resumeLock.Lock()
	// marks only move forward, so a group position already past the
	// checkpoint is left alone
	for partition, offset := range consumer.resume {
		sess.MarkOffset(consumer.resumeTopic, partition, offset+1, "")
	}
	consumer.resumeLock.Unlock()
	consumer.readyCloser.Do(func() {
		close(consumer.ready)
	})
	return nil
}

// setResume records offsets already covered by the checkpoint. Every new
// session starts its marks right after them, so the consumer group can never
// resume behind the checkpoint.
func (consumer *consumerHandler) setResume(topic string, offsets map[int32]int64) {
	consumer.resumeLock.Lock()
	defer consumer.resumeLock.Unlock()
	consumer.resumeTopic = topic
	consumer.resume = make(map[int32]int64, len(offsets))
	for partition, offset := range offsets {
		consumer.resume[partition] = offset
	}
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (consumer *consumerHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	sess.Commit()
	return nil
}

// markOffset records the next offset to read for the partition on the live
// session, if there is one.
func (consumer *consumerHandler) markOffset(topic string, partition int32, offset int64) bool {
	consumer.sessLock.RLock()
	defer consumer.sessLock.RUnlock()
	if consumer.sess == nil {
		return false
	}
	consumer.sess.MarkOffset(topic, partition, offset+1, "")
	return true
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
func (consumer *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	// The `ConsumeClaim` itself is called within a goroutine, see:
	// https://github.com/IBM/sarama/blob/main/consumer_group.go#L27-L29
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			consumer.messages <- msg
		case <-session.Context().Done():
			consumer.logger.Info("context was canceled, stopping consumer claim")
			return nil
		}
	}
}
