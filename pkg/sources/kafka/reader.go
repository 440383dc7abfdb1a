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

// Package kafka implements the Sourcer interface on top of a Kafka consumer
// group.
package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/retailpulse/retailpulse/pkg/shared/logging"
	"github.com/retailpulse/retailpulse/pkg/sources"
)

// KafkaSource reads raw invoice payloads from a Kafka topic through a
// consumer group. At-least-once: offsets are marked only after the engine
// acks them.
type KafkaSource struct {
	// topic to consume messages from
	topic string
	// kafka brokers
	brokers []string
	// group name for the consumer group
	groupName string
	// handler for a kafka consumer group
	handler *consumerHandler
	// sarama config for kafka consumer group
	config *sarama.Config
	// logger
	logger *zap.SugaredLogger
	// channel to indicate that the consumer loop is done
	stopCh chan struct{}
	// context cancel function
	cancelFn context.CancelFunc
	// lifecycle context
	lifecycleCtx context.Context
	// size of the buffer that holds consumed but yet to be forwarded messages
	handlerBuffer int
	// read timeout for the from buffer
	readTimeout time.Duration
	// client used to calculate pending messages
	adminClient sarama.ClusterAdmin
	// sarama client
	saramaClient sarama.Client
}

var _ sources.Sourcer = (*KafkaSource)(nil)

type Option func(*KafkaSource) error

// WithLogger is used to return logger information
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *KafkaSource) error {
		o.logger = l
		return nil
	}
}

// WithBufferSize is used to return size of message channel information
func WithBufferSize(s int) Option {
	return func(o *KafkaSource) error {
		o.handlerBuffer = s
		return nil
	}
}

// WithReadTimeOut is used to set the read timeout for the from buffer
func WithReadTimeOut(t time.Duration) Option {
	return func(o *KafkaSource) error {
		o.readTimeout = t
		return nil
	}
}

// WithSaramaConfig is used to override the default sarama config
func WithSaramaConfig(c *sarama.Config) Option {
	return func(o *KafkaSource) error {
		o.config = c
		return nil
	}
}

// NewKafkaSource returns a KafkaSource reader based on a Kafka consumer
// group. Start must be called before Read.
func NewKafkaSource(brokers []string, topic, groupName string, opts ...Option) (*KafkaSource, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	kafkaSource := &KafkaSource{
		topic:         topic,
		brokers:       brokers,
		groupName:     groupName,
		readTimeout:   1 * time.Second, // default timeout
		handlerBuffer: 100,             // default buffer size for kafka reads
		logger:        logging.NewLogger(),
	}
	for _, o := range opts {
		if err := o(kafkaSource); err != nil {
			return nil, err
		}
	}
	if kafkaSource.config == nil {
		config := sarama.NewConfig()
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
		config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
		kafkaSource.config = config
	}
	// return errors from the underlying kafka client using the Errors channel
	kafkaSource.config.Consumer.Return.Errors = true

	sarama.Logger = zap.NewStdLog(kafkaSource.logger.Desugar())

	ctx, cancel := context.WithCancel(context.Background())
	kafkaSource.cancelFn = cancel
	kafkaSource.lifecycleCtx = ctx
	kafkaSource.stopCh = make(chan struct{})
	kafkaSource.handler = newConsumerHandler(kafkaSource.handlerBuffer)
	return kafkaSource, nil
}

func (r *KafkaSource) GetName() string {
	return fmt.Sprintf("kafka-%s", r.topic)
}

// Start connects to the brokers and starts the consumer group loop. It
// returns once the consumer session is ready.
func (r *KafkaSource) Start() error {
	client, err := sarama.NewClient(r.brokers, r.config)
	if err != nil {
		return fmt.Errorf("failed to create sarama client: %w", err)
	}
	r.saramaClient = client

	adminClient, err := sarama.NewClusterAdminFromClient(client)
	if err != nil {
		if !client.Closed() {
			_ = client.Close()
		}
		return fmt.Errorf("failed to create sarama cluster admin client: %w", err)
	}
	r.adminClient = adminClient

	go r.startConsumer()
	// wait for the consumer to set up.
	<-r.handler.ready
	r.logger.Info("Consumer ready. Starting kafka reader...")
	return nil
}

// Read returns up to count messages, waiting at most readTimeout for the
// first shortfall.
func (r *KafkaSource) Read(_ context.Context, count int64) ([]*sources.Message, error) {
	msgs := make([]*sources.Message, 0, count)
	timeout := time.After(r.readTimeout)
loop:
	for i := int64(0); i < count; i++ {
		select {
		case m := <-r.handler.messages:
			kafkaSourceReadCount.WithLabelValues(r.topic, r.groupName).Inc()
			msgs = append(msgs, &sources.Message{
				Partition: m.Partition,
				Offset:    m.Offset,
				Payload:   m.Value,
			})
		case <-timeout:
			// log that timeout has happened and don't return an error
			r.logger.Debugw("Timed out waiting for messages to read.", zap.Duration("waited", r.readTimeout))
			break loop
		}
	}
	return msgs, nil
}

// ResumeFrom records the committed offsets so every consumer session starts
// its marks right after them. Messages below the committed offset can still
// be redelivered within a session that claimed them earlier; the engine
// filters those by offset.
func (r *KafkaSource) ResumeFrom(_ context.Context, offsets map[int32]int64) error {
	r.handler.setResume(r.topic, offsets)
	return nil
}

// Ack marks the given per-partition offsets on the consumer group session.
// Only checkpoint-committed offsets may be acked here: the group mark is
// persisted on rebalance and decides where a restart resumes.
func (r *KafkaSource) Ack(_ context.Context, offsets map[int32]int64) error {
	for partition, offset := range offsets {
		if !r.handler.markOffset(r.topic, partition, offset) {
			kafkaSourceOffsetAckErrors.WithLabelValues(r.topic, r.groupName).Inc()
			return fmt.Errorf("no active consumer session to ack partition %d offset %d", partition, offset)
		}
		kafkaSourceAckCount.WithLabelValues(r.topic, r.groupName).Inc()
	}
	return nil
}

// Pending returns the consumer group lag summed over all partitions.
func (r *KafkaSource) Pending(_ context.Context) (int64, error) {
	if r.adminClient == nil || r.saramaClient == nil {
		return sources.PendingNotAvailable, nil
	}
	partitions, err := r.saramaClient.Partitions(r.topic)
	if err != nil {
		return sources.PendingNotAvailable, fmt.Errorf("failed to get partitions, %w", err)
	}
	totalPending := int64(0)
	rep, err := r.adminClient.ListConsumerGroupOffsets(r.groupName, map[string][]int32{r.topic: partitions})
	if err != nil {
		if refreshErr := r.refreshAdminClient(); refreshErr != nil {
			return sources.PendingNotAvailable, fmt.Errorf("failed to update the admin client, %w", refreshErr)
		}
		return sources.PendingNotAvailable, fmt.Errorf("failed to list consumer group offsets, %w", err)
	}
	for _, partition := range partitions {
		block := rep.GetBlock(r.topic, partition)
		if block.Offset == -1 {
			// no offset yet for this partition under the consumer group; it
			// has no published data and can be skipped
			continue
		}
		partitionOffset, err := r.saramaClient.GetOffset(r.topic, partition, sarama.OffsetNewest)
		if err != nil {
			return sources.PendingNotAvailable, fmt.Errorf("failed to get offset of topic %q, partition %v, %w", r.topic, partition, err)
		}
		totalPending += partitionOffset - block.Offset
	}
	kafkaPending.WithLabelValues(r.topic, r.groupName).Set(float64(totalPending))
	return totalPending, nil
}

func (r *KafkaSource) Close() error {
	r.logger.Info("Closing kafka reader...")
	r.cancelFn()
	if r.adminClient != nil {
		// closes the underlying sarama client as well.
		if err := r.adminClient.Close(); err != nil {
			r.logger.Errorw("Error in closing kafka admin client", zap.Error(err))
		}
	}
	<-r.stopCh
	r.logger.Info("Kafka reader closed")
	return nil
}

// refreshAdminClient refreshes the admin client
func (r *KafkaSource) refreshAdminClient() error {
	if _, err := r.saramaClient.RefreshController(); err != nil {
		return fmt.Errorf("failed to refresh controller, %w", err)
	}
	// we are not closing the old admin client because it would close the
	// underlying sarama client as well; reusing the same sarama client leaks
	// no connections
	admin, err := sarama.NewClusterAdminFromClient(r.saramaClient)
	if err != nil {
		return fmt.Errorf("failed to create new admin client, %w", err)
	}
	r.adminClient = admin
	return nil
}

func (r *KafkaSource) startConsumer() {
	client, err := sarama.NewConsumerGroup(r.brokers, r.groupName, r.config)
	r.logger.Infow("creating NewConsumerGroup", zap.String("topic", r.topic), zap.String("consumerGroupName", r.groupName), zap.Strings("brokers", r.brokers))
	if err != nil {
		r.logger.Panicw("Problem initializing sarama client", zap.Error(err))
	}
	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-r.lifecycleCtx.Done():
				return
			case cErr := <-client.Errors():
				kafkaSourceConsumerErrors.WithLabelValues(r.topic, r.groupName).Inc()
				r.logger.Errorw("Kafka consumer error", zap.Error(cErr))
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			// `Consume` should be called inside an infinite loop; when a
			// server-side re-balance happens, the consumer session will need
			// to be recreated to get the new claims
			if conErr := client.Consume(r.lifecycleCtx, []string{r.topic}, r.handler); conErr != nil {
				// Panic on errors to let it crash and restart the process
				r.logger.Panicw("Kafka consumer failed with error: ", zap.Error(conErr))
			}
			// check if context was cancelled, signaling that the consumer should stop
			if r.lifecycleCtx.Err() != nil {
				return
			}
		}
	}()
	wg.Wait()
	_ = client.Close()
	close(r.stopCh)
}
