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

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/retailpulse/retailpulse/pkg/checkpoint"
	"github.com/retailpulse/retailpulse/pkg/config"
	"github.com/retailpulse/retailpulse/pkg/engine"
	"github.com/retailpulse/retailpulse/pkg/metrics"
	"github.com/retailpulse/retailpulse/pkg/shared/logging"
	"github.com/retailpulse/retailpulse/pkg/sinks"
	filesink "github.com/retailpulse/retailpulse/pkg/sinks/file"
	logsink "github.com/retailpulse/retailpulse/pkg/sinks/logger"
	"github.com/retailpulse/retailpulse/pkg/sources/kafka"
)

// NewProcessorCommand returns the command running the analytics processor:
// kafka ingestion, windowed aggregation and sink output, until SIGTERM.
func NewProcessorCommand() *cobra.Command {
	var configPath string

	command := &cobra.Command{
		Use:   "processor",
		Short: "Start the streaming analytics processor",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger().Named("processor")
			conf, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = logging.WithLogger(ctx, logger)

			source, err := kafka.NewKafkaSource(conf.Kafka.Brokers, conf.Kafka.Topic, conf.Kafka.ConsumerGroup,
				kafka.WithLogger(logger), kafka.WithReadTimeOut(conf.ReadTimeout))
			if err != nil {
				return err
			}
			if err := source.Start(); err != nil {
				return fmt.Errorf("failed to start kafka source: %w", err)
			}
			defer source.Close()

			var ckptStore checkpoint.Store
			if conf.Redis.URL != "" {
				redisOpts, err := redis.ParseURL(conf.Redis.URL)
				if err != nil {
					return fmt.Errorf("invalid redis url: %w", err)
				}
				client := redis.NewClient(redisOpts)
				defer client.Close()
				ckptStore = checkpoint.NewRedisStore(client, conf.Redis.KeyPrefix)
			} else {
				logger.Warn("No redis url configured, checkpoints will not survive restarts")
				ckptStore = checkpoint.NewMemoryStore()
			}
			coordinator := checkpoint.NewCoordinator(ckptStore, checkpoint.WithLogger(logger))

			dispatcher := sinks.NewDispatcher(coordinator, sinks.WithLogger(logger))
			dispatcher.Register(config.StreamRawSummary, logsink.NewToLog(config.StreamRawSummary))
			for _, stream := range []string{config.StreamTimeKPI, config.StreamTimeCountryKPI} {
				sink, err := filesink.NewToFile(stream, filepath.Join(conf.Sinks.OutputDir, stream))
				if err != nil {
					return err
				}
				dispatcher.Register(stream, sink)
			}
			defer dispatcher.Close()

			eng, err := engine.New(conf, source, dispatcher, coordinator, engine.WithLogger(logger))
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return metrics.NewMetricsServer(conf.MetricsPort, metrics.WithLogger(logger)).Start(gctx)
			})
			g.Go(func() error {
				defer stop()
				return eng.Run(gctx)
			})
			return g.Wait()
		},
	}
	command.Flags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	return command
}
