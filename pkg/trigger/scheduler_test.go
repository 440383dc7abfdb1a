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

package trigger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"
)

func TestScheduler_FlushesOnCadence(t *testing.T) {
	scheduler := NewScheduler()
	flushes := atomic.NewInt64(0)
	scheduler.Register("time_kpi", 10*time.Millisecond, func(ctx context.Context) error {
		flushes.Inc()
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	assert.NoError(t, scheduler.Run(ctx))
	assert.GreaterOrEqual(t, flushes.Load(), int64(3))
}

func TestScheduler_IndependentCadences(t *testing.T) {
	scheduler := NewScheduler()
	fast := atomic.NewInt64(0)
	slow := atomic.NewInt64(0)
	scheduler.Register("fast", 10*time.Millisecond, func(ctx context.Context) error {
		fast.Inc()
		return nil
	})
	scheduler.Register("slow", 50*time.Millisecond, func(ctx context.Context) error {
		slow.Inc()
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	assert.NoError(t, scheduler.Run(ctx))
	assert.Greater(t, fast.Load(), slow.Load())
}

func TestScheduler_FlushErrorDoesNotStopOthers(t *testing.T) {
	scheduler := NewScheduler()
	healthy := atomic.NewInt64(0)
	scheduler.Register("broken", 10*time.Millisecond, func(ctx context.Context) error {
		return errors.New("sink down")
	})
	scheduler.Register("healthy", 10*time.Millisecond, func(ctx context.Context) error {
		healthy.Inc()
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, scheduler.Run(ctx))
	assert.GreaterOrEqual(t, healthy.Load(), int64(3))
}
