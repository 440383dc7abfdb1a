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

package watermark

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTracker_UnsetBeforeFirstObserve(t *testing.T) {
	tracker := NewTracker(time.Minute)
	_, ok := tracker.Current()
	assert.False(t, ok)
}

func TestTracker_Observe(t *testing.T) {
	tracker := NewTracker(time.Minute)
	base := time.Unix(600, 0)

	tracker.Observe(base)
	wm, ok := tracker.Current()
	assert.True(t, ok)
	assert.True(t, wm.Equal(base.Add(-time.Minute)))

	// out of order event does not move the watermark backwards
	tracker.Observe(base.Add(-10 * time.Minute))
	wm, _ = tracker.Current()
	assert.True(t, wm.Equal(base.Add(-time.Minute)))

	// newer event advances it
	tracker.Observe(base.Add(30 * time.Second))
	wm, _ = tracker.Current()
	assert.True(t, wm.Equal(base.Add(30*time.Second).Add(-time.Minute)))
}

func TestTracker_ZeroLateness(t *testing.T) {
	tracker := NewTracker(0)
	base := time.Unix(600, 0)
	tracker.Observe(base)
	wm, ok := tracker.Current()
	assert.True(t, ok)
	assert.True(t, wm.Equal(base))
}

func TestTracker_ConcurrentObserve(t *testing.T) {
	tracker := NewTracker(0)
	base := time.Unix(0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				tracker.Observe(base.Add(time.Duration(worker*1000+j) * time.Millisecond))
			}
		}(i)
	}
	wg.Wait()

	wm, ok := tracker.Current()
	assert.True(t, ok)
	assert.True(t, wm.Equal(base.Add(7999*time.Millisecond)))
}
