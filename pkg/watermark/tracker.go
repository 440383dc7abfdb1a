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

// Package watermark tracks the event-time watermark: the maximum observed
// event time minus the allowed lateness. The watermark is derived from data
// content only, never from the wall clock, so results are deterministic and
// replayable regardless of processing speed.
package watermark

import (
	"math"
	"time"

	"go.uber.org/atomic"
)

// unsetMillis marks a tracker that has not observed any event yet.
const unsetMillis = math.MinInt64

// Tracker maintains a monotonically non-decreasing watermark over event
// times. Observe is lock-free and safe to call from concurrent ingestion
// workers.
type Tracker struct {
	maxEventTime    *atomic.Int64
	allowedLateness time.Duration
}

// NewTracker returns a Tracker with the given allowed lateness bound.
func NewTracker(allowedLateness time.Duration) *Tracker {
	return &Tracker{
		maxEventTime:    atomic.NewInt64(unsetMillis),
		allowedLateness: allowedLateness,
	}
}

// Observe records an event time. The tracked maximum only moves forward.
func (t *Tracker) Observe(eventTime time.Time) {
	millis := eventTime.UnixMilli()
	for {
		current := t.maxEventTime.Load()
		if millis <= current {
			return
		}
		if t.maxEventTime.CompareAndSwap(current, millis) {
			return
		}
	}
}

// Current returns the watermark, i.e. max observed event time minus the
// allowed lateness. The second return value is false until the first event
// has been observed; no window may close before then.
func (t *Tracker) Current() (time.Time, bool) {
	current := t.maxEventTime.Load()
	if current == unsetMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(current).Add(-t.allowedLateness), true
}

// AllowedLateness returns the configured lateness bound.
func (t *Tracker) AllowedLateness() time.Duration {
	return t.allowedLateness
}
