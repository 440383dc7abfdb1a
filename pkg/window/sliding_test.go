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

package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSliding_AssignWindows tests the assignment of an event to a set of windows
func TestSliding_AssignWindows(t *testing.T) {
	baseTime := time.Unix(600, 0)

	tests := []struct {
		name      string
		length    time.Duration
		slide     time.Duration
		eventTime time.Time
		expected  []IntervalWindow
	}{
		{
			name:      "length divisible by slide",
			length:    time.Minute,
			slide:     20 * time.Second,
			eventTime: baseTime.Add(10 * time.Second),
			expected: []IntervalWindow{
				{Start: time.Unix(600, 0), End: time.Unix(660, 0)},
				{Start: time.Unix(580, 0), End: time.Unix(640, 0)},
				{Start: time.Unix(560, 0), End: time.Unix(620, 0)},
			},
		},
		{
			name:      "length not divisible by slide",
			length:    time.Minute,
			slide:     40 * time.Second,
			eventTime: baseTime.Add(10 * time.Second),
			expected: []IntervalWindow{
				{Start: time.Unix(600, 0), End: time.Unix(660, 0)},
				{Start: time.Unix(560, 0), End: time.Unix(620, 0)},
			},
		},
		{
			name:      "event on window boundary belongs to starting window",
			length:    time.Minute,
			slide:     20 * time.Second,
			eventTime: baseTime,
			expected: []IntervalWindow{
				{Start: time.Unix(600, 0), End: time.Unix(660, 0)},
				{Start: time.Unix(580, 0), End: time.Unix(640, 0)},
				{Start: time.Unix(560, 0), End: time.Unix(620, 0)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSliding(tt.length, tt.slide)
			require.NoError(t, err)
			got := s.AssignWindows(tt.eventTime)
			require.Len(t, got, len(tt.expected))
			for i, win := range got {
				assert.True(t, win.Start.Equal(tt.expected[i].Start), "window %d start, got %v", i, win.Start)
				assert.True(t, win.End.Equal(tt.expected[i].End), "window %d end, got %v", i, win.End)
				assert.True(t, win.Contains(tt.eventTime))
			}
		})
	}
}

// TestSliding_ReferenceConfig asserts the 10m/1m reference configuration maps
// every event to exactly ten windows on distinct minute boundaries.
func TestSliding_ReferenceConfig(t *testing.T) {
	s, err := NewSliding(10*time.Minute, time.Minute)
	require.NoError(t, err)

	eventTime := time.Date(2020, 9, 18, 10, 55, 30, 0, time.UTC)
	windows := s.AssignWindows(eventTime)
	require.Len(t, windows, 10)

	starts := map[int64]struct{}{}
	for _, win := range windows {
		assert.Zero(t, win.Start.Second())
		assert.True(t, !win.Start.After(eventTime))
		assert.True(t, win.End.After(eventTime))
		assert.Equal(t, 10*time.Minute, win.End.Sub(win.Start))
		starts[win.Start.UnixMilli()] = struct{}{}
	}
	assert.Len(t, starts, 10)
}

func TestSliding_Contains(t *testing.T) {
	win := IntervalWindow{Start: time.Unix(600, 0), End: time.Unix(1200, 0)}
	assert.True(t, win.Contains(time.Unix(600, 0)))
	assert.True(t, win.Contains(time.Unix(1199, 0)))
	assert.False(t, win.Contains(time.Unix(1200, 0)))
	assert.False(t, win.Contains(time.Unix(599, 0)))
}

func TestNewSliding_Validation(t *testing.T) {
	_, err := NewSliding(0, time.Minute)
	assert.Error(t, err)
	_, err = NewSliding(time.Minute, 0)
	assert.Error(t, err)
	_, err = NewSliding(time.Minute, 2*time.Minute)
	assert.Error(t, err)
}
