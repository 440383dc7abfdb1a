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
	"fmt"
	"time"
)

// Sliding assigns events to overlapping windows of a fixed Length, phased out
// by the Slide duration. When Length is a multiple of Slide every event maps
// to exactly Length/Slide windows.
type Sliding struct {
	// Length is the duration of the window.
	Length time.Duration
	// Slide is the offset between successive windows.
	Slide time.Duration
}

// NewSliding returns a Sliding assigner.
func NewSliding(length time.Duration, slide time.Duration) (*Sliding, error) {
	if length <= 0 || slide <= 0 {
		return nil, fmt.Errorf("window length and slide must be positive, got length=%v slide=%v", length, slide)
	}
	if slide > length {
		return nil, fmt.Errorf("slide %v must not exceed window length %v", slide, length)
	}
	return &Sliding{Length: length, Slide: slide}, nil
}

// AssignWindows returns all windows that contain the given event time,
// ordered from the latest window start to the earliest.
func (s *Sliding) AssignWindows(eventTime time.Time) []IntervalWindow {
	windows := make([]IntervalWindow, 0, s.Length/s.Slide)

	// use the highest integer multiple of the slide length which is not after
	// the eventTime as the start of the latest candidate window, then walk
	// backwards one slide at a time. Windows are half-open [start, end), so an
	// event on a boundary belongs to the window starting at that boundary and
	// not to the one ending there.
	startTime := time.UnixMilli((eventTime.UnixMilli() / s.Slide.Milliseconds()) * s.Slide.Milliseconds()).In(eventTime.Location())
	endTime := startTime.Add(s.Length)

	for !startTime.After(eventTime) && endTime.After(eventTime) {
		windows = append(windows, IntervalWindow{Start: startTime, End: endTime})
		startTime = startTime.Add(-s.Slide)
		endTime = endTime.Add(-s.Slide)
	}

	return windows
}
