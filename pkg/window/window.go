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

// Package window implements event-time interval windows and the sliding
// window assigner that maps an event timestamp to the set of overlapping
// windows containing it.
package window

import (
	"fmt"
	"time"
)

// IntervalWindow is a half-open interval [Start, End) on event time.
type IntervalWindow struct {
	Start time.Time
	End   time.Time
}

// Contains returns whether the event time falls within the window.
// Start is inclusive, End is exclusive.
func (w IntervalWindow) Contains(eventTime time.Time) bool {
	return !eventTime.Before(w.Start) && eventTime.Before(w.End)
}

func (w IntervalWindow) String() string {
	return fmt.Sprintf("%v-%v", w.Start.UnixMilli(), w.End.UnixMilli())
}

// Partition uniquely identifies one accumulator slot: a window plus the
// grouping key within it.
type Partition struct {
	Window IntervalWindow
	Key    string
}

func (p Partition) String() string {
	return fmt.Sprintf("%v-%v-%s", p.Window.Start.UnixMilli(), p.Window.End.UnixMilli(), p.Key)
}
