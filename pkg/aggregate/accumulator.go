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

// Package aggregate holds the incrementally updated per-window partial
// aggregates and the sharded store that owns them.
package aggregate

import (
	"github.com/retailpulse/retailpulse/pkg/event"
)

// Accumulator is the partial aggregate for one (window, key) partition.
// Count and sums are commutative and associative, so updates and merges are
// order-independent; out-of-event-time-order arrivals aggregate correctly.
type Accumulator struct {
	// Count is the number of records contributing.
	Count int64
	// SumCost is the sum of total_cost over contributing records.
	SumCost float64
	// ReturnCount is the number of RETURN records.
	ReturnCount int64
}

// Add applies one enriched record to the accumulator.
func (a *Accumulator) Add(r *event.EnrichedRecord) {
	a.Count++
	a.SumCost += r.TotalCost
	a.ReturnCount += r.IsReturn
}

// Merge folds another accumulator into this one.
func (a *Accumulator) Merge(other Accumulator) {
	a.Count += other.Count
	a.SumCost += other.SumCost
	a.ReturnCount += other.ReturnCount
}

// AverageTransactionSize is SumCost / Count, 0 for an empty accumulator.
func (a Accumulator) AverageTransactionSize() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.SumCost / float64(a.Count)
}

// RateOfReturn is ReturnCount / Count, 0 for an empty accumulator.
// The result always lies in [0, 1].
func (a Accumulator) RateOfReturn() float64 {
	if a.Count == 0 {
		return 0
	}
	return float64(a.ReturnCount) / float64(a.Count)
}
