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

package engine

import (
	"fmt"
	"time"

	"go.uber.org/atomic"

	"github.com/retailpulse/retailpulse/pkg/aggregate"
	"github.com/retailpulse/retailpulse/pkg/config"
	"github.com/retailpulse/retailpulse/pkg/event"
	"github.com/retailpulse/retailpulse/pkg/window"
)

// dimensionState binds one grouping dimension to its aggregation store, its
// output stream and its row encoding. Every enriched record flows through
// every configured dimension; the dimensions never share accumulator state.
type dimensionState struct {
	name            string
	stream          string
	triggerInterval time.Duration
	keyFn           func(*event.EnrichedRecord) string
	rowFn           func(window.Partition, aggregate.Accumulator) ([]byte, error)
	store           *aggregate.Store
	// halted is set when the dimension's sinks exhausted their retries;
	// a halted dimension drains no further windows
	halted atomic.Bool
}

func newDimensionState(name string, conf *config.Config) (*dimensionState, error) {
	switch name {
	case config.DimensionGlobal:
		return &dimensionState{
			name:            name,
			stream:          config.StreamTimeKPI,
			triggerInterval: conf.Sinks.TimeKPI.TriggerInterval,
			keyFn:           func(*event.EnrichedRecord) string { return "" },
			rowFn:           encodeTimeKPIRow,
			store:           aggregate.NewStore(name),
		}, nil
	case config.DimensionCountry:
		return &dimensionState{
			name:            name,
			stream:          config.StreamTimeCountryKPI,
			triggerInterval: conf.Sinks.TimeCountryKPI.TriggerInterval,
			keyFn:           func(r *event.EnrichedRecord) string { return r.Country },
			rowFn:           encodeTimeCountryKPIRow,
			store:           aggregate.NewStore(name),
		}, nil
	default:
		return nil, fmt.Errorf("unknown grouping dimension %q", name)
	}
}
