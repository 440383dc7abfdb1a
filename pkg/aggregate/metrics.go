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

package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	metricspkg "github.com/retailpulse/retailpulse/pkg/metrics"
)

// lateDropCount is used to indicate the number of events dropped because their window already closed
var lateDropCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "aggregate_store",
	Name:      "late_drop_total",
	Help:      "Total number of late events dropped",
}, []string{metricspkg.LabelDimension})

// updateCount is used to indicate the number of accumulator updates applied
var updateCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "aggregate_store",
	Name:      "update_total",
	Help:      "Total number of accumulator updates",
}, []string{metricspkg.LabelDimension})

// closedWindowCount is used to indicate the number of finalized (window, key) partitions drained
var closedWindowCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "aggregate_store",
	Name:      "closed_partition_total",
	Help:      "Total number of finalized partitions drained",
}, []string{metricspkg.LabelDimension})

// openPartitionsGauge is used to indicate the number of currently open partitions
var openPartitionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "aggregate_store",
	Name:      "open_partitions",
	Help:      "Number of currently open partitions",
}, []string{metricspkg.LabelDimension})
