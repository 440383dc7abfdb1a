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

package sinks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	metricspkg "github.com/retailpulse/retailpulse/pkg/metrics"
)

// rowsEmittedCount is used to indicate the number of finalized rows handed to sinks
var rowsEmittedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "sink",
	Name:      "rows_emitted_total",
	Help:      "Total number of rows emitted",
}, []string{metricspkg.LabelStream})

// sinkWriteErrorCount is used to indicate the number of sink write errors
var sinkWriteErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "sink",
	Name:      "write_error_total",
	Help:      "Total number of sink write errors",
}, []string{metricspkg.LabelStream, metricspkg.LabelSink})
