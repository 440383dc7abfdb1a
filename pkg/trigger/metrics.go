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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	metricspkg "github.com/retailpulse/retailpulse/pkg/metrics"
)

// triggerCount is used to indicate the number of successful trigger flushes
var triggerCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "trigger",
	Name:      "flush_total",
	Help:      "Total number of successful trigger flushes",
}, []string{metricspkg.LabelStream})

// triggerErrorCount is used to indicate the number of failed trigger flushes
var triggerErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "trigger",
	Name:      "flush_error_total",
	Help:      "Total number of failed trigger flushes",
}, []string{metricspkg.LabelStream})
