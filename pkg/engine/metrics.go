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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// eventsReadCount is used to indicate the number of source messages processed
var eventsReadCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "engine",
	Name:      "events_read_total",
	Help:      "Total number of source messages processed",
})

// decodeErrorCount is used to indicate the number of malformed events dropped
var decodeErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "engine",
	Name:      "decode_error_total",
	Help:      "Total number of malformed events dropped at decode",
})

// watermarkGauge is used to indicate the current watermark in unix millis
var watermarkGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Subsystem: "engine",
	Name:      "watermark_millis",
	Help:      "Current watermark in unix milliseconds",
})
