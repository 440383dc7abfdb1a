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

// Package metrics holds the shared prometheus label names and the HTTP server
// exposing metrics, health endpoints and pprof.
package metrics

const (
	// LabelDimension is the grouping dimension (global, country, ...)
	LabelDimension = "dimension"
	// LabelStream is the named output stream
	LabelStream = "stream"
	// LabelSink is the sink name within a stream
	LabelSink = "sink"
	// LabelPartition is the source partition
	LabelPartition = "partition"
	// LabelTopic is the kafka topic
	LabelTopic = "topic"
	// LabelConsumerGroup is the kafka consumer group
	LabelConsumerGroup = "consumer_group"
)
