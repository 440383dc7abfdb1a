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

// Package logger implements a console sink. Rows are printed in full, never
// truncated.
package logger

import (
	"context"
	"log"

	"github.com/retailpulse/retailpulse/pkg/sinks"
)

// ToLog prints the output rows to the console.
type ToLog struct {
	name string
}

var _ sinks.Sinker = (*ToLog)(nil)

// NewToLog returns a ToLog sink with the given name.
func NewToLog(name string) *ToLog {
	return &ToLog{name: name}
}

// GetName returns the name.
func (t *ToLog) GetName() string {
	return t.name
}

// Write writes to the log.
func (t *ToLog) Write(_ context.Context, messages []sinks.Message) []error {
	prefix := "(" + t.name + ")"
	for _, message := range messages {
		log.Println(prefix, string(message.Payload))
	}
	return make([]error, len(messages))
}

func (t *ToLog) Close() error {
	return nil
}
