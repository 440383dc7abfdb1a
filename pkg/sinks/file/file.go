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

// Package file implements a JSON-lines file sink. Every write batch lands in
// its own part file under the stream's directory, append-only.
package file

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/atomic"

	"github.com/retailpulse/retailpulse/pkg/sinks"
)

// ToFile writes each batch of rows as a part file of JSON lines.
type ToFile struct {
	name    string
	dir     string
	partSeq *atomic.Int64
}

var _ sinks.Sinker = (*ToFile)(nil)

// NewToFile returns a file sink writing under dir. The directory is created
// if missing.
func NewToFile(name string, dir string) (*ToFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sink directory %q: %w", dir, err)
	}
	return &ToFile{
		name:    name,
		dir:     dir,
		partSeq: atomic.NewInt64(0),
	}, nil
}

// GetName returns the name.
func (t *ToFile) GetName() string {
	return t.name
}

// Dir returns the directory part files are written to.
func (t *ToFile) Dir() string {
	return t.dir
}

// Write writes the batch as one part file. The file is written under a
// temporary name and renamed, so a partially written part is never visible
// to readers of the directory.
func (t *ToFile) Write(_ context.Context, messages []sinks.Message) []error {
	errs := make([]error, len(messages))
	if len(messages) == 0 {
		return errs
	}

	var buf bytes.Buffer
	for _, message := range messages {
		buf.Write(message.Payload)
		buf.WriteByte('\n')
	}

	part := fmt.Sprintf("part-%05d.json", t.partSeq.Inc())
	tmpPath := filepath.Join(t.dir, "."+part+".tmp")
	finalPath := filepath.Join(t.dir, part)

	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return t.failAll(errs, fmt.Errorf("failed to write part file %q: %w", tmpPath, err))
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return t.failAll(errs, fmt.Errorf("failed to publish part file %q: %w", finalPath, err))
	}
	return errs
}

func (t *ToFile) failAll(errs []error, err error) []error {
	for i := range errs {
		errs[i] = err
	}
	return errs
}

func (t *ToFile) Close() error {
	return nil
}
