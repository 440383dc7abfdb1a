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

// Package event defines the decoded retail transaction record, the JSON
// decoder that validates raw payloads against the invoice schema, and the
// enrichment functions that derive the financial metrics used downstream.
package event

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Kind is the transaction type of an invoice.
type Kind string

const (
	KindOrder  Kind = "ORDER"
	KindReturn Kind = "RETURN"
)

// LineItem is a single purchased (or returned) item on an invoice.
type LineItem struct {
	SKU       string  `json:"SKU"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int64   `json:"quantity"`
}

// EventRecord is a decoded, validated transaction event. All windowing
// decisions use EventTime, never arrival time.
type EventRecord struct {
	InvoiceNo int64      `json:"invoice_no"`
	Country   string     `json:"country"`
	EventTime time.Time  `json:"timestamp"`
	Kind      Kind       `json:"type"`
	Items     []LineItem `json:"items"`
}

// DecodeError indicates a malformed payload. Records failing to decode are
// dropped and counted, never partially processed.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed event payload: %s", e.Reason)
}

// rawRecord uses pointer fields so that absent required fields can be told
// apart from zero values.
type rawRecord struct {
	InvoiceNo *int64     `json:"invoice_no"`
	Country   *string    `json:"country"`
	Timestamp *string    `json:"timestamp"`
	Kind      *string    `json:"type"`
	Items     []LineItem `json:"items"`
}

// timestampLayouts are the accepted event time formats. The upstream feed
// writes "2006-01-02 15:04:05"; RFC3339 is accepted for replays.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Decode parses and validates a raw invoice payload. Any missing required
// field, unknown transaction type or negative price/quantity yields a
// *DecodeError and the record is rejected as a whole.
func Decode(payload []byte) (*EventRecord, error) {
	var raw rawRecord
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &DecodeError{Reason: err.Error()}
	}
	if raw.InvoiceNo == nil {
		return nil, &DecodeError{Reason: "missing required field invoice_no"}
	}
	if raw.Country == nil || *raw.Country == "" {
		return nil, &DecodeError{Reason: "missing required field country"}
	}
	if raw.Timestamp == nil {
		return nil, &DecodeError{Reason: "missing required field timestamp"}
	}
	if raw.Kind == nil {
		return nil, &DecodeError{Reason: "missing required field type"}
	}
	kind := Kind(*raw.Kind)
	if kind != KindOrder && kind != KindReturn {
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown transaction type %q", *raw.Kind)}
	}
	var eventTime time.Time
	var parseErr error
	for _, layout := range timestampLayouts {
		eventTime, parseErr = time.Parse(layout, *raw.Timestamp)
		if parseErr == nil {
			break
		}
	}
	if parseErr != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("unparseable timestamp %q", *raw.Timestamp)}
	}
	for i, item := range raw.Items {
		if item.UnitPrice < 0 {
			return nil, &DecodeError{Reason: fmt.Sprintf("items[%d]: negative unit_price", i)}
		}
		if item.Quantity < 0 {
			return nil, &DecodeError{Reason: fmt.Sprintf("items[%d]: negative quantity", i)}
		}
	}
	return &EventRecord{
		InvoiceNo: *raw.InvoiceNo,
		Country:   *raw.Country,
		EventTime: eventTime,
		Kind:      kind,
		Items:     raw.Items,
	}, nil
}
