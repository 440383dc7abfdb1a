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

package event

import "time"

// EnrichedRecord is an EventRecord plus the derived financial metrics.
// The derived fields are pure functions of the record, so enrichment is safe
// to run concurrently on disjoint records.
type EnrichedRecord struct {
	EventRecord

	// TotalCost is sum(unit_price * quantity) over items, negated for returns.
	TotalCost float64
	// TotalItems is sum(quantity) over items.
	TotalItems int64
	// IsOrder and IsReturn are 0/1 flags; exactly one of them is 1.
	IsOrder  int64
	IsReturn int64
}

// Enrich derives the financial metrics for a validated record. It is a total
// function: every validated record enriches, there is no failure path.
func Enrich(r *EventRecord) *EnrichedRecord {
	var totalCost float64
	var totalItems int64
	for _, item := range r.Items {
		totalCost += item.UnitPrice * float64(item.Quantity)
		totalItems += item.Quantity
	}
	enriched := &EnrichedRecord{
		EventRecord: *r,
		TotalCost:   totalCost,
		TotalItems:  totalItems,
		IsOrder:     1,
	}
	if r.Kind == KindReturn {
		enriched.TotalCost = -totalCost
		enriched.IsOrder = 0
		enriched.IsReturn = 1
	}
	return enriched
}

// SummaryRow is the unwindowed per-record output row of the raw summary
// stream.
type SummaryRow struct {
	InvoiceNo  int64     `json:"invoice_no"`
	Country    string    `json:"country"`
	Timestamp  time.Time `json:"timestamp"`
	TotalCost  float64   `json:"total_cost"`
	TotalItems int64     `json:"total_items"`
	IsOrder    int64     `json:"is_order"`
	IsReturn   int64     `json:"is_return"`
}

// SummaryRow renders the record as a raw summary output row.
func (e *EnrichedRecord) SummaryRow() SummaryRow {
	return SummaryRow{
		InvoiceNo:  e.InvoiceNo,
		Country:    e.Country,
		Timestamp:  e.EventTime,
		TotalCost:  e.TotalCost,
		TotalItems: e.TotalItems,
		IsOrder:    e.IsOrder,
		IsReturn:   e.IsReturn,
	}
}
