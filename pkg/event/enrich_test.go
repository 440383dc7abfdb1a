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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testItems = []LineItem{
	{SKU: "21877", Title: "HOME SWEET HOME MUG", UnitPrice: 2.5, Quantity: 2},
	{SKU: "84406", Title: "CREAM CUPID HEARTS COAT HANGER", UnitPrice: 1.0, Quantity: 3},
}

func TestEnrich(t *testing.T) {
	tests := []struct {
		name           string
		record         EventRecord
		wantTotalCost  float64
		wantTotalItems int64
		wantIsOrder    int64
		wantIsReturn   int64
	}{
		{
			name:           "order",
			record:         EventRecord{InvoiceNo: 154132541653705, Country: "UK", Kind: KindOrder, Items: testItems},
			wantTotalCost:  8.0,
			wantTotalItems: 7,
			wantIsOrder:    1,
			wantIsReturn:   0,
		},
		{
			name:           "return negates cost",
			record:         EventRecord{InvoiceNo: 154132541653705, Country: "UK", Kind: KindReturn, Items: testItems},
			wantTotalCost:  -8.0,
			wantTotalItems: 7,
			wantIsOrder:    0,
			wantIsReturn:   1,
		},
		{
			name:           "empty items",
			record:         EventRecord{InvoiceNo: 1, Country: "DE", Kind: KindOrder},
			wantTotalCost:  0,
			wantTotalItems: 0,
			wantIsOrder:    1,
			wantIsReturn:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enriched := Enrich(&tt.record)
			assert.Equal(t, tt.wantTotalCost, enriched.TotalCost)
			assert.Equal(t, tt.wantTotalItems, enriched.TotalItems)
			assert.Equal(t, tt.wantIsOrder, enriched.IsOrder)
			assert.Equal(t, tt.wantIsReturn, enriched.IsReturn)
		})
	}
}

func TestSummaryRow(t *testing.T) {
	eventTime := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)
	enriched := Enrich(&EventRecord{
		InvoiceNo: 42,
		Country:   "FR",
		EventTime: eventTime,
		Kind:      KindOrder,
		Items:     testItems,
	})
	row := enriched.SummaryRow()
	assert.Equal(t, int64(42), row.InvoiceNo)
	assert.Equal(t, "FR", row.Country)
	assert.Equal(t, eventTime, row.Timestamp)
	assert.Equal(t, 8.0, row.TotalCost)
	assert.Equal(t, int64(7), row.TotalItems)
	assert.Equal(t, int64(1), row.IsOrder)
	assert.Equal(t, int64(0), row.IsReturn)
}
