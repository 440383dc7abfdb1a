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
	"time"

	"github.com/goccy/go-json"

	"github.com/retailpulse/retailpulse/pkg/aggregate"
	"github.com/retailpulse/retailpulse/pkg/window"
)

// TimeKPIRow is one finalized row of the globally grouped KPI stream. OPM is
// the transaction count of the window.
type TimeKPIRow struct {
	WindowStart            time.Time `json:"window_start"`
	WindowEnd              time.Time `json:"window_end"`
	OPM                    int64     `json:"OPM"`
	TotalSaleVolume        float64   `json:"total_sale_volume"`
	AverageTransactionSize float64   `json:"average_transaction_size"`
	RateOfReturn           float64   `json:"rate_of_return"`
}

// TimeCountryKPIRow is one finalized row of the per-country KPI stream.
type TimeCountryKPIRow struct {
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
	Country         string    `json:"country"`
	OPM             int64     `json:"OPM"`
	TotalSaleVolume float64   `json:"total_sale_volume"`
	RateOfReturn    float64   `json:"rate_of_return"`
}

func encodeTimeKPIRow(p window.Partition, acc aggregate.Accumulator) ([]byte, error) {
	return json.Marshal(TimeKPIRow{
		WindowStart:            p.Window.Start,
		WindowEnd:              p.Window.End,
		OPM:                    acc.Count,
		TotalSaleVolume:        acc.SumCost,
		AverageTransactionSize: acc.AverageTransactionSize(),
		RateOfReturn:           acc.RateOfReturn(),
	})
}

func encodeTimeCountryKPIRow(p window.Partition, acc aggregate.Accumulator) ([]byte, error) {
	return json.Marshal(TimeCountryKPIRow{
		WindowStart:     p.Window.Start,
		WindowEnd:       p.Window.End,
		Country:         p.Key,
		OPM:             acc.Count,
		TotalSaleVolume: acc.SumCost,
		RateOfReturn:    acc.RateOfReturn(),
	})
}
