// Copyright 2023 UrbanDataLab AG

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package udl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/udl-ai/udlai-go/frame"
)

// GridSize is the edge length in meters of the analysis grid the server
// aggregates over. Zero selects the default.
type GridSize int

// Grid sizes supported by the platform.
const (
	GridDefault = GridSize(0) // same as Grid25
	Grid25      = GridSize(25)
	Grid75      = GridSize(75)
	Grid225     = GridSize(225)
	Grid675     = GridSize(675)
)

func (g GridSize) check() error {
	switch g {
	case GridDefault, Grid25, Grid75, Grid225, Grid675:
		return nil
	}
	return errInvalidArgument("grid size must be one of 25, 75, 225 or 675, got %d",
		int(g))
}

// encode renders the wire form, e.g. "grid25".
func (g GridSize) encode() string {
	if g == GridDefault {
		g = Grid25
	}
	return fmt.Sprintf("grid%d", int(g))
}

// AggregateStats are the summary statistics of one attribute over the area
// of interest.
type AggregateStats struct {
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"`
}

// StatColumns is the fixed column set of an aggregate table.
var StatColumns = []string{"sum", "mean", "median", "min", "max", "std"}

// AggregateRow pairs an attribute with its statistics.
type AggregateRow struct {
	Attribute Tag
	Stats     AggregateStats
}

// AggregateSet is the per-attribute aggregate table for one area of
// interest, in server row order.
type AggregateSet struct {
	indexBy IndexBy
	Rows    []AggregateRow
}

// Get returns the statistics for an attribute identifier (ID or name,
// matching the indexBy the set was requested with).
func (s *AggregateSet) Get(key string) (AggregateStats, bool) {
	for _, r := range s.Rows {
		if s.indexBy.key(r.Attribute) == key {
			return r.Stats, true
		}
	}
	return AggregateStats{}, false
}

// Frame returns the table with an "attribute" identifier column followed by
// the StatColumns.
func (s *AggregateSet) Frame() *frame.Frame {
	recs := make([]*frame.Record, len(s.Rows))
	for i, r := range s.Rows {
		rec := frame.NewRecord()
		rec.Set("attribute", s.indexBy.key(r.Attribute))
		rec.Set("sum", r.Stats.Sum)
		rec.Set("mean", r.Stats.Mean)
		rec.Set("median", r.Stats.Median)
		rec.Set("min", r.Stats.Min)
		rec.Set("max", r.Stats.Max)
		rec.Set("std", r.Stats.Std)
		recs[i] = rec
	}
	return frame.FromRecords(recs, frame.Options{})
}

// Aggregates fetches the summary statistics of the given attributes over an
// area of interest, computed by the server on the grid of the given size.
func Aggregates(ctx context.Context, geometry *Geometry, ids []int, indexBy IndexBy, grid GridSize) (*AggregateSet, error) {
	if err := indexBy.check(); err != nil {
		return nil, err
	}
	if geometry == nil {
		return nil, errInvalidArgument("geometry is required")
	}
	if err := geometry.validate(); err != nil {
		return nil, err
	}
	if err := checkIDs(ids); err != nil {
		return nil, err
	}
	if err := grid.check(); err != nil {
		return nil, err
	}
	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}
	reqBody := struct {
		Geometry   *Geometry      `json:"geometry"`
		Attributes []attributeRef `json:"attributes"`
		GridSize   string         `json:"grid_size"`
	}{geometry, attributeRefs(ids), grid.encode()}
	data, err := client.post(ctx, "/aggregates/", &reqBody)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch aggregates")
	}
	var resp struct {
		Results []struct {
			Attribute  Tag            `json:"attribute"`
			Aggregates AggregateStats `json:"aggregates"`
		} `json:"results"`
		embeddedError
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errSchema(err, "aggregates")
	}
	if err := resp.embeddedError.check(); err != nil {
		return nil, err
	}
	logging.Infof(ctx, "udl.ai: fetched aggregates for %d attributes",
		len(resp.Results))
	set := &AggregateSet{indexBy: indexBy}
	for _, r := range resp.Results {
		set.Rows = append(set.Rows, AggregateRow{Attribute: r.Attribute, Stats: r.Aggregates})
	}
	return set, nil
}
