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

package frame

import (
	"github.com/stockparfait/errors"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Describe computes summary statistics for the given numeric columns: one
// row per column with {sum, mean, median, min, max, std}, the same column
// set the platform reports for area aggregates. Nil cells are skipped; std
// is the sample standard deviation and is NaN for a single value.
func Describe(f *Frame, columns ...string) (*Frame, error) {
	if len(columns) == 0 {
		return nil, errors.Reason("at least one column is required")
	}
	out := New("column", "sum", "mean", "median", "min", "max", "std")
	for _, col := range columns {
		xs, err := f.Floats(col)
		if err != nil {
			return nil, errors.Annotate(err, "cannot describe column '%s'", col)
		}
		if len(xs) == 0 {
			return nil, errors.Reason("column '%s' has no numeric values", col)
		}
		sorted := slices.Clone(xs)
		slices.Sort(sorted)
		row := NewRecord()
		row.Set("column", col)
		row.Set("sum", floats.Sum(xs))
		row.Set("mean", stat.Mean(xs, nil))
		row.Set("median", median(sorted))
		row.Set("min", sorted[0])
		row.Set("max", sorted[len(sorted)-1])
		row.Set("std", stat.StdDev(xs, nil))
		out.AddRecord(row)
	}
	return out, nil
}

// median of an already sorted non-empty slice, interpolating between the two
// middle values for even lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
