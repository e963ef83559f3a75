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

// Package frame reshapes JSON API responses into tables.
//
// The API returns lists of objects with freely nested metadata. A Frame is
// the flat tabular view of such a list: one row per object, one column per
// flattened key ("parent.child" for nested objects), with missing cells set
// to nil. Column order is the order in which keys are first seen across the
// scanned objects; row order is the input order.
//
// Record preserves the key order of a single JSON object, which Go maps do
// not. All decoding of API payloads into Frames goes through Records.
package frame

import (
	"github.com/stockparfait/errors"
)

// Value is an arbitrary value of a table cell.
type Value interface{}

// Record is a JSON object with preserved key order. Values are nil, bool,
// float64, string, []Value or nested *Record, as decoded by DecodeRecord.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set assigns a value to a key. A new key is appended at the end; setting an
// existing key overwrites its value but keeps its position.
func (r *Record) Set(key string, v Value) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value of a key, and whether the key is present.
func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in their original order.
func (r *Record) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len is the number of keys in the record.
func (r *Record) Len() int { return len(r.keys) }

// Options configure flattening of nested records.
type Options struct {
	Separator string // joins nested key paths; default: "."
}

func (o Options) separator() string {
	if o.Separator == "" {
		return "."
	}
	return o.Separator
}

// Flatten converts nested objects into a single-level record with compound
// keys joined by the separator. Elements of a list of objects are flattened
// into the same parent key; on duplicate keys the last value wins. Lists of
// plain values are kept as a single list cell.
func (r *Record) Flatten(opts Options) *Record {
	out := NewRecord()
	flattenInto(out, r, "", opts.separator())
	return out
}

func flattenInto(out, r *Record, prefix, sep string) {
	for _, k := range r.keys {
		key := k
		if prefix != "" {
			key = prefix + sep + k
		}
		switch v := r.values[k].(type) {
		case *Record:
			flattenInto(out, v, key, sep)
		case []Value:
			if recs, ok := recordElements(v); ok {
				for _, el := range recs {
					flattenInto(out, el, key, sep)
				}
			} else {
				out.Set(key, v)
			}
		default:
			out.Set(key, v)
		}
	}
}

// recordElements returns the elements of v as records if all of them are
// records.
func recordElements(v []Value) ([]*Record, bool) {
	recs := make([]*Record, len(v))
	for i, el := range v {
		r, ok := el.(*Record)
		if !ok {
			return nil, false
		}
		recs[i] = r
	}
	return recs, true
}

// Frame is a table: an ordered list of named columns and an ordered list of
// rows. Cells of columns a row doesn't have are nil.
type Frame struct {
	columns []string
	index   map[string]int // column name -> position
	rows    [][]Value
}

// New creates an empty frame with optional initial columns.
func New(columns ...string) *Frame {
	f := &Frame{index: make(map[string]int)}
	for _, c := range columns {
		f.addColumn(c)
	}
	return f
}

func (f *Frame) addColumn(name string) int {
	if i, ok := f.index[name]; ok {
		return i
	}
	i := len(f.columns)
	f.columns = append(f.columns, name)
	f.index[name] = i
	return i
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	columns := make([]string, len(f.columns))
	copy(columns, f.columns)
	return columns
}

// NumColumns is the number of columns.
func (f *Frame) NumColumns() int { return len(f.columns) }

// NumRows is the number of rows.
func (f *Frame) NumRows() int { return len(f.rows) }

// Row returns the i'th row padded to the full column set.
func (f *Frame) Row(i int) []Value {
	row := make([]Value, len(f.columns))
	copy(row, f.rows[i])
	return row
}

// Value returns the cell at row i and the named column; nil if the column
// doesn't exist or the cell is not set.
func (f *Frame) Value(i int, column string) Value {
	j, ok := f.index[column]
	if !ok || j >= len(f.rows[i]) {
		return nil
	}
	return f.rows[i][j]
}

// Column returns all cells of the named column, and whether the column
// exists.
func (f *Frame) Column(name string) ([]Value, bool) {
	if _, ok := f.index[name]; !ok {
		return nil, false
	}
	col := make([]Value, len(f.rows))
	for i := range f.rows {
		col[i] = f.Value(i, name)
	}
	return col, true
}

// Floats returns the numeric cells of the named column, skipping nil cells.
// A non-numeric cell is an error.
func (f *Frame) Floats(column string) ([]float64, error) {
	col, ok := f.Column(column)
	if !ok {
		return nil, errors.Reason("no such column: '%s'", column)
	}
	var xs []float64
	for i, v := range col {
		switch x := v.(type) {
		case nil: // missing cell
		case float64:
			xs = append(xs, x)
		case int:
			xs = append(xs, float64(x))
		default:
			return nil, errors.Reason(
				"column '%s' row %d: value %v is not a number", column, i, v)
		}
	}
	return xs, nil
}

// AddRecord appends a row from an already flattened record, extending the
// column set with any new keys in their record order.
func (f *Frame) AddRecord(r *Record) {
	row := make([]Value, len(f.columns))
	for _, k := range r.keys {
		j := f.addColumn(k)
		for j >= len(row) {
			row = append(row, nil)
		}
		row[j] = r.values[k]
	}
	f.rows = append(f.rows, row)
}

// FromRecords builds a frame from a list of records, one row each. Records
// are flattened; the column set is the union of all keys in first-seen
// order, and cells missing from a row are nil.
func FromRecords(recs []*Record, opts Options) *Frame {
	f := New()
	for _, r := range recs {
		f.AddRecord(r.Flatten(opts))
	}
	return f
}

// FromRecord builds a two-column field/value frame from a single record,
// one row per flattened key. This is the column-oriented view used for
// single-entity responses.
func FromRecord(rec *Record, opts Options) *Frame {
	f := New("field", "value")
	flat := rec.Flatten(opts)
	for _, k := range flat.keys {
		row := NewRecord()
		row.Set("field", k)
		row.Set("value", flat.values[k])
		f.AddRecord(row)
	}
	return f
}
