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
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"
	"github.com/udl-ai/udlai-go/frame"
)

// parallelRequests bounds the fan-out of batched detail fetches.
const parallelRequests = 8

// Tag is a thematic grouping of attributes.
type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Attribute describes a queryable data field of the platform warehouse: its
// identity, provenance and summary statistics. The set of attributes a token
// can see is managed by the platform administrator. Fields the server leaves
// null are nil.
type Attribute struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	ShortDescription   *string  `json:"short_description"`
	Unit               string   `json:"unit"`
	Tags               []Tag    `json:"tags"`
	MainTag            *Tag     `json:"main_tag"`
	DataVersion        *string  `json:"data_version"`
	DataLastUpdate     *string  `json:"data_last_update"`
	DataProcessor      string   `json:"data_processor"`
	SourceProvider     string   `json:"source_provider"`
	SourceProviderLink string   `json:"source_provider_link"`
	CoverageGeneral    string   `json:"coverage_general"`
	EPSGCode           *int     `json:"epsg_code"`
	MinValue           *float64 `json:"min_value"`
	MaxValue           *float64 `json:"max_value"`
	StandardDeviation  *float64 `json:"standard_deviation"`
	Mean               *float64 `json:"mean"`
	Year               *int     `json:"year"`
}

// AttributeList is the attribute catalog visible to the token: typed records
// plus the raw response records preserving the server's field order.
type AttributeList struct {
	Attributes []Attribute
	records    []*frame.Record
}

// Records returns the raw response objects in server order.
func (l *AttributeList) Records() []*frame.Record { return l.records }

// Frame returns one row per attribute with nested metadata flattened into
// dot-separated columns, e.g. "tags.id" or "main_tag.name".
func (l *AttributeList) Frame() *frame.Frame {
	return frame.FromRecords(l.records, frame.Options{})
}

// Attributes fetches all attributes the token has access to.
func Attributes(ctx context.Context) (*AttributeList, error) {
	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}
	data, err := client.get(ctx, "/attributes/")
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch attributes")
	}
	var attrs []Attribute
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, errSchema(err, "attributes")
	}
	recs, err := frame.DecodeRecords(data)
	if err != nil {
		return nil, errSchema(err, "attributes")
	}
	logging.Infof(ctx, "udl.ai: fetched %d attributes", len(attrs))
	return &AttributeList{Attributes: attrs, records: recs}, nil
}

// AttributeInfo is the full description of a single attribute.
type AttributeInfo struct {
	Attribute
	record *frame.Record
}

// Record returns the raw response object in server field order.
func (a *AttributeInfo) Record() *frame.Record { return a.record }

// Frame returns the single-entity field/value table, one row per flattened
// field, in the server's field order.
func (a *AttributeInfo) Frame() *frame.Frame {
	return frame.FromRecord(a.record, frame.Options{})
}

// AttributeDetail fetches a single attribute by its ID.
func AttributeDetail(ctx context.Context, id int) (*AttributeInfo, error) {
	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}
	data, err := client.get(ctx, fmt.Sprintf("/attributes/%d/", id))
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch attribute %d", id)
	}
	var info AttributeInfo
	if err := json.Unmarshal(data, &info.Attribute); err != nil {
		return nil, errSchema(err, "attribute detail")
	}
	rec, err := frame.DecodeRecord(data)
	if err != nil {
		return nil, errSchema(err, "attribute detail")
	}
	info.record = rec
	return &info, nil
}

// AttributeDetails fetches details for several attributes, issuing up to
// parallelRequests concurrent calls. The result order matches ids. The first
// failed fetch fails the whole batch.
func AttributeDetails(ctx context.Context, ids []int) ([]*AttributeInfo, error) {
	if err := checkIDs(ids); err != nil {
		return nil, err
	}
	if _, err := clientFrom(ctx); err != nil {
		return nil, err
	}
	type detail struct {
		index int
		info  *AttributeInfo
		err   error
	}
	indices := make([]int, len(ids))
	for i := range ids {
		indices[i] = i
	}
	f := func(i int) detail {
		info, err := AttributeDetail(ctx, ids[i])
		return detail{index: i, info: info, err: err}
	}
	pm := iterator.ParallelMap(ctx, parallelRequests, iterator.FromSlice(indices), f)
	defer pm.Close()

	details := iterator.Reduce[detail, []detail](pm, []detail{},
		func(d detail, acc []detail) []detail { return append(acc, d) })

	infos := make([]*AttributeInfo, len(ids))
	for _, d := range details {
		if d.err != nil {
			return nil, d.err
		}
		infos[d.index] = d.info
	}
	return infos, nil
}
