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
	"strconv"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/udl-ai/udlai-go/frame"
)

// IndexBy selects how returned values are keyed: by the attribute ID or by
// its name.
type IndexBy string

// Values of IndexBy.
const (
	IndexByID   = IndexBy("id")
	IndexByName = IndexBy("name")
)

func (i IndexBy) check() error {
	switch i {
	case IndexByID, IndexByName:
		return nil
	}
	return errInvalidArgument("index_by must be one of 'id' or 'name', got '%s'", i)
}

// key renders the identifier of an attribute under this indexing.
func (i IndexBy) key(t Tag) string {
	if i == IndexByName {
		return t.Name
	}
	return strconv.Itoa(t.ID)
}

// Coordinate is a WGS84 location.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) check() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return errInvalidArgument("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return errInvalidArgument("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// attributeRef is the wire form of a requested attribute ID.
type attributeRef struct {
	ID int `json:"id"`
}

func attributeRefs(ids []int) []attributeRef {
	refs := make([]attributeRef, len(ids))
	for i, id := range ids {
		refs[i] = attributeRef{ID: id}
	}
	return refs
}

func checkIDs(ids []int) error {
	if len(ids) == 0 {
		return errInvalidArgument("at least one attribute ID is required")
	}
	return nil
}

// featureValue is the wire form of one attribute value.
type featureValue struct {
	Attribute Tag         `json:"attribute"`
	Value     frame.Value `json:"value"`
}

// embeddedError is the error shape some endpoints return inside an HTTP 200
// body, e.g. when a requested attribute is not assigned to the user.
type embeddedError struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

func (e embeddedError) check() error {
	if e.Error == "" {
		return nil
	}
	return &Error{
		Kind:    KindInvalidArgument,
		Message: e.Error,
		Details: detailsString(e.Details),
	}
}

// FeatureSet maps attribute identifiers to their values at one coordinate.
// Keys are ordered as returned by the server.
type FeatureSet struct {
	Coordinate Coordinate
	indexBy    IndexBy
	keys       []string
	values     map[string]frame.Value
}

// Len is the number of attribute values in the set.
func (s *FeatureSet) Len() int { return len(s.keys) }

// Keys returns the attribute identifiers in server order.
func (s *FeatureSet) Keys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Value returns the value for an attribute identifier, and whether the
// identifier is present.
func (s *FeatureSet) Value(key string) (frame.Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Frame returns a single-row table with one column per attribute identifier.
func (s *FeatureSet) Frame() *frame.Frame {
	row := frame.NewRecord()
	for _, k := range s.keys {
		row.Set(k, s.values[k])
	}
	return frame.FromRecords([]*frame.Record{row}, frame.Options{})
}

// Features fetches the values of the given attributes at one coordinate.
// The result is keyed by attribute ID or name per indexBy. A coordinate
// outside the covered area yields an empty set and a warning log.
func Features(ctx context.Context, lat, lon float64, ids []int, indexBy IndexBy) (*FeatureSet, error) {
	if err := indexBy.check(); err != nil {
		return nil, err
	}
	coord := Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.check(); err != nil {
		return nil, err
	}
	if err := checkIDs(ids); err != nil {
		return nil, err
	}
	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}
	reqBody := struct {
		Coordinates Coordinate     `json:"coordinates"`
		Attributes  []attributeRef `json:"attributes"`
	}{coord, attributeRefs(ids)}
	data, err := client.post(ctx, "/features/", &reqBody)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch features at (%v, %v)",
			lat, lon)
	}
	var resp struct {
		Values []featureValue `json:"values"`
		embeddedError
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errSchema(err, "features")
	}
	if err := resp.embeddedError.check(); err != nil {
		return nil, err
	}
	if len(resp.Values) == 0 {
		logging.Warningf(ctx,
			"udl.ai: no values at (%v, %v); is the location within the covered area?",
			lat, lon)
	}
	set := &FeatureSet{
		Coordinate: coord,
		indexBy:    indexBy,
		values:     make(map[string]frame.Value),
	}
	for _, v := range resp.Values {
		key := indexBy.key(v.Attribute)
		if _, ok := set.values[key]; !ok {
			set.keys = append(set.keys, key)
		}
		set.values[key] = v.Value
	}
	return set, nil
}

// FeaturesMulti fetches the values of the given attributes at several
// coordinates in one round trip. The result has one row per coordinate with
// latitude, longitude and one column per attribute identifier; coordinates
// outside the covered area get nil cells.
func FeaturesMulti(ctx context.Context, coords []Coordinate, ids []int, indexBy IndexBy) (*frame.Frame, error) {
	if err := indexBy.check(); err != nil {
		return nil, err
	}
	if len(coords) == 0 {
		return nil, errInvalidArgument("at least one coordinate is required")
	}
	for i, c := range coords {
		if err := c.check(); err != nil {
			return nil, errors.Annotate(err, "coordinate %d", i)
		}
	}
	if err := checkIDs(ids); err != nil {
		return nil, err
	}
	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}
	reqBody := struct {
		Coordinates []Coordinate   `json:"coordinates"`
		Attributes  []attributeRef `json:"attributes"`
	}{coords, attributeRefs(ids)}
	data, err := client.post(ctx, "/features/multi/", &reqBody)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch features for %d points",
			len(coords))
	}
	var resp struct {
		Results []struct {
			Coordinates Coordinate     `json:"coordinates"`
			Values      []featureValue `json:"values"`
		} `json:"results"`
		embeddedError
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errSchema(err, "features")
	}
	if err := resp.embeddedError.check(); err != nil {
		return nil, err
	}
	recs := make([]*frame.Record, len(resp.Results))
	missing := 0
	for i, pt := range resp.Results {
		rec := frame.NewRecord()
		rec.Set("latitude", pt.Coordinates.Latitude)
		rec.Set("longitude", pt.Coordinates.Longitude)
		for _, v := range pt.Values {
			rec.Set(indexBy.key(v.Attribute), v.Value)
		}
		if len(pt.Values) == 0 {
			missing++
		}
		recs[i] = rec
	}
	if missing > 0 {
		logging.Warningf(ctx,
			"udl.ai: %d of %d locations returned no values; are they within the covered area?",
			missing, len(resp.Results))
	}
	return frame.FromRecords(recs, frame.Options{}), nil
}
