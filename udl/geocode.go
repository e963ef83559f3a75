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
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/udl-ai/udlai-go/frame"
)

// Address is a structured postal address for geocoding.
type Address struct {
	Street   string `json:"street"`
	Number   string `json:"number"`
	Postcode string `json:"postcode"`
	Town     string `json:"town"`
}

// AddressMatch is a geocoded address as known to the platform database,
// with a match score: 1 is an exact match, 0 is no match.
type AddressMatch struct {
	Street    string
	Number    string
	Postcode  string
	Town      string
	Latitude  float64
	Longitude float64
	Score     float64
}

// GeocodeResult holds candidate matches in server rank order, typically by
// descending score.
type GeocodeResult struct {
	Matches []AddressMatch
	records []*frame.Record
}

// Records returns the raw match objects in server order.
func (r *GeocodeResult) Records() []*frame.Record { return r.records }

// Frame returns one row per match in server order.
func (r *GeocodeResult) Frame() *frame.Frame {
	return frame.FromRecords(r.records, frame.Options{})
}

// flexString accepts both JSON strings and numbers; the geocoder returns
// house numbers and postcodes in either form.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(strings.TrimSpace(string(data)))
	return nil
}

// addressPayload is the wire form of a geocoded address.
type addressPayload struct {
	Street    flexString `json:"street"`
	Number    flexString `json:"number"`
	Postcode  flexString `json:"postcode"`
	Town      flexString `json:"town"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Score     float64    `json:"score"`
}

func (p addressPayload) match() AddressMatch {
	return AddressMatch{
		Street:    string(p.Street),
		Number:    string(p.Number),
		Postcode:  string(p.Postcode),
		Town:      string(p.Town),
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Score:     p.Score,
	}
}

// geocode posts the request and reshapes the {"addresses": [{"address":
// {...}}]} response shared by both geocoding endpoints.
func geocode(ctx context.Context, path string, reqBody interface{}) (*GeocodeResult, error) {
	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}
	data, err := client.post(ctx, path, reqBody)
	if err != nil {
		return nil, errors.Annotate(err, "failed to geocode")
	}
	var resp struct {
		Addresses []struct {
			Address addressPayload `json:"address"`
		} `json:"addresses"`
		embeddedError
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errSchema(err, "geocoding")
	}
	if err := resp.embeddedError.check(); err != nil {
		return nil, err
	}
	res := &GeocodeResult{}
	for _, a := range resp.Addresses {
		res.Matches = append(res.Matches, a.Address.match())
	}
	var errRecords error
	res.records, errRecords = geocodeRecords(data)
	if errRecords != nil {
		return nil, errSchema(errRecords, "geocoding")
	}
	logging.Infof(ctx, "udl.ai: geocoded %d addresses", len(res.Matches))
	return res, nil
}

// geocodeRecords extracts the inner address objects with their key order
// preserved.
func geocodeRecords(data []byte) ([]*frame.Record, error) {
	rec, err := frame.DecodeRecord(data)
	if err != nil {
		return nil, err
	}
	v, ok := rec.Get("addresses")
	if !ok {
		return nil, errors.Reason("response has no 'addresses' field")
	}
	list, ok := v.([]frame.Value)
	if !ok {
		return nil, errors.Reason("'addresses' is not a list")
	}
	records := make([]*frame.Record, len(list))
	for i, el := range list {
		wrapper, ok := el.(*frame.Record)
		if !ok {
			return nil, errors.Reason("address %d is not an object", i)
		}
		inner, ok := wrapper.Get("address")
		if !ok {
			return nil, errors.Reason("address %d has no 'address' field", i)
		}
		r, ok := inner.(*frame.Record)
		if !ok {
			return nil, errors.Reason("address %d is not an object", i)
		}
		records[i] = r
	}
	return records, nil
}

// GeocodeStructured geocodes addresses given as structured street / number /
// postcode / town components. It returns the addresses as the platform
// knows them, not the originals.
func GeocodeStructured(ctx context.Context, addresses []Address) (*GeocodeResult, error) {
	if len(addresses) == 0 {
		return nil, errInvalidArgument("at least one address is required")
	}
	reqBody := struct {
		Addresses []Address `json:"addresses"`
	}{addresses}
	return geocode(ctx, "/geocoding/structured/", &reqBody)
}

// GeocodeUnstructured geocodes free-text address strings.
func GeocodeUnstructured(ctx context.Context, queries []string) (*GeocodeResult, error) {
	if len(queries) == 0 {
		return nil, errInvalidArgument("at least one address is required")
	}
	type query struct {
		Address string `json:"address"`
	}
	qs := make([]query, len(queries))
	for i, q := range queries {
		qs[i] = query{Address: q}
	}
	reqBody := struct {
		Addresses []query `json:"addresses"`
	}{qs}
	return geocode(ctx, "/geocoding/unstructured/", &reqBody)
}
