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
	"bytes"
	"encoding/json"

	"github.com/stockparfait/errors"
)

// DecodeRecord decodes a single JSON object preserving its key order.
// Numbers become float64, nested objects *Record, arrays []Value.
func DecodeRecord(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decodeValue(dec)
	if err != nil {
		return nil, errors.Annotate(err, "failed to decode JSON object")
	}
	r, ok := v.(*Record)
	if !ok {
		return nil, errors.Reason("top-level JSON value is not an object: %v", v)
	}
	return r, nil
}

// DecodeRecords decodes a JSON array of objects preserving the key order
// within each object and the object order within the array.
func DecodeRecords(data []byte) ([]*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Annotate(err, "failed to decode JSON array")
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, errors.Reason("top-level JSON value is not an array: %v", tok)
	}
	recs := []*Record{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, errors.Annotate(err, "failed to decode array element %d",
				len(recs))
		}
		r, ok := v.(*Record)
		if !ok {
			return nil, errors.Reason("array element %d is not an object: %v",
				len(recs), v)
		}
		recs = append(recs, r)
	}
	if _, err := dec.Token(); err != nil { // the closing ']'
		return nil, errors.Annotate(err, "failed to decode JSON array")
	}
	return recs, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil // string, float64, bool or nil
	}
	switch d {
	case '{':
		r := NewRecord()
		for dec.More() {
			ktok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := ktok.(string)
			if !ok {
				return nil, errors.Reason("object key is not a string: %v", ktok)
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, errors.Annotate(err, "failed to decode value of '%s'", key)
			}
			r.Set(key, v)
		}
		if _, err := dec.Token(); err != nil { // the closing '}'
			return nil, err
		}
		return r, nil
	case '[':
		vals := []Value{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, errors.Annotate(err, "failed to decode array element %d",
					len(vals))
			}
			vals = append(vals, v)
		}
		if _, err := dec.Token(); err != nil { // the closing ']'
			return nil, err
		}
		return vals, nil
	}
	return nil, errors.Reason("unexpected delimiter: %v", d)
}
