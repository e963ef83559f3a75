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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGeocoding(t *testing.T) {
	Convey("Geocoding", t, func() {
		server := newTestServer()
		defer server.Close()
		ctx := useTestServer(server)
		body := `{"addresses": [
  {"address": {"street": "Bahnhofstrasse", "number": "10", "postcode": 8001,
   "town": "Zurich", "latitude": 47.368, "longitude": 8.539, "score": 0.98}},
  {"address": {"street": "Limmatquai", "number": 2, "postcode": "8001",
   "town": "Zurich", "latitude": 47.371, "longitude": 8.543, "score": 0.75}}
]}`

		Convey("GeocodeStructured", func() {
			server.ResponseBody = []string{body}
			res, err := GeocodeStructured(ctx, []Address{{
				Street:   "Bahnhofstrasse",
				Number:   "10",
				Postcode: "8001",
				Town:     "Zurich",
			}})
			So(err, ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/geocoding/structured/")
			So(server.RequestBody, ShouldEqual,
				`{"addresses":[{"street":"Bahnhofstrasse","number":"10","postcode":"8001","town":"Zurich"}]}`)
			So(len(res.Matches), ShouldEqual, 2)
			So(res.Matches[0].Score, ShouldEqual, 0.98)

			Convey("numeric house numbers and postcodes become strings", func() {
				So(res.Matches[0].Postcode, ShouldEqual, "8001")
				So(res.Matches[1].Number, ShouldEqual, "2")
			})

			Convey("matches keep the server rank order", func() {
				So(res.Matches[0].Street, ShouldEqual, "Bahnhofstrasse")
				So(res.Matches[1].Street, ShouldEqual, "Limmatquai")
			})

			Convey("table is one row per match", func() {
				f := res.Frame()
				So(f.Columns(), ShouldResemble, []string{
					"street", "number", "postcode", "town",
					"latitude", "longitude", "score"})
				So(f.NumRows(), ShouldEqual, 2)
				So(f.Value(1, "score"), ShouldEqual, 0.75)
			})
		})

		Convey("GeocodeUnstructured", func() {
			server.ResponseBody = []string{body}
			res, err := GeocodeUnstructured(ctx, []string{"Bahnhofstrasse 10, Zurich"})
			So(err, ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/geocoding/unstructured/")
			So(server.RequestBody, ShouldEqual,
				`{"addresses":[{"address":"Bahnhofstrasse 10, Zurich"}]}`)
			So(len(res.Matches), ShouldEqual, 2)
		})

		Convey("empty inputs are rejected locally", func() {
			_, err := GeocodeStructured(ctx, nil)
			So(KindOf(err), ShouldEqual, KindInvalidArgument)
			_, err = GeocodeUnstructured(ctx, nil)
			So(KindOf(err), ShouldEqual, KindInvalidArgument)
			So(server.Requests, ShouldEqual, 0)
		})

		Convey("no matches", func() {
			server.ResponseBody = []string{`{"addresses": []}`}
			res, err := GeocodeUnstructured(ctx, []string{"nowhere"})
			So(err, ShouldBeNil)
			So(len(res.Matches), ShouldEqual, 0)
		})

		Convey("error in a 200 body", func() {
			server.ResponseBody = []string{`{"error": "too many addresses"}`}
			_, err := GeocodeUnstructured(ctx, []string{"a", "b"})
			So(KindOf(err), ShouldEqual, KindInvalidArgument)
		})
	})
}
