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

func TestAttributes(t *testing.T) {
	Convey("Attributes", t, func() {
		server := newTestServer()
		defer server.Close()
		ctx := useTestServer(server)

		Convey("catalog with nested metadata", func() {
			server.ResponseBody = []string{`[
  {"id": 1, "name": "population", "unit": "people",
   "tags": [{"id": 7, "name": "demography"}],
   "main_tag": {"id": 7, "name": "demography"}},
  {"id": 2, "name": "noise", "unit": "dB", "tags": [], "main_tag": null}
]`}
			list, err := Attributes(ctx)
			So(err, ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/attributes/")
			So(len(list.Attributes), ShouldEqual, 2)
			So(list.Attributes[0].ID, ShouldEqual, 1)
			So(list.Attributes[0].Tags, ShouldResemble, []Tag{{ID: 7, Name: "demography"}})
			So(list.Attributes[0].MainTag, ShouldResemble, &Tag{ID: 7, Name: "demography"})
			So(list.Attributes[1].MainTag, ShouldBeNil)

			Convey("table flattens nested metadata in server order", func() {
				f := list.Frame()
				So(f.Columns(), ShouldResemble, []string{
					"id", "name", "unit", "tags.id", "tags.name",
					"main_tag.id", "main_tag.name"})
				So(f.NumRows(), ShouldEqual, 2)
				So(f.Value(0, "tags.name"), ShouldEqual, "demography")
				So(f.Value(1, "main_tag.id"), ShouldBeNil)
			})
		})

		Convey("empty catalog", func() {
			server.ResponseBody = []string{"[]"}
			list, err := Attributes(ctx)
			So(err, ShouldBeNil)
			So(len(list.Attributes), ShouldEqual, 0)
			So(list.Frame().NumRows(), ShouldEqual, 0)
		})

		Convey("malformed response is a schema error", func() {
			server.ResponseBody = []string{`{"oops": true}`}
			_, err := Attributes(ctx)
			So(KindOf(err), ShouldEqual, KindSchema)
		})
	})

	Convey("AttributeDetail", t, func() {
		server := newTestServer()
		defer server.Close()
		ctx := useTestServer(server)

		Convey("fetches one attribute by ID", func() {
			server.ResponseBody = []string{`{"id": 42, "name": "noise",
  "min_value": 30.5, "main_tag": {"id": 3, "name": "environment"}}`}
			info, err := AttributeDetail(ctx, 42)
			So(err, ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/attributes/42/")
			So(info.ID, ShouldEqual, 42)
			So(*info.MinValue, ShouldEqual, 30.5)

			Convey("table is one row per field", func() {
				f := info.Frame()
				So(f.Columns(), ShouldResemble, []string{"field", "value"})
				So(f.NumRows(), ShouldEqual, 5)
				So(f.Value(0, "field"), ShouldEqual, "id")
				So(f.Value(0, "value"), ShouldEqual, 42.0)
				So(f.Value(3, "field"), ShouldEqual, "main_tag.id")
			})
		})

		Convey("unknown ID", func() {
			server.ResponseStatus = 404
			server.ResponseBody = []string{`{"error": "not found"}`}
			_, err := AttributeDetail(ctx, 999)
			So(KindOf(err), ShouldEqual, KindNotFound)
		})
	})

	Convey("AttributeDetails", t, func() {
		server := newTestServer()
		defer server.Close()
		ctx := useTestServer(server)

		Convey("results are ordered as requested", func() {
			server.ResponseByPath = map[string]string{
				"/attributes/5/": `{"id": 5, "name": "five"}`,
				"/attributes/3/": `{"id": 3, "name": "three"}`,
			}
			infos, err := AttributeDetails(ctx, []int{5, 3})
			So(err, ShouldBeNil)
			So(len(infos), ShouldEqual, 2)
			So(infos[0].ID, ShouldEqual, 5)
			So(infos[1].ID, ShouldEqual, 3)
		})

		Convey("one failure fails the batch", func() {
			server.ResponseStatus = 404
			server.ResponseBody = []string{`{"error": "not found"}`}
			_, err := AttributeDetails(ctx, []int{5, 3})
			So(KindOf(err), ShouldEqual, KindNotFound)
		})

		Convey("empty IDs are rejected locally", func() {
			_, err := AttributeDetails(ctx, nil)
			So(KindOf(err), ShouldEqual, KindInvalidArgument)
			So(server.Requests, ShouldEqual, 0)
		})
	})
}
