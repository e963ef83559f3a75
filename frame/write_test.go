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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func testFrame() *Frame {
	r1 := NewRecord()
	r1.Set("a", 1.0)
	r1.Set("bb", "x")
	r2 := NewRecord()
	r2.Set("a", 2.5)
	return FromRecords([]*Record{r1, r2}, Options{})
}

func TestWrite(t *testing.T) {
	t.Parallel()

	Convey("Format", t, func() {
		So(Format(nil), ShouldEqual, "")
		So(Format("s"), ShouldEqual, "s")
		So(Format(1.0), ShouldEqual, "1")
		So(Format(2.5), ShouldEqual, "2.5")
		So(Format(true), ShouldEqual, "true")
		So(Format([]Value{1.0, "a"}), ShouldEqual, `[1,"a"]`)
	})

	Convey("WriteCSV", t, func() {
		f := testFrame()

		Convey("with header", func() {
			var buf bytes.Buffer
			So(f.WriteCSV(&buf, Params{}), ShouldBeNil)
			So(buf.String(), ShouldEqual, "a,bb\n1,x\n2.5,\n")
		})

		Convey("without header, limited rows", func() {
			var buf bytes.Buffer
			So(f.WriteCSV(&buf, Params{NoHeader: true, Rows: 1}), ShouldBeNil)
			So(buf.String(), ShouldEqual, "1,x\n")
		})
	})

	Convey("WriteText", t, func() {
		f := testFrame()

		Convey("aligns columns under the header", func() {
			var buf bytes.Buffer
			So(f.WriteText(&buf, Params{}), ShouldBeNil)
			expected := "  a | bb\n" +
				"--- | --\n" +
				"  1 |  x\n" +
				"2.5 |   \n"
			So(buf.String(), ShouldEqual, expected)
		})

		Convey("trims wide cells", func() {
			r := NewRecord()
			r.Set("c", "abcdefgh")
			f := FromRecords([]*Record{r}, Options{})
			var buf bytes.Buffer
			So(f.WriteText(&buf, Params{MaxColWidth: 4}), ShouldBeNil)
			So(buf.String(), ShouldEqual, "   c\n----\nab..\n")
		})

		Convey("rejects tiny MaxColWidth", func() {
			var buf bytes.Buffer
			So(f.WriteText(&buf, Params{MaxColWidth: 2}), ShouldNotBeNil)
		})
	})
}
