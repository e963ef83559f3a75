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

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/logging"
	"github.com/udl-ai/udlai-go/udl"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(t *testing.T) {
	tmpdir, tmpdirErr := os.MkdirTemp("", "test_udlai")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("parseFlags", t, func() {
		Convey("one operation with its options", func() {
			flags, err := parseFlags([]string{
				"-features", "47.4,8.5", "-ids", "1,2", "-index-by", "name",
				"-csv", "-log-level", "warning"})
			So(err, ShouldBeNil)
			So(flags.Features, ShouldEqual, "47.4,8.5")
			So(flags.IDs, ShouldEqual, "1,2")
			So(flags.IndexBy, ShouldEqual, "name")
			So(flags.CSV, ShouldBeTrue)
			So(flags.LogLevel, ShouldEqual, logging.Warning)
		})

		Convey("no operation", func() {
			_, err := parseFlags([]string{"-ids", "1"})
			So(err, ShouldNotBeNil)
		})

		Convey("two operations", func() {
			_, err := parseFlags([]string{"-attributes", "-geocode", "somewhere"})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("parseConfig", t, func() {
		fileName := filepath.Join(tmpdir, "config.toml")
		So(os.WriteFile(fileName, []byte(`token = "testToken"
url = "http://localhost:1234"
`), 0644), ShouldBeNil)

		Convey("reads the file", func() {
			c, err := parseConfig(fileName)
			So(err, ShouldBeNil)
			So(c.Token, ShouldEqual, "testToken")
			So(c.URL, ShouldEqual, "http://localhost:1234")
		})

		Convey("environment overrides the file", func() {
			os.Setenv("UDLAI_TOKEN", "envToken")
			defer os.Unsetenv("UDLAI_TOKEN")
			c, err := parseConfig(fileName)
			So(err, ShouldBeNil)
			So(c.Token, ShouldEqual, "envToken")
			So(c.URL, ShouldEqual, "http://localhost:1234")
		})

		Convey("environment alone is enough", func() {
			os.Setenv("UDLAI_TOKEN", "envToken")
			defer os.Unsetenv("UDLAI_TOKEN")
			c, err := parseConfig("")
			So(err, ShouldBeNil)
			So(c.Token, ShouldEqual, "envToken")
		})

		Convey("missing file suggests a sample", func() {
			_, err := parseConfig(filepath.Join(tmpdir, "nonexistent.toml"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "does not exist")
		})

		Convey("no token anywhere", func() {
			_, err := parseConfig("")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("argument parsing helpers", t, func() {
		Convey("parseIDs", func() {
			ids, err := parseIDs("1, 2,3")
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []int{1, 2, 3})

			_, err = parseIDs("")
			So(err, ShouldNotBeNil)
			_, err = parseIDs("1,x")
			So(err, ShouldNotBeNil)
		})

		Convey("parseLatLon", func() {
			lat, lon, err := parseLatLon("47.4, 8.5")
			So(err, ShouldBeNil)
			So(lat, ShouldEqual, 47.4)
			So(lon, ShouldEqual, 8.5)

			_, _, err = parseLatLon("47.4")
			So(err, ShouldNotBeNil)
			_, _, err = parseLatLon("a,b")
			So(err, ShouldNotBeNil)
		})

		Convey("loadGeometry", func() {
			geojson := filepath.Join(tmpdir, "area.geojson")
			So(os.WriteFile(geojson, []byte(
				`{"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}`),
				0644), ShouldBeNil)
			g, err := loadGeometry(geojson)
			So(err, ShouldBeNil)
			So(g.Type, ShouldEqual, udl.TypePolygon)

			wkt := filepath.Join(tmpdir, "area.wkt")
			So(os.WriteFile(wkt, []byte("POLYGON((0 0, 1 0, 1 1, 0 0))"), 0644),
				ShouldBeNil)
			g, err = loadGeometry(wkt)
			So(err, ShouldBeNil)
			So(g.Type, ShouldEqual, udl.TypePolygon)

			_, err = loadGeometry(filepath.Join(tmpdir, "nonexistent"))
			So(err, ShouldNotBeNil)
		})
	})

	Convey("run", t, func() {
		server := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[{"id": 1, "name": "population", "unit": "people"}]`))
			}))
		defer server.Close()

		fileName := filepath.Join(tmpdir, "run_config.toml")
		So(os.WriteFile(fileName, []byte(
			"token = \"testToken\"\nurl = \""+server.URL+"\"\n"), 0644), ShouldBeNil)

		ctx := logging.Use(context.Background(), logging.DefaultGoLogger(logging.Info))
		flags, err := parseFlags([]string{"-attributes", "-csv", "-config", fileName})
		So(err, ShouldBeNil)

		var buf bytes.Buffer
		So(run(ctx, flags, &buf), ShouldBeNil)
		So(buf.String(), ShouldEqual, "id,name,unit\n1,population,people\n")
	})
}
