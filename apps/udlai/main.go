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

// Command udlai queries the UDL.AI public API from the command line and
// prints the results as text or CSV tables.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/udl-ai/udlai-go/frame"
	"github.com/udl-ai/udlai-go/udl"

	toml "github.com/pelletier/go-toml/v2"
)

type Flags struct {
	Config   string // path to the TOML config with the API token
	LogLevel logging.Level
	CSV      bool   // dump CSV format; default: text
	IndexBy  string // "id" or "name"
	IDs      string // comma-separated attribute IDs
	Grid     int    // aggregation grid size in meters
	// Exactly one of the following must be present.
	Attributes bool
	Attribute  int    // attribute ID to fetch the detail of
	Features   string // "lat,lon" coordinate to fetch features at
	Aggregates string // path to a GeoJSON or WKT file with the area geometry
	Geocode    string // free-text address to geocode
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("udlai", flag.ExitOnError)
	fs.StringVar(&flags.Config, "config", "", "path to the TOML config file")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.BoolVar(&flags.CSV, "csv", false, "print tables in CSV format; default: text")
	fs.StringVar(&flags.IndexBy, "index-by", "id",
		"key returned values by attribute 'id' or 'name'")
	fs.StringVar(&flags.IDs, "ids", "", "comma-separated attribute IDs")
	fs.IntVar(&flags.Grid, "grid", 0, "aggregation grid size: 25, 75, 225 or 675")
	fs.BoolVar(&flags.Attributes, "attributes", false, "list available attributes")
	fs.IntVar(&flags.Attribute, "attribute", 0, "print the detail of one attribute ID")
	fs.StringVar(&flags.Features, "features", "",
		"fetch feature values at a 'lat,lon' coordinate")
	fs.StringVar(&flags.Aggregates, "aggregates", "",
		"fetch area aggregates for the geometry in a GeoJSON or WKT file")
	fs.StringVar(&flags.Geocode, "geocode", "", "geocode a free-text address")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	kinds := 0
	if flags.Attributes {
		kinds++
	}
	if flags.Attribute != 0 {
		kinds++
	}
	if flags.Features != "" {
		kinds++
	}
	if flags.Aggregates != "" {
		kinds++
	}
	if flags.Geocode != "" {
		kinds++
	}
	if kinds != 1 {
		return nil, errors.Reason("expected exactly one of -attributes, " +
			"-attribute, -features, -aggregates or -geocode")
	}
	return &flags, nil
}

type Config struct {
	Token string `toml:"token"`
	URL   string `toml:"url"` // optional API base URL override
}

// envOverrides are applied on top of the config file.
type envOverrides struct {
	Token string `envconfig:"UDLAI_TOKEN"`
	URL   string `envconfig:"UDLAI_URL"`
}

func parseConfig(filePath string) (*Config, error) {
	var c Config
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				sample := `token = "YourSecretUDLAIToken"
`
				return nil, errors.Annotate(err,
					"config file '%s' does not exist.\nPlease create a config file containing:\n%s",
					filePath, sample)
			}
			return nil, errors.Annotate(err, "failed to open config file %s", filePath)
		}
		defer f.Close()
		d := toml.NewDecoder(f)
		if err := d.Decode(&c); err != nil {
			return nil, errors.Annotate(err, "failed to read config file %s", filePath)
		}
	}
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, errors.Annotate(err, "failed to read environment")
	}
	if env.Token != "" {
		c.Token = env.Token
	}
	if env.URL != "" {
		c.URL = env.URL
	}
	if c.Token == "" {
		return nil, errors.Reason(
			"no API token: set 'token' in the config file or the UDLAI_TOKEN variable")
	}
	return &c, nil
}

func parseIDs(s string) ([]int, error) {
	if s == "" {
		return nil, errors.Reason("missing required -ids argument")
	}
	var ids []int
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Annotate(err, "invalid attribute ID '%s'", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseLatLon(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, errors.Reason("expected 'lat,lon', got '%s'", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, errors.Annotate(err, "invalid latitude '%s'", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, errors.Annotate(err, "invalid longitude '%s'", parts[1])
	}
	return lat, lon, nil
}

// loadGeometry reads an area of interest from a GeoJSON or WKT file.
func loadGeometry(filePath string) (*udl.Geometry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read geometry file %s", filePath)
	}
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "{") {
		var g udl.Geometry
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, errors.Annotate(err, "failed to parse GeoJSON in %s", filePath)
		}
		return &g, nil
	}
	g, err := udl.GeometryFromWKT(text)
	if err != nil {
		return nil, errors.Annotate(err, "failed to parse WKT in %s", filePath)
	}
	return g, nil
}

func printFrame(f *frame.Frame, flags *Flags, w io.Writer) error {
	if flags.CSV {
		if err := f.WriteCSV(w, frame.Params{}); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := f.WriteText(w, frame.Params{}); err != nil {
		return errors.Annotate(err, "failed to print text")
	}
	return nil
}

func run(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := parseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	if config.URL != "" {
		udl.URL = config.URL
	}
	ctx = udl.UseClient(ctx, config.Token)
	indexBy := udl.IndexBy(flags.IndexBy)

	var f *frame.Frame
	switch {
	case flags.Attributes:
		attrs, err := udl.Attributes(ctx)
		if err != nil {
			return errors.Annotate(err, "failed to list attributes")
		}
		f = attrs.Frame()
	case flags.Attribute != 0:
		info, err := udl.AttributeDetail(ctx, flags.Attribute)
		if err != nil {
			return errors.Annotate(err, "failed to fetch attribute %d", flags.Attribute)
		}
		f = info.Frame()
	case flags.Features != "":
		lat, lon, err := parseLatLon(flags.Features)
		if err != nil {
			return err
		}
		ids, err := parseIDs(flags.IDs)
		if err != nil {
			return err
		}
		set, err := udl.Features(ctx, lat, lon, ids, indexBy)
		if err != nil {
			return errors.Annotate(err, "failed to fetch features")
		}
		f = set.Frame()
	case flags.Aggregates != "":
		geometry, err := loadGeometry(flags.Aggregates)
		if err != nil {
			return err
		}
		ids, err := parseIDs(flags.IDs)
		if err != nil {
			return err
		}
		set, err := udl.Aggregates(ctx, geometry, ids, indexBy, udl.GridSize(flags.Grid))
		if err != nil {
			return errors.Annotate(err, "failed to fetch aggregates")
		}
		f = set.Frame()
	case flags.Geocode != "":
		res, err := udl.GeocodeUnstructured(ctx, []string{flags.Geocode})
		if err != nil {
			return errors.Annotate(err, "failed to geocode '%s'", flags.Geocode)
		}
		f = res.Frame()
	default:
		return errors.Reason("no operation requested")
	}
	return printFrame(f, flags, w)
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := run(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
