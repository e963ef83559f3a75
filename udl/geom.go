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
	"encoding/json"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
)

// Geometry types accepted by the aggregates endpoint.
const (
	TypePolygon      = "Polygon"
	TypeMultiPolygon = "MultiPolygon"
)

// Geometry is a GeoJSON Polygon or MultiPolygon denoting an area of
// interest. It is transmitted to the platform as-is; WKT input is converted
// on construction.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// NewPolygon creates a Polygon geometry from linear rings of [lon, lat]
// points. The first ring is the exterior, the rest are holes. Each ring must
// be closed and have at least 4 points.
func NewPolygon(rings [][][]float64) (*Geometry, error) {
	if err := checkRings(rings); err != nil {
		return nil, errors.Annotate(err, "invalid polygon")
	}
	coords, err := json.Marshal(rings)
	if err != nil {
		return nil, errors.Annotate(err, "failed to encode polygon coordinates")
	}
	return &Geometry{Type: TypePolygon, Coordinates: coords}, nil
}

// NewMultiPolygon creates a MultiPolygon geometry from a list of polygons,
// each a list of closed linear rings.
func NewMultiPolygon(polys [][][][]float64) (*Geometry, error) {
	if len(polys) == 0 {
		return nil, errors.Reason("invalid multipolygon: no polygons")
	}
	for i, rings := range polys {
		if err := checkRings(rings); err != nil {
			return nil, errors.Annotate(err, "invalid polygon %d", i)
		}
	}
	coords, err := json.Marshal(polys)
	if err != nil {
		return nil, errors.Annotate(err, "failed to encode multipolygon coordinates")
	}
	return &Geometry{Type: TypeMultiPolygon, Coordinates: coords}, nil
}

func checkRings(rings [][][]float64) error {
	if len(rings) == 0 {
		return errors.Reason("no rings")
	}
	for i, ring := range rings {
		if len(ring) < 4 {
			return errors.Reason("ring %d has %d points, need at least 4", i, len(ring))
		}
		for _, pt := range ring {
			if len(pt) != 2 {
				return errors.Reason("ring %d: coordinate must be [x, y], got %v", i, pt)
			}
		}
		first, last := ring[0], ring[len(ring)-1]
		if first[0] != last[0] || first[1] != last[1] {
			return errors.Reason("ring %d is not closed", i)
		}
	}
	return nil
}

// validate checks the geometry before transmission.
func (g *Geometry) validate() error {
	switch g.Type {
	case TypePolygon:
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return errInvalidArgument("malformed polygon coordinates: %s", err.Error())
		}
		if err := checkRings(rings); err != nil {
			return errInvalidArgument("invalid polygon: %s", err.Error())
		}
	case TypeMultiPolygon:
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return errInvalidArgument("malformed multipolygon coordinates: %s", err.Error())
		}
		if len(polys) == 0 {
			return errInvalidArgument("invalid multipolygon: no polygons")
		}
		for i, rings := range polys {
			if err := checkRings(rings); err != nil {
				return errInvalidArgument("invalid polygon %d: %s", i, err.Error())
			}
		}
	default:
		return errInvalidArgument(
			"geometry type must be Polygon or MultiPolygon, got '%s'", g.Type)
	}
	return nil
}

// WKT returns the well-known-text encoding of the geometry.
func (g *Geometry) WKT() (string, error) {
	switch g.Type {
	case TypePolygon:
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return "", errors.Annotate(err, "failed to parse polygon coordinates")
		}
		return "POLYGON" + ringsWKT(rings), nil
	case TypeMultiPolygon:
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return "", errors.Annotate(err, "failed to parse multipolygon coordinates")
		}
		parts := make([]string, len(polys))
		for i, rings := range polys {
			parts[i] = ringsWKT(rings)
		}
		return "MULTIPOLYGON(" + strings.Join(parts, ", ") + ")", nil
	}
	return "", errors.Reason("unsupported geometry type '%s'", g.Type)
}

func ringsWKT(rings [][][]float64) string {
	out := make([]string, len(rings))
	for i, ring := range rings {
		pts := make([]string, len(ring))
		for j, pt := range ring {
			pts[j] = strconv.FormatFloat(pt[0], 'g', -1, 64) + " " +
				strconv.FormatFloat(pt[1], 'g', -1, 64)
		}
		out[i] = "(" + strings.Join(pts, ", ") + ")"
	}
	return "(" + strings.Join(out, ", ") + ")"
}

// GeometryFromWKT parses a POLYGON or MULTIPOLYGON well-known-text string.
func GeometryFromWKT(s string) (*Geometry, error) {
	t := strings.TrimSpace(s)
	upper := strings.ToUpper(t)
	switch {
	case strings.HasPrefix(upper, "MULTIPOLYGON"):
		body, err := wktGroups(t[len("MULTIPOLYGON"):], 1)
		if err != nil {
			return nil, errors.Annotate(err, "failed to parse MULTIPOLYGON")
		}
		polyGroups, err := wktGroups(body[0], 0)
		if err != nil {
			return nil, errors.Annotate(err, "failed to parse MULTIPOLYGON")
		}
		polys := make([][][][]float64, len(polyGroups))
		for i, pg := range polyGroups {
			rings, err := wktRings(pg)
			if err != nil {
				return nil, errors.Annotate(err, "failed to parse polygon %d", i)
			}
			polys[i] = rings
		}
		return NewMultiPolygon(polys)
	case strings.HasPrefix(upper, "POLYGON"):
		body, err := wktGroups(t[len("POLYGON"):], 1)
		if err != nil {
			return nil, errors.Annotate(err, "failed to parse POLYGON")
		}
		rings, err := wktRings(body[0])
		if err != nil {
			return nil, errors.Annotate(err, "failed to parse POLYGON")
		}
		return NewPolygon(rings)
	}
	return nil, errors.Reason("expected POLYGON or MULTIPOLYGON, got '%s'", s)
}

func wktRings(s string) ([][][]float64, error) {
	groups, err := wktGroups(s, 0)
	if err != nil {
		return nil, err
	}
	rings := make([][][]float64, len(groups))
	for i, g := range groups {
		ring, err := wktPoints(g)
		if err != nil {
			return nil, errors.Annotate(err, "failed to parse ring %d", i)
		}
		rings[i] = ring
	}
	return rings, nil
}

// wktGroups splits s into the contents of its top-level parenthesized
// groups, e.g. "(a), (b (c))" -> ["a", "b (c)"]. If want > 0, exactly that
// many groups are required.
func wktGroups(s string, want int) ([]string, error) {
	var groups []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, errors.Reason("unbalanced parentheses in '%s'", s)
			}
			if depth == 0 {
				groups = append(groups, s[start:i])
			}
		case ',', ' ', '\t', '\n':
			// separators between groups
		default:
			if depth == 0 {
				return nil, errors.Reason("unexpected character '%c' in '%s'", r, s)
			}
		}
	}
	if depth != 0 {
		return nil, errors.Reason("unbalanced parentheses in '%s'", s)
	}
	if len(groups) == 0 {
		return nil, errors.Reason("no parenthesized groups in '%s'", s)
	}
	if want > 0 && len(groups) != want {
		return nil, errors.Reason("expected %d groups in '%s', got %d",
			want, s, len(groups))
	}
	return groups, nil
}

func wktPoints(s string) ([][]float64, error) {
	parts := strings.Split(s, ",")
	points := make([][]float64, len(parts))
	for i, p := range parts {
		fields := strings.Fields(p)
		if len(fields) != 2 {
			return nil, errors.Reason("point %d: expected 'x y', got '%s'",
				i, strings.TrimSpace(p))
		}
		pt := make([]float64, 2)
		for j, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Annotate(err, "point %d: invalid coordinate '%s'", i, f)
			}
			pt[j] = x
		}
		points[i] = pt
	}
	return points, nil
}
