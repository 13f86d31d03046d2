package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avnav/fleetsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidPolyline is returned when a route string cannot be decoded.
var ErrInvalidPolyline = errors.New("invalid polyline")

// ParsePolyline parses a JSON array of coordinates into a route.
// Input format: "[[x1,y1],[x2,y2],...]"
func ParsePolyline(input string) ([]core.Position, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolyline, err)
	}

	if len(coords) < 1 {
		return nil, fmt.Errorf("%w: no points", ErrInvalidPolyline)
	}

	route := make([]core.Position, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("%w: coordinate %d has insufficient values", ErrInvalidPolyline, i)
		}
		route[i] = core.Position{X: coord[0], Y: coord[1]}
	}

	return route, nil
}

// RouteToLineString converts a route of at least two points to a LineString.
func RouteToLineString(route []core.Position) (geom.LineString, error) {
	if len(route) < 2 {
		return geom.LineString{}, fmt.Errorf("%w: route must have at least 2 points, got %d", ErrInvalidPolyline, len(route))
	}

	flatCoords := make([]float64, 0, len(route)*2)
	for _, p := range route {
		flatCoords = append(flatCoords, p.X, p.Y)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// RouteWKT renders a route as WKT. Single points become POINT, empty routes
// an empty string.
func RouteWKT(route []core.Position) string {
	switch len(route) {
	case 0:
		return ""
	case 1:
		return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: route[0].X, Y: route[0].Y}}).AsText()
	}
	ls, err := RouteToLineString(route)
	if err != nil {
		return ""
	}
	return ls.AsText()
}

// RouteLength sums the segment lengths of a route.
func RouteLength(route []core.Position) float64 {
	var total float64
	for i := 1; i < len(route); i++ {
		total += Distance(route[i-1], route[i])
	}
	return total
}
