// Package parser turns positional command arguments into typed requests.
// It does no validation against the world; that happens in the handlers.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/avnav/fleetsim/internal/geo"
	"github.com/avnav/fleetsim/internal/util"
	"github.com/avnav/fleetsim/pkg/core"
)

// ErrMissingArg is returned when a required positional argument is absent.
var ErrMissingArg = errors.New("missing argument")

func arg(data []string, i int, name string) (string, error) {
	if i >= len(data) {
		return "", fmt.Errorf("%w: %s (position %d)", ErrMissingArg, name, i)
	}
	return util.CleanArg(data[i]), nil
}

func optionalArg(data []string, i int) string {
	if i >= len(data) {
		return ""
	}
	return util.CleanArg(data[i])
}

func parseFloat(s, name string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("error converting %s to float: %w", name, err)
	}
	return f, nil
}

// parseIntFromFloat accepts "3" as well as "3.0".
func parseIntFromFloat(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a whole number", s)
	}
	return int(f), nil
}

// ParsePosition reads "x,y" or "[x,y]".
func ParsePosition(s string) (core.Position, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return core.Position{}, fmt.Errorf("error parsing position %q: want x,y", s)
	}
	x, err := parseFloat(strings.TrimSpace(parts[0]), "x")
	if err != nil {
		return core.Position{}, err
	}
	y, err := parseFloat(strings.TrimSpace(parts[1]), "y")
	if err != nil {
		return core.Position{}, err
	}
	return core.Position{X: x, Y: y}, nil
}

// parseXY reads a position given either as one "x,y" argument at i or as
// two numeric arguments at i and i+1. It reports how many arguments it used.
func parseXY(data []string, i int, name string) (core.Position, int, error) {
	first, err := arg(data, i, name)
	if err != nil {
		return core.Position{}, 0, err
	}
	if strings.Contains(first, ",") {
		p, err := ParsePosition(first)
		return p, 1, err
	}
	second, err := arg(data, i+1, name+" y")
	if err != nil {
		return core.Position{}, 0, err
	}
	p, err := ParsePosition(first + "," + second)
	return p, 2, err
}

// ParseCount reads an optional count at position 0; absent or empty gives 0.
func ParseCount(data []string) (int, error) {
	s := optionalArg(data, 0)
	if s == "" {
		return 0, nil
	}
	n, err := parseIntFromFloat(s)
	if err != nil {
		return 0, fmt.Errorf("error converting count to int: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("count must not be negative, got %d", n)
	}
	return n, nil
}

// ParseMap reads the map variant at position 0.
func ParseMap(data []string) (core.MapVariant, error) {
	s, err := arg(data, 0, "map")
	if err != nil {
		return "", err
	}
	return core.ParseMapVariant(s)
}

// ParseRoute reads a polyline such as "[[10,20],[30,40]]".
func ParseRoute(s string) ([]core.Position, error) {
	return geo.ParsePolyline(s)
}

// ParseSpeedMultiplier reads a positive multiplier at position 0.
func ParseSpeedMultiplier(data []string) (float64, error) {
	s, err := arg(data, 0, "speed multiplier")
	if err != nil {
		return 0, err
	}
	f, err := parseFloat(s, "speed multiplier")
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("speed multiplier must be positive, got %v", f)
	}
	return f, nil
}
