// pkg/core/position.go
package core

import (
	"fmt"
	"strings"
)

// Position is a point in map space. Maps span 0-800 on X and 0-600 on Y.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by (dx, dy).
func (p Position) Add(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

func (p Position) String() string {
	return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
}

// MapVariant selects the obstacle set and the navigation rules.
type MapVariant string

const (
	MapWarehouse MapVariant = "warehouse"
	MapCity      MapVariant = "city"
)

// ParseMapVariant accepts the variant name case-insensitively.
func ParseMapVariant(s string) (MapVariant, error) {
	switch MapVariant(strings.ToLower(strings.TrimSpace(s))) {
	case MapWarehouse:
		return MapWarehouse, nil
	case MapCity:
		return MapCity, nil
	default:
		return "", fmt.Errorf("unknown map variant: %q", s)
	}
}
