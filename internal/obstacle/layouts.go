package obstacle

import (
	"fmt"

	"github.com/avnav/fleetsim/pkg/core"
)

var (
	cityLayout = &Layout{
		Variant: core.MapCity,
		Width:   MapWidth,
		Height:  MapHeight,
		Buildings: []Rect{
			NewRect("B1", "Office Block", 150, 150, 120, 200),
			NewRect("B2", "Mall", 400, 100, 180, 120),
			NewRect("B3", "Hospital", 600, 300, 120, 200),
			NewRect("B4", "Apartments", 250, 400, 200, 120),
			NewRect("B5", "Depot", 500, 450, 100, 100),
		},
		Roads: []Rect{
			NewRect("H1", "North Avenue", 0, 90, 800, 40),
			NewRect("H2", "Central Avenue", 0, 300, 800, 40),
			NewRect("H3", "South Avenue", 0, 510, 800, 40),
			NewRect("V1", "1st Street", 90, 0, 40, 600),
			NewRect("V2", "2nd Street", 300, 0, 40, 600),
			NewRect("V3", "3rd Street", 510, 0, 40, 600),
			NewRect("V4", "4th Street", 720, 0, 40, 600),
		},
	}

	warehouseLayout = &Layout{
		Variant: core.MapWarehouse,
		Width:   MapWidth,
		Height:  MapHeight,
		StorageUnits: []Rect{
			NewRect("SU-A1", "Rack A1", 200, 200, 80, 100),
			NewRect("SU-A2", "Rack A2", 340, 200, 80, 100),
			NewRect("SU-A3", "Rack A3", 480, 200, 80, 100),
			NewRect("SU-A4", "Rack A4", 620, 200, 80, 100),
			NewRect("SU-B1", "Rack B1", 200, 400, 80, 100),
			NewRect("SU-B2", "Rack B2", 340, 400, 80, 100),
			NewRect("SU-B3", "Rack B3", 480, 400, 80, 100),
			NewRect("SU-B4", "Rack B4", 620, 400, 80, 100),
		},
	}
)

// City returns the city grid layout.
func City() *Layout { return cityLayout }

// Warehouse returns the warehouse rack layout.
func Warehouse() *Layout { return warehouseLayout }

// Empty returns an obstacle-free layout of the given variant.
func Empty(variant core.MapVariant) *Layout {
	return &Layout{Variant: variant, Width: MapWidth, Height: MapHeight}
}

// For returns the static layout of a variant. Unknown variants fall back to
// the warehouse.
func For(variant core.MapVariant) *Layout {
	if variant == core.MapCity {
		return cityLayout
	}
	return warehouseLayout
}

// ChargeStation returns the green-zone coordinate vehicles head to when
// their battery is drained.
func ChargeStation(variant core.MapVariant) core.Position {
	if variant == core.MapCity {
		return core.Position{X: 740, Y: 530}
	}
	return core.Position{X: 120, Y: 120}
}

func (l *Layout) String() string {
	return fmt.Sprintf("%s layout: %d buildings, %d roads, %d storage units",
		l.Variant, len(l.Buildings), len(l.Roads), len(l.StorageUnits))
}
