package planner

import (
	"github.com/avnav/fleetsim/internal/geo"
	"github.com/avnav/fleetsim/internal/obstacle"
	"github.com/avnav/fleetsim/pkg/core"
)

const (
	// BlockedCost makes an edge effectively impassable without removing it.
	BlockedCost = 1_000_000.0

	baseBias            = 5.0
	mediumTrafficWeight = 2.5
	lowTrafficWeight    = 1.5
	pedestrianRange     = 40.0
	blockingPedPenalty  = 100.0
	passivePedPenalty   = 20.0
)

// EdgeCost is the cost of moving from one point to another under req.
func (p *Planner) EdgeCost(from, to core.Position, req Request) float64 {
	return p.edgeCost(from, to, req, p.Layout(req.Map))
}

func (p *Planner) edgeCost(from, to core.Position, req Request, layout *obstacle.Layout) float64 {
	if layout.Variant == core.MapCity && layout.IsInAnyBuilding(to, BuildingBuffer) {
		return BlockedCost
	}

	cost := geo.Distance(from, to) + baseBias

	for _, t := range req.Traffic {
		d := geo.Distance(to, t.Position)
		if d > t.AffectedRadius || t.AffectedRadius <= 0 {
			continue
		}
		falloff := 1 - d/t.AffectedRadius
		switch t.Severity {
		case core.SeverityHigh:
			return BlockedCost
		case core.SeverityMedium:
			cost *= 1 + mediumTrafficWeight*falloff
		default:
			cost *= 1 + lowTrafficWeight*falloff
		}
	}

	for _, ped := range req.Pedestrians {
		d := geo.Distance(to, ped.Position)
		if d >= pedestrianRange {
			continue
		}
		proximity := 1 - d/pedestrianRange
		if ped.IsBlocking {
			cost += blockingPedPenalty * proximity
		} else {
			cost += passivePedPenalty * proximity
		}
	}

	return cost * conditionFactor(req.Params)
}

// conditionFactor scales costs by the vehicle's battery, tires and speed.
func conditionFactor(params core.VehicleParameters) float64 {
	f := 1.0

	switch {
	case params.BatteryPercentage < 20:
		f *= 0.7
	case params.BatteryPercentage < 40:
		f *= 0.9
	}

	switch {
	case params.TirePressure < 75:
		f *= 1.4
	case params.TirePressure < 85:
		f *= 1.2
	}

	if params.InitialSpeed > 0 && params.Speed/params.InitialSpeed < 0.7 {
		f *= 1.3
	}

	return f
}
