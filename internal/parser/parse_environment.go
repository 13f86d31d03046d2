package parser

import (
	"fmt"

	"github.com/avnav/fleetsim/pkg/core"
)

const (
	defaultTrafficRadius   = 60.0
	defaultPedestrianSpeed = 15.0
)

// ParseTrafficAdd reads [x, y, severity?, radius?] or ["x,y", severity?, radius?].
// Severity defaults to medium.
func ParseTrafficAdd(data []string) (core.TrafficCondition, error) {
	tc := core.TrafficCondition{Severity: core.SeverityMedium, AffectedRadius: defaultTrafficRadius}

	pos, used, err := parseXY(data, 0, "traffic position")
	if err != nil {
		return tc, fmt.Errorf("error parsing traffic position: %w", err)
	}
	tc.Position = pos

	if s := optionalArg(data, used); s != "" {
		sev, err := core.ParseSeverity(s)
		if err != nil {
			return tc, fmt.Errorf("error parsing traffic severity: %w", err)
		}
		tc.Severity = sev
	}
	if s := optionalArg(data, used+1); s != "" {
		r, err := parseFloat(s, "radius")
		if err != nil {
			return tc, err
		}
		if r <= 0 {
			return tc, fmt.Errorf("traffic radius must be positive, got %v", r)
		}
		tc.AffectedRadius = r
	}
	return tc, nil
}

// ParsePedestrianAdd reads [x, y, destination?, speed?] or ["x,y",
// destination?, speed?]. Without a destination the pedestrian starts where it
// stands and picks a new one on its next update.
func ParsePedestrianAdd(data []string) (core.Pedestrian, error) {
	ped := core.Pedestrian{Speed: defaultPedestrianSpeed, IsBlocking: true}

	pos, used, err := parseXY(data, 0, "pedestrian position")
	if err != nil {
		return ped, fmt.Errorf("error parsing pedestrian position: %w", err)
	}
	ped.Position = pos
	ped.Destination = pos

	if s := optionalArg(data, used); s != "" {
		dest, err := ParsePosition(s)
		if err != nil {
			return ped, fmt.Errorf("error parsing pedestrian destination: %w", err)
		}
		ped.Destination = dest
	}
	if s := optionalArg(data, used+1); s != "" {
		speed, err := parseFloat(s, "speed")
		if err != nil {
			return ped, err
		}
		ped.Speed = speed
	}
	return ped, nil
}
