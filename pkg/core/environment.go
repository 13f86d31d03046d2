package core

import (
	"fmt"
	"strings"
)

// Severity grades a traffic zone.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

var severityNames = [...]string{"low", "medium", "high"}

func (s Severity) String() string {
	if s < SeverityLow || s > SeverityHigh {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity accepts "low", "medium" or "high".
func ParseSeverity(s string) (Severity, error) {
	for i, name := range severityNames {
		if strings.EqualFold(name, s) {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown traffic severity: %q", s)
}

// TrafficCondition is a circular congestion zone.
type TrafficCondition struct {
	Position       Position `json:"position"`
	Severity       Severity `json:"severity"`
	AffectedRadius float64  `json:"affectedRadius"`
}

// Pedestrian walks toward Destination and picks a new one on arrival.
type Pedestrian struct {
	ID          string   `json:"id"`
	Position    Position `json:"position"`
	Destination Position `json:"destination"`
	Speed       float64  `json:"speed"`
	IsBlocking  bool     `json:"isBlocking"`
}
