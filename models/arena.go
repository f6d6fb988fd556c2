package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Location is a position and facing inside a named world
type Location struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
}

// String serializes the location as world,x,y,z,yaw,pitch
func (l Location) String() string {
	return strings.Join([]string{
		l.World,
		strconv.FormatFloat(l.X, 'f', -1, 64),
		strconv.FormatFloat(l.Y, 'f', -1, 64),
		strconv.FormatFloat(l.Z, 'f', -1, 64),
		strconv.FormatFloat(float64(l.Yaw), 'f', -1, 32),
		strconv.FormatFloat(float64(l.Pitch), 'f', -1, 32),
	}, ",")
}

// ParseLocation parses the world,x,y,z,yaw,pitch form produced by String
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 6 {
		return Location{}, fmt.Errorf("invalid location %q: expected 6 comma separated parts, got %d", s, len(parts))
	}

	world := strings.TrimSpace(parts[0])
	if world == "" {
		return Location{}, fmt.Errorf("invalid location %q: world is empty", s)
	}

	var coords [5]float64
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			return Location{}, fmt.Errorf("invalid location %q: %w", s, err)
		}
		coords[i] = v
	}

	return Location{
		World: world,
		X:     coords[0],
		Y:     coords[1],
		Z:     coords[2],
		Yaw:   float32(coords[3]),
		Pitch: float32(coords[4]),
	}, nil
}

// Arena is a named match area with two spawn points
type Arena struct {
	ID        string    `json:"id"`
	Spawn1    *Location `json:"spawn1,omitempty"`
	Spawn2    *Location `json:"spawn2,omitempty"`
	Schematic string    `json:"schematic,omitempty"`
	InUse     bool      `json:"in_use"`
}

// IsReady reports whether both spawn points are configured
func (a *Arena) IsReady() bool {
	return a.Spawn1 != nil && a.Spawn2 != nil
}

// IsAssignable reports whether the arena can be handed to a new match
func (a *Arena) IsAssignable() bool {
	return a.IsReady() && !a.InUse
}

// Status is a short human readable description used by listings
func (a *Arena) Status() string {
	switch {
	case !a.IsReady():
		return "not configured"
	case a.InUse:
		return "in use"
	default:
		return "available"
	}
}
