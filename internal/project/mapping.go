package project

import "math"

// FixtureCell is one lamp's sample point in a texture's normalized (u,v)
// space, the output of resolving a fixture's geometric mapping (spec.md §4
// "a list of geometric cells, e.g., a ring array with center, diameter,
// ring counts, angle offset").
type FixtureCell struct {
	U, V float64
}

// FixtureMapping is the resolved per-lamp sample grid for one fixture. It
// is built once at load time (or on a mapping-config hot-reload) and
// consulted every render tick.
type FixtureMapping struct {
	Cells []FixtureCell
}

// RingMappingSpec describes a single ring (or concentric set of rings) of
// lamps arranged around a center point in normalized texture space, the
// example geometric mapping spec.md §4 names explicitly.
type RingMappingSpec struct {
	CenterU, CenterV float64
	Diameter         float64 // in normalized (u,v) units, 0..1
	Rings            int
	LampsPerRing     int
	AngleOffsetDeg   float64
}

// NewRingMapping lays lamps evenly around one or more concentric rings
// centered at (CenterU, CenterV), innermost ring first, each ring's radius
// evenly spaced out to Diameter/2.
func NewRingMapping(spec RingMappingSpec) FixtureMapping {
	rings := spec.Rings
	if rings < 1 {
		rings = 1
	}
	perRing := spec.LampsPerRing
	if perRing < 1 {
		perRing = 1
	}
	offset := spec.AngleOffsetDeg * math.Pi / 180

	var cells []FixtureCell
	maxRadius := spec.Diameter / 2
	for ring := 0; ring < rings; ring++ {
		radius := maxRadius
		if rings > 1 {
			radius = maxRadius * float64(ring+1) / float64(rings)
		}
		for lamp := 0; lamp < perRing; lamp++ {
			theta := offset + 2*math.Pi*float64(lamp)/float64(perRing)
			u := spec.CenterU + radius*math.Cos(theta)
			v := spec.CenterV + radius*math.Sin(theta)
			cells = append(cells, FixtureCell{U: clamp01(u), V: clamp01(v)})
		}
	}
	return FixtureMapping{Cells: cells}
}

// NewLinearMapping lays count lamps evenly along a straight line from
// (u0,v0) to (u1,v1), the strip-shaped counterpart to a ring mapping.
func NewLinearMapping(u0, v0, u1, v1 float64, count int) FixtureMapping {
	if count < 1 {
		count = 1
	}
	cells := make([]FixtureCell, count)
	for i := 0; i < count; i++ {
		t := float64(i) / float64(max(count-1, 1))
		cells[i] = FixtureCell{U: clamp01(u0 + (u1-u0)*t), V: clamp01(v0 + (v1-v0)*t)}
	}
	return FixtureMapping{Cells: cells}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
