package topology

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ArcTransform is the pluggable per-arc contract of spec.md §4.4: it maps an
// ordered point sequence to another ordered point sequence, pinning the
// first and last point exactly and, for closed arcs, preserving the seed
// point (already first == last in the arc's canonical form).
type ArcTransform interface {
	Name() string
	Transform(points []orb.Point, closed bool) []orb.Point
}

// Driver applies a chain of ArcTransforms to every arc in a tile, enforcing
// the endpoint-pinning and minimum-vertex invariants after each step.
type Driver struct {
	Chain []ArcTransform
}

// NewDefaultDriver builds the spec's default chain: RDP simplification with
// tolerance = window * metersPerPixel, then Chaikin smoothing for k
// iterations (spec.md §4.4, §6).
func NewDefaultDriver(window float64, metersPerPixel float64, chaikinIterations int) *Driver {
	tolerance := window * metersPerPixel
	return &Driver{Chain: []ArcTransform{
		RDP{Tolerance: tolerance},
		Chaikin{Iterations: chaikinIterations},
	}}
}

// NewDriver builds a Driver whose chain is selected by name (spec.md §4.4,
// §6): "rdp" and "chaikin" are recognized, in the order given, letting a
// config override the default [rdp, chaikin] chain (e.g. smoothing-only, or
// simplification-only). An empty or nil names runs the default chain.
func NewDriver(names []string, window, metersPerPixel float64, chaikinIterations int) (*Driver, error) {
	if len(names) == 0 {
		return NewDefaultDriver(window, metersPerPixel, chaikinIterations), nil
	}
	tolerance := window * metersPerPixel
	chain := make([]ArcTransform, 0, len(names))
	for _, name := range names {
		switch name {
		case "rdp":
			chain = append(chain, RDP{Tolerance: tolerance})
		case "chaikin":
			chain = append(chain, Chaikin{Iterations: chaikinIterations})
		default:
			return nil, &Error{Kind: Configuration, Err: fmt.Errorf("unknown transform %q", name)}
		}
	}
	return &Driver{Chain: chain}, nil
}

// Apply runs the chain against every arc in tile, mutating each Arc's
// Points in place. It returns a *Error classified TileLocal on the first
// contract violation.
func (d *Driver) Apply(tile *DecomposedTile) error {
	for id, arc := range tile.Arcs {
		original := arc.Points
		pts := append([]orb.Point(nil), original...)
		for _, t := range d.Chain {
			next := t.Transform(pts, arc.Closed)
			if err := validateTransform(pts, next, arc.Closed); err != nil {
				return &Error{Kind: TileLocal, Err: fmt.Errorf("arc %d: transform %q: %w", id, t.Name(), err)}
			}
			pts = next
		}
		arc.Points = pts
	}
	return nil
}

// validateTransform enforces spec.md §4.4's per-step invariants: the arc
// keeps at least two points, endpoints (and, for closed arcs, the seed) are
// unchanged, and no duplicate consecutive points are introduced.
func validateTransform(before, after []orb.Point, closed bool) error {
	if len(after) < 2 {
		return fmt.Errorf("collapsed to %d point(s), need >= 2", len(after))
	}
	if after[0] != before[0] {
		return fmt.Errorf("start endpoint moved: %v -> %v", before[0], after[0])
	}
	if after[len(after)-1] != before[len(before)-1] {
		return fmt.Errorf("end endpoint moved: %v -> %v", before[len(before)-1], after[len(after)-1])
	}
	if closed && after[0] != after[len(after)-1] {
		return fmt.Errorf("closed arc seed point not preserved")
	}
	for i := 1; i < len(after); i++ {
		if after[i] == after[i-1] {
			return fmt.Errorf("duplicate consecutive point at index %d", i)
		}
	}
	return nil
}

// RDP is Ramer-Douglas-Peucker simplification with a fixed tolerance. It
// pins both endpoints by construction: the recursion always keeps index 0
// and len-1.
type RDP struct {
	Tolerance float64
}

func (RDP) Name() string { return "rdp" }

func (r RDP) Transform(points []orb.Point, closed bool) []orb.Point {
	if r.Tolerance <= 0 || len(points) <= 2 {
		return points
	}
	keep := make([]bool, len(points))
	keep[0] = true
	keep[len(points)-1] = true
	rdpRecurse(points, 0, len(points)-1, r.Tolerance, keep)

	out := make([]orb.Point, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

func rdpRecurse(points []orb.Point, lo, hi int, tolerance float64, keep []bool) {
	if hi <= lo+1 {
		return
	}
	maxDist := -1.0
	maxIdx := -1
	for i := lo + 1; i < hi; i++ {
		d := perpendicularDistance(points[i], points[lo], points[hi])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxDist > tolerance {
		keep[maxIdx] = true
		rdpRecurse(points, lo, maxIdx, tolerance, keep)
		rdpRecurse(points, maxIdx, hi, tolerance, keep)
	}
}

func perpendicularDistance(p, a, b orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p[0]-a[0], p[1]-a[1])
	}
	// |cross(b-a, p-a)| / |b-a|
	cross := dx*(p[1]-a[1]) - dy*(p[0]-a[0])
	return math.Abs(cross) / length
}

// Chaikin is endpoint-preserving Chaikin corner-cutting: each interior
// segment is cut at the 1/4 and 3/4 points, and the first/last point (and,
// for closed arcs, the shared seed) are re-inserted verbatim after every
// iteration so pinning survives repeated smoothing.
type Chaikin struct {
	Iterations int
}

func (Chaikin) Name() string { return "chaikin" }

func (c Chaikin) Transform(points []orb.Point, closed bool) []orb.Point {
	pts := points
	for iter := 0; iter < c.Iterations; iter++ {
		if len(pts) < 4 {
			break
		}
		pts = chaikinPass(pts)
	}
	return pts
}

// chaikinPass cuts every segment except the two touching the pinned
// endpoints (index 0 and len-1, which coincide for a closed arc's seed), so
// pinning holds without special-casing the closed case: the segments
// adjacent to the pinned point simply stay straight.
func chaikinPass(points []orb.Point) []orb.Point {
	n := len(points)
	out := make([]orb.Point, 0, 2*n)
	out = append(out, points[0])
	for i := 1; i < n-2; i++ {
		p0, p1 := points[i], points[i+1]
		out = append(out,
			orb.Point{0.75*p0[0] + 0.25*p1[0], 0.75*p0[1] + 0.25*p1[1]},
			orb.Point{0.25*p0[0] + 0.75*p1[0], 0.25*p0[1] + 0.75*p1[1]},
		)
	}
	out = append(out, points[n-1])
	return out
}
