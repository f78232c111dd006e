package topology

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
)

// Warning is a non-fatal reassembly finding per spec.md §7: a hole that was
// reparented to a different enclosing shell, or demoted to a shell because
// none enclosed it.
type Warning struct {
	Label   int64
	Message string
}

// Reassemble rebuilds every region polygon's rings from the tile's
// transformed arcs (spec.md §4.5): concatenate each ring's arcs in recorded
// order, repair shell/hole orientation, and re-nest holes inside the
// smallest enclosing shell of the same label.
func Reassemble(regions []RegionPolygon, tile *DecomposedTile, logger *slog.Logger) ([]RegionPolygon, []Warning, error) {
	if logger == nil {
		logger = slog.Default()
	}

	type rebuilt struct {
		label int64
		shell orb.Ring
		holes []orb.Ring
	}

	out := make([]rebuilt, len(regions))
	for ri, region := range regions {
		out[ri].label = region.Label

		shellRefs, ok := tile.RingArcs[RingID{Region: ri, Hole: -1}]
		if !ok {
			return nil, nil, &Error{Kind: TileLocal, Err: fmt.Errorf("region %d: missing shell ring-arc index", ri)}
		}
		shell, err := concatArcs(tile, shellRefs)
		if err != nil {
			return nil, nil, &Error{Kind: TileLocal, Err: fmt.Errorf("region %d shell: %w", ri, err)}
		}
		out[ri].shell = normalizeOrientation(shell, true)

		for hi := range region.Holes {
			refs, ok := tile.RingArcs[RingID{Region: ri, Hole: hi}]
			if !ok {
				return nil, nil, &Error{Kind: TileLocal, Err: fmt.Errorf("region %d hole %d: missing ring-arc index", ri, hi)}
			}
			hole, err := concatArcs(tile, refs)
			if err != nil {
				return nil, nil, &Error{Kind: TileLocal, Err: fmt.Errorf("region %d hole %d: %w", ri, hi, err)}
			}
			out[ri].holes = append(out[ri].holes, normalizeOrientation(hole, false))
		}
	}

	var warnings []Warning
	var result []RegionPolygon

	// Re-nest: every hole must lie inside its own region's shell. If a
	// transform or input pinch moved it outside, attach it to the smallest
	// enclosing same-label shell instead; if none encloses it, demote it to
	// a standalone shell.
	for ri := range out {
		var keptHoles []orb.Ring
		for _, hole := range out[ri].holes {
			if ringInsideRing(hole, out[ri].shell) {
				keptHoles = append(keptHoles, hole)
				continue
			}
			target := -1
			for rj := range out {
				if rj == ri || out[rj].label != out[ri].label {
					continue
				}
				if ringInsideRing(hole, out[rj].shell) && (target == -1 || math.Abs(signedArea(out[rj].shell)) < math.Abs(signedArea(out[target].shell))) {
					target = rj
				}
			}
			if target == -1 {
				warnings = append(warnings, Warning{Label: out[ri].label, Message: "hole demoted to a shell: no enclosing shell found"})
				result = append(result, RegionPolygon{Label: out[ri].label, Shell: normalizeOrientation(hole, true)})
			} else {
				out[target].holes = append(out[target].holes, hole)
				warnings = append(warnings, Warning{Label: out[ri].label, Message: "hole reparented to a different enclosing shell of the same label"})
			}
		}
		out[ri].holes = keptHoles
	}

	for _, r := range out {
		result = append(result, RegionPolygon{Label: r.label, Shell: r.shell, Holes: r.holes})
	}

	for _, w := range warnings {
		logger.Warn("reassembly warning", "label", w.Label, "message", w.Message)
	}

	return result, warnings, nil
}

// concatArcs rebuilds a ring's point sequence by concatenating its arcs in
// order, reversing where flagged, and emitting each shared endpoint between
// consecutive arcs only once.
func concatArcs(tile *DecomposedTile, refs []RingArcRef) (orb.Ring, error) {
	var ring orb.Ring
	for i, ref := range refs {
		arc, ok := tile.Arcs[ref.ArcID]
		if !ok {
			return nil, fmt.Errorf("unknown arc id %d", ref.ArcID)
		}
		pts := arc.Points
		if ref.Reversed {
			pts = reversePoints(pts)
		}
		if i == 0 {
			ring = append(ring, pts...)
		} else {
			// pts[0] is the shared junction already emitted as the
			// previous arc's last point.
			ring = append(ring, pts[1:]...)
		}
	}
	if len(ring) < 4 {
		return nil, fmt.Errorf("ring collapsed to %d point(s) after reassembly, need >= 4 (3 distinct + closing)", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		return nil, fmt.Errorf("ring did not close: first %v != last %v", ring[0], ring[len(ring)-1])
	}
	return ring, nil
}

// ringInsideRing reports whether every vertex of inner lies inside (or on
// the boundary of) outer, a cheap point-in-polygon containment check
// sufficient because pinned seam/junction vertices are bit-exact.
func ringInsideRing(inner, outer orb.Ring) bool {
	for _, p := range inner {
		if !pointInRing(p, outer) {
			return false
		}
	}
	return true
}

// pointInRing is a standard ray-casting point-in-polygon test, inclusive of
// boundary points.
func pointInRing(p orb.Point, ring orb.Ring) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if p == pi || p == pj {
			return true
		}
		if pi[1] == p[1] && pj[1] == p[1] && p[0] >= math.Min(pi[0], pj[0]) && p[0] <= math.Max(pi[0], pj[0]) {
			return true
		}
		if (pi[1] > p[1]) != (pj[1] > p[1]) {
			x := pj[0] + (p[1]-pj[1])*(pi[0]-pj[0])/(pi[1]-pj[1])
			if math.Abs(x-p[0]) < 1e-12 {
				return true
			}
			if x > p[0] {
				inside = !inside
			}
		}
	}
	return inside
}
