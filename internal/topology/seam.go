package topology

import (
	"fmt"

	"github.com/paulmach/orb"
)

// MergeAcrossTiles reconciles every tile's per-label region polygons into one
// set of gap-free polygons per label, per spec.md §4.6. Because every tile
// window boundary vertex is forced to be a junction (spec.md §4.6, wired in
// by the engine's forceJunction closure), the transform+reassembly stage
// leaves tile-seam vertices untouched: a seam segment's two copies, one from
// each adjacent tile, are bit-exact reverse duplicates of each other. Seam
// reconciliation is therefore planar union by segment-multiset cancellation,
// the same technique traceComponentRings uses to turn a pixel boundary graph
// into closed rings, rather than a general polygon-clipping call: orb has no
// boolean union primitive, and none is needed when cancellation already
// produces an exact answer — provided the two tiles actually agree on the
// seam. verifySeamVertexSets checks that agreement explicitly (spec.md §4.6)
// before any cancellation happens, and returns a *Error classified
// SeamMismatch (spec.md §7) the moment it fails.
func MergeAcrossTiles(results []TileResult) (map[int64][]RegionPolygon, error) {
	if err := verifySeamVertexSets(results); err != nil {
		return nil, err
	}

	byLabel := map[int64][]RegionPolygon{}
	for _, res := range results {
		for _, region := range res.Regions {
			byLabel[region.Label] = append(byLabel[region.Label], region)
		}
	}

	merged := map[int64][]RegionPolygon{}
	for label, regions := range byLabel {
		regionsOut, err := mergeLabelRegions(label, regions)
		if err != nil {
			return nil, err
		}
		merged[label] = regionsOut
	}
	return merged, nil
}

// verifySeamVertexSets groups each pair of row/column-adjacent tiles by the
// world-coordinate line their windows share, and checks that the two tiles'
// region boundaries touch that line at exactly the same set of pixel-exact
// vertices, per spec.md §4.6. Forced junctioning guarantees agreement when
// every upstream stage behaved; disagreement here means some tile traced,
// transformed, or reassembled its half of the seam differently from its
// neighbor, a bug that segment cancellation alone cannot detect (a missing or
// extra vertex on one side just produces a different, silently wrong, merged
// boundary instead of an error).
func verifySeamVertexSets(results []TileResult) error {
	byCoord := make(map[TileCoord]TileResult, len(results))
	for _, r := range results {
		byCoord[r.Coord] = r
	}

	for _, r := range results {
		if right, ok := byCoord[(TileCoord{Col: r.Coord.Col + 1, Row: r.Coord.Row})]; ok {
			seamX := r.Window.ToWorld(r.Window.MaxCol, r.Window.MinRow)[0]
			if err := compareSeamVertices(r, right, seamX, 0); err != nil {
				return err
			}
		}
		if below, ok := byCoord[(TileCoord{Col: r.Coord.Col, Row: r.Coord.Row + 1})]; ok {
			seamY := r.Window.ToWorld(r.Window.MinCol, r.Window.MaxRow)[1]
			if err := compareSeamVertices(r, below, seamY, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// compareSeamVertices checks that a and b record the same set of boundary
// vertices lying on the shared seam line, where axis selects the coordinate
// (0 for x, a vertical seam; 1 for y, a horizontal seam) held constant at
// coordValue along that line.
func compareSeamVertices(a, b TileResult, coordValue float64, axis int) error {
	setA := seamVerticesOnAxis(a.Regions, coordValue, axis)
	setB := seamVerticesOnAxis(b.Regions, coordValue, axis)
	if len(setA) != len(setB) {
		return seamMismatchError(a.Coord, b.Coord)
	}
	for k := range setA {
		if !setB[k] {
			return seamMismatchError(a.Coord, b.Coord)
		}
	}
	return nil
}

// seamVerticesOnAxis collects every distinct vertex of regions whose axis
// coordinate (0 = x, 1 = y) equals coordValue exactly.
func seamVerticesOnAxis(regions []RegionPolygon, coordValue float64, axis int) map[pointKey]bool {
	set := map[pointKey]bool{}
	add := func(ring orb.Ring) {
		for _, p := range ring {
			if p[axis] == coordValue {
				set[keyOf(p)] = true
			}
		}
	}
	for _, region := range regions {
		add(region.Shell)
		for _, hole := range region.Holes {
			add(hole)
		}
	}
	return set
}

func seamMismatchError(a, b TileCoord) error {
	return &Error{
		Kind: SeamMismatch,
		Err:  fmt.Errorf("tiles (%d,%d) and (%d,%d) disagree on their shared seam vertex set", a.Col, a.Row, b.Col, b.Row),
	}
}

// mergeLabelRegions unions every ring (shell and hole alike) of every region
// sharing a label into the label's final set of shells and holes.
func mergeLabelRegions(label int64, regions []RegionPolygon) ([]RegionPolygon, error) {
	type directedCount struct {
		forward, reverse int
	}
	edgeCounts := map[pointPairKey]*directedCount{}
	adj := map[pointKey][]pointKey{}

	addRing := func(ring []orb.Point) {
		n := len(ring) - 1 // closed: ring[0] == ring[n]
		for i := 0; i < n; i++ {
			a, b := ring[i], ring[i+1]
			ka, kb := keyOf(a), keyOf(b)
			pk := segmentKey(a, b)
			c := edgeCounts[pk]
			if c == nil {
				c = &directedCount{}
				edgeCounts[pk] = c
			}
			if less(ka, kb) {
				c.forward++
			} else {
				c.reverse++
			}
		}
	}

	for _, region := range regions {
		addRing(region.Shell)
		for _, hole := range region.Holes {
			addRing(hole)
		}
	}

	pointOf := map[pointKey]orb.Point{}
	for _, region := range regions {
		collectPoints(region.Shell, pointOf)
		for _, hole := range region.Holes {
			collectPoints(hole, pointOf)
		}
	}

	// Cancel matched reverse-duplicate pairs: a seam segment traced once by
	// each of two adjacent tiles disappears, since it is now interior to the
	// merged region. Whatever direction survives becomes a directed edge of
	// the merged boundary graph.
	for pk, c := range edgeCounts {
		n := min(c.forward, c.reverse)
		c.forward -= n
		c.reverse -= n
		lo, hi := pk[0], pk[1]
		for i := 0; i < c.forward; i++ {
			adj[lo] = append(adj[lo], hi)
		}
		for i := 0; i < c.reverse; i++ {
			adj[hi] = append(adj[hi], lo)
		}
	}

	var rings []orb.Ring
	for from, tos := range adj {
		for len(tos) > 0 {
			start := from
			next := tos[len(tos)-1]
			adj[from] = tos[:len(tos)-1]
			tos = adj[from]

			keyRing := []pointKey{start, next}
			cur := next
			for cur != start {
				outs := adj[cur]
				if len(outs) == 0 {
					// A closed graph built from correctly cancelled,
					// seam-verified tiles always decomposes into complete
					// cycles; stalling here means the cancellation produced
					// an inconsistent graph despite passing the seam check,
					// which is the same class of bug SeamMismatch exists for.
					return nil, &Error{
						Kind: SeamMismatch,
						Err:  fmt.Errorf("label %d: ring tracing stalled at %v before closing", label, pointOf[cur]),
					}
				}
				nxt := outs[len(outs)-1]
				adj[cur] = outs[:len(outs)-1]
				keyRing = append(keyRing, nxt)
				cur = nxt
			}

			ring := make(orb.Ring, len(keyRing)+1)
			for i, k := range keyRing {
				ring[i] = pointOf[k]
			}
			ring[len(keyRing)] = ring[0]
			rings = append(rings, ring)
		}
	}

	var shells, holes []orb.Ring
	for _, r := range rings {
		if signedArea(r) > 0 {
			shells = append(shells, r)
		} else {
			holes = append(holes, r)
		}
	}

	out := make([]RegionPolygon, len(shells))
	for i, shell := range shells {
		out[i] = RegionPolygon{Label: label, Shell: shell}
	}
	for _, hole := range holes {
		attached := false
		for i := range out {
			if ringInsideRing(hole, out[i].Shell) {
				out[i].Holes = append(out[i].Holes, hole)
				attached = true
				break
			}
		}
		if !attached {
			// No enclosing shell survived cancellation; the hole is itself
			// the merged boundary for this piece of the label.
			out = append(out, RegionPolygon{Label: label, Shell: normalizeOrientation(hole, true)})
		}
	}
	return out, nil
}

func collectPoints(ring orb.Ring, into map[pointKey]orb.Point) {
	for _, p := range ring {
		into[keyOf(p)] = p
	}
}
