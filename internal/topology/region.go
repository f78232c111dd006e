package topology

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// RegionPolygon is one connected component of equal-label pixels: a label
// together with one outer shell ring and zero or more hole rings. Holes are
// strictly inside the shell and pairwise disjoint.
type RegionPolygon struct {
	Label int64
	Shell orb.Ring
	Holes []orb.Ring
}

// vertex is a point on the pixel lattice, indexed in global (col, row) space
// before the affine transform is applied.
type vertex struct{ C, R int }

// ExtractRegions computes 4-neighbor connected components of equal-label
// pixels within view and traces each component's boundary into a
// RegionPolygon with holes, per spec.md §4.2. Connectivity and tracing are
// both confined to view's window: a tile never looks past its own rectangle,
// so every window-boundary vertex is, by construction, a candidate junction
// for the arc decomposer (spec.md §4.6). Coordinates are mapped through the
// view's underlying global affine and lie on the integer pixel lattice; no
// simplification happens here.
func ExtractRegions(view View) []RegionPolygon {
	compID, numComp, compLabel := LabelComponents(view)
	if numComp == 0 {
		return nil
	}

	var polygons []RegionPolygon
	for comp := 0; comp < numComp; comp++ {
		rawRings := traceComponentRings(view, compID, comp)
		if len(rawRings) == 0 {
			continue
		}
		shell, holes := classifyRings(rawRings)
		polygons = append(polygons, RegionPolygon{
			Label: compLabel[comp],
			Shell: shell,
			Holes: holes,
		})
	}
	return polygons
}

// LabelComponents assigns each non-nodata pixel within view's window a
// component id via 4-neighbor flood fill over equal labels, never crossing
// the window boundary. Pixels outside the window or nodata get id -1.
// compID is indexed the same way for any view: (row-view.MinRow)*w +
// (col-view.MinCol), where w = view.MaxCol-view.MinCol, so a FullView caller
// can index it directly with the grid's own row-major pixel indices.
func LabelComponents(view View) (compID []int, numComp int, compLabel []int64) {
	w, h := view.MaxCol-view.MinCol, view.MaxRow-view.MinRow
	compID = make([]int, w*h)
	for i := range compID {
		compID[i] = -1
	}
	idx := func(c, r int) int { return (r-view.MinRow)*w + (c - view.MinCol) }

	var stack []vertex
	for r := view.MinRow; r < view.MaxRow; r++ {
		for c := view.MinCol; c < view.MaxCol; c++ {
			i := idx(c, r)
			if compID[i] != -1 || view.isNoData(c, r) {
				continue
			}
			label := view.At(c, r)
			id := numComp
			compID[i] = id
			compLabel = append(compLabel, label)
			stack = append(stack[:0], vertex{c, r})
			for len(stack) > 0 {
				v := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, n := range [4]vertex{{v.C + 1, v.R}, {v.C - 1, v.R}, {v.C, v.R + 1}, {v.C, v.R - 1}} {
					if !view.InBounds(n.C, n.R) {
						continue
					}
					ni := idx(n.C, n.R)
					if compID[ni] != -1 || view.isNoData(n.C, n.R) {
						continue
					}
					if view.At(n.C, n.R) != label {
						continue
					}
					compID[ni] = id
					stack = append(stack, n)
				}
			}
			numComp++
		}
	}
	return compID, numComp, compLabel
}

// compAt reports the component id at (c, r), or -1 if outside view's window
// or not part of a labeled component.
func compAt(view View, compID []int, c, r int) int {
	if !view.InBounds(c, r) {
		return -1
	}
	w := view.MaxCol - view.MinCol
	return compID[(r-view.MinRow)*w+(c-view.MinCol)]
}

// traceComponentRings walks the boundary of one connected component and
// returns every closed cycle it decomposes into (one outer shell plus one
// cycle per hole). A vertex with more than one unused outgoing edge is a
// pinch point; each branch is consumed by a separate cycle, which is exactly
// the pinch-splitting spec.md §4.2 requires.
func traceComponentRings(view View, compID []int, comp int) []orb.Ring {
	edges := map[vertex][]vertex{}
	addEdge := func(from, to vertex) {
		edges[from] = append(edges[from], to)
	}

	for r := view.MinRow; r < view.MaxRow; r++ {
		for c := view.MinCol; c < view.MaxCol; c++ {
			if compAt(view, compID, c, r) != comp {
				continue
			}
			nw := vertex{c, r}
			ne := vertex{c + 1, r}
			se := vertex{c + 1, r + 1}
			sw := vertex{c, r + 1}

			if compAt(view, compID, c, r-1) != comp {
				addEdge(nw, ne)
			}
			if compAt(view, compID, c+1, r) != comp {
				addEdge(ne, se)
			}
			if compAt(view, compID, c, r+1) != comp {
				addEdge(se, sw)
			}
			if compAt(view, compID, c-1, r) != comp {
				addEdge(sw, nw)
			}
		}
	}

	var rings []orb.Ring
	for from, tos := range edges {
		for len(tos) > 0 {
			// Pop one unused outgoing edge and walk a cycle from it.
			start := from
			next := tos[len(tos)-1]
			edges[from] = tos[:len(tos)-1]
			tos = edges[from]

			pixelRing := []vertex{start, next}
			cur := next
			for cur != start {
				outs := edges[cur]
				if len(outs) == 0 {
					// Malformed boundary graph; stop walking this cycle rather
					// than looping forever.
					break
				}
				// At a pinch, take the right-hand turn (the side the
				// component lies on), so the walk stays on the pixel it
				// arrived along and closes a simple cycle.
				pick := len(outs) - 1
				if len(outs) > 1 {
					prev := pixelRing[len(pixelRing)-2]
					dc, dr := cur.C-prev.C, cur.R-prev.R
					for i, o := range outs {
						if o.C-cur.C == -dr && o.R-cur.R == dc {
							pick = i
						}
					}
				}
				nxt := outs[pick]
				edges[cur] = append(outs[:pick], outs[pick+1:]...)
				pixelRing = append(pixelRing, nxt)
				cur = nxt
			}

			ring := make(orb.Ring, len(pixelRing)+1)
			for i, v := range pixelRing {
				ring[i] = view.ToWorld(v.C, v.R)
			}
			ring[len(pixelRing)] = ring[0]
			rings = append(rings, ring)
		}
	}
	return rings
}

// classifyRings splits a component's raw traced cycles into a shell (the
// ring with the largest enclosed area) and holes, normalizing orientation so
// the shell is CCW (positive signed area) and holes are CW, per the
// "CCW positive => shell" contract of spec.md §4.2.
func classifyRings(rings []orb.Ring) (shell orb.Ring, holes []orb.Ring) {
	type scored struct {
		ring orb.Ring
		area float64 // absolute
	}
	scoredRings := make([]scored, len(rings))
	for i, r := range rings {
		scoredRings[i] = scored{ring: r, area: math.Abs(signedArea(r))}
	}
	sort.Slice(scoredRings, func(i, j int) bool { return scoredRings[i].area > scoredRings[j].area })

	shell = normalizeOrientation(scoredRings[0].ring, true)
	for _, s := range scoredRings[1:] {
		holes = append(holes, normalizeOrientation(s.ring, false))
	}
	return shell, holes
}

// signedArea returns the shoelace signed area of a closed ring.
func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		p0, p1 := r[i], r[i+1]
		sum += p0[0]*p1[1] - p1[0]*p0[1]
	}
	return sum / 2
}

// normalizeOrientation reverses r if needed so its signed area is positive
// (wantCCW true) or negative (wantCCW false).
func normalizeOrientation(r orb.Ring, wantCCW bool) orb.Ring {
	area := signedArea(r)
	if (area > 0) == wantCCW {
		return r
	}
	reversed := make(orb.Ring, len(r))
	for i, p := range r {
		reversed[len(r)-1-i] = p
	}
	return reversed
}
