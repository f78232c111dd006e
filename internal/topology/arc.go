package topology

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Arc is a maximal polyline whose interior vertices are each adjacent to
// exactly the same two region labels (Left and Right). Either label may be
// Outside, the virtual region occupying the raster/tile complement, but
// Left never equals Right. Closed is true iff the arc forms a loop between
// exactly two labels with no junction node along it.
type Arc struct {
	ID          int
	Points      []orb.Point
	Left, Right int64
	Closed      bool
}

// RingID names a ring within the tile's region polygons: Hole == -1 selects
// the shell, otherwise the index into RegionPolygon.Holes.
type RingID struct {
	Region int
	Hole   int
}

// RingArcRef is one entry of a ring-arc index: the arc to emit and whether
// to traverse it in reverse to continue the ring in order.
type RingArcRef struct {
	ArcID    int
	Reversed bool
}

// DecomposedTile is the output of arc decomposition: the tile-local arc
// arena plus, for every ring of every input region, the ordered list of
// (arc, reversed) pairs that reconstructs it.
type DecomposedTile struct {
	Arcs     map[int]*Arc
	RingArcs map[RingID][]RingArcRef
}

// segOccurrence records one ring's contribution of an undirected segment to
// the segment table.
type segOccurrence struct {
	ring  RingID
	label int64
}

// DecomposeArcs computes the minimum set of mutually exclusive arcs for a
// tile's region polygons, per spec.md §4.3. forceJunction, if non-nil,
// forces any vertex for which it returns true to be treated as a junction
// regardless of how many labels touch it — used by the tiler to pin every
// vertex on the tile's window boundary so arcs never cross a tile seam
// (spec.md §4.6).
func DecomposeArcs(regions []RegionPolygon, forceJunction func(p orb.Point) bool) *DecomposedTile {
	if forceJunction == nil {
		forceJunction = func(orb.Point) bool { return false }
	}

	rings := collectRings(regions)

	segTable := map[pointPairKey]*segEntry{}
	for _, rg := range rings {
		pts := rg.Points
		for i := 0; i < len(pts)-1; i++ {
			key := segmentKey(pts[i], pts[i+1])
			e := segTable[key]
			if e == nil {
				e = &segEntry{}
				segTable[key] = e
			}
			e.occurrences = append(e.occurrences, segOccurrence{ring: rg.ID, label: rg.Label})
		}
	}

	// Resolve each segment's two adjacent labels (Outside if only one ring
	// touched it), and accumulate, per point, the set of distinct labels
	// touching it there.
	labelsAt := map[pointKey]map[int64]bool{}
	addLabel := func(p orb.Point, label int64) {
		k := keyOf(p)
		set := labelsAt[k]
		if set == nil {
			set = map[int64]bool{}
			labelsAt[k] = set
		}
		set[label] = true
	}

	for _, rg := range rings {
		pts := rg.Points
		for i := 0; i < len(pts)-1; i++ {
			key := segmentKey(pts[i], pts[i+1])
			e := segTable[key]
			left, right := e.resolve()
			addLabel(pts[i], left)
			addLabel(pts[i], right)
			addLabel(pts[i+1], left)
			addLabel(pts[i+1], right)
		}
	}

	isJunction := func(p orb.Point) bool {
		if forceJunction(p) {
			return true
		}
		return len(labelsAt[keyOf(p)]) >= 3
	}

	arena := &arcArena{byKey: map[string]int{}, arcs: map[int]*Arc{}}
	ringArcs := map[RingID][]RingArcRef{}

	for _, rg := range rings {
		pts := rg.Points // closed: pts[0] == pts[last]
		n := len(pts) - 1 // distinct vertices
		if n < 1 {
			continue
		}

		junctionIdx := -1
		for i := 0; i < n; i++ {
			if isJunction(pts[i]) {
				junctionIdx = i
				break
			}
		}

		if junctionIdx == -1 {
			// No junction anywhere on this ring: a single closed arc,
			// emitted once across the (at most two) regions that share it.
			left, right := segTable[segmentKey(pts[0], pts[1])].resolve()
			id, reversed := arena.register(pts[:n], left, right, true)
			ringArcs[rg.ID] = []RingArcRef{{ArcID: id, Reversed: reversed}}
			continue
		}

		var refs []RingArcRef
		idx := junctionIdx
		for consumed := 0; consumed < n; {
			// Walk from a junction to the next junction (inclusive),
			// accumulating this arc's points.
			segPts := []orb.Point{pts[idx]}
			left, right := segTable[segmentKey(pts[idx], pts[(idx+1)%n])].resolve()
			step := 0
			for {
				next := (idx + 1) % n
				segPts = append(segPts, pts[next])
				step++
				idx = next
				if isJunction(pts[idx]) {
					break
				}
			}
			consumed += step
			id, reversed := arena.register(segPts, left, right, false)
			refs = append(refs, RingArcRef{ArcID: id, Reversed: reversed})
		}
		ringArcs[rg.ID] = refs
	}

	return &DecomposedTile{Arcs: arena.arcs, RingArcs: ringArcs}
}

type ringGeom struct {
	ID     RingID
	Label  int64
	Points orb.Ring
}

func collectRings(regions []RegionPolygon) []ringGeom {
	var rings []ringGeom
	for ri, region := range regions {
		rings = append(rings, ringGeom{ID: RingID{Region: ri, Hole: -1}, Label: region.Label, Points: region.Shell})
		for hi, hole := range region.Holes {
			rings = append(rings, ringGeom{ID: RingID{Region: ri, Hole: hi}, Label: region.Label, Points: hole})
		}
	}
	return rings
}

// segEntry tracks which one or two rings produced an undirected segment.
type segEntry struct {
	occurrences []segOccurrence
}

// resolve returns the segment's two adjacent labels. A segment touched by
// only one ring borders Outside on its other side; a segment touched by two
// rings borders each ring's own label.
func (e *segEntry) resolve() (left, right int64) {
	switch len(e.occurrences) {
	case 0:
		return Outside, Outside
	case 1:
		return e.occurrences[0].label, Outside
	default:
		return e.occurrences[0].label, e.occurrences[1].label
	}
}

// pointKey and pointPairKey give exact (bitwise) identity for pixel-exact
// points, used to hash segments and label sets.
type pointKey [2]float64
type pointPairKey [2]pointKey

func keyOf(p orb.Point) pointKey { return pointKey{p[0], p[1]} }

func segmentKey(a, b orb.Point) pointPairKey {
	ka, kb := keyOf(a), keyOf(b)
	if less(ka, kb) {
		return pointPairKey{ka, kb}
	}
	return pointPairKey{kb, ka}
}

func less(a, b pointKey) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// arcArena is the tile-local arc table: an arena owned by the tile that
// polygons reference by id instead of by pointer (spec.md §9).
type arcArena struct {
	byKey map[string]int
	arcs  map[int]*Arc
	next  int
}

// register finds or creates the arc for pts (in the direction the caller
// walked it), returning its id and whether pts runs opposite the arc's
// stored canonical direction.
func (a *arcArena) register(pts []orb.Point, left, right int64, closed bool) (id int, reversed bool) {
	canon, flipped := canonicalizeDirection(pts, closed)
	key := pointsKey(canon)
	if id, ok := a.byKey[key]; ok {
		return id, flipped
	}
	id = a.next
	a.next++
	a.arcs[id] = &Arc{ID: id, Points: canon, Left: left, Right: right, Closed: closed}
	a.byKey[key] = id
	return id, flipped
}

// canonicalizeDirection picks a direction-independent canonical point
// sequence for a non-closed arc (smaller of pts and reverse(pts), by
// lexicographic endpoint order, or by the whole point sequence when both
// endpoints are the same junction) and reports whether pts had to be
// flipped to reach it.
func canonicalizeDirection(pts []orb.Point, closed bool) (canon []orb.Point, flipped bool) {
	if closed {
		canon = canonicalizeClosedLoop(pts)
		flipped = signedAreaPts(pts) > 0 != (signedAreaPts(canon[:len(canon)-1]) > 0)
		return canon, flipped
	}
	first, last := keyOf(pts[0]), keyOf(pts[len(pts)-1])
	rev := reversePoints(pts)
	if less(last, first) || (first == last && pointsLess(rev, pts)) {
		return rev, true
	}
	return pts, false
}

// canonicalizeClosedLoop rotates a closed loop (n distinct vertices, passed
// without the duplicated closing point) so it starts and ends at the
// lexicographically smallest vertex — its pinned seed, per spec.md §9 — and
// picks whichever of the two possible directions from that seed sorts
// first, so that two regions tracing the same loop in opposite directions
// normalize to an identical array.
func canonicalizeClosedLoop(distinct []orb.Point) []orb.Point {
	n := len(distinct)
	seedIdx := 0
	for i := 1; i < n; i++ {
		if less(keyOf(distinct[i]), keyOf(distinct[seedIdx])) {
			seedIdx = i
		}
	}

	fwd := make([]orb.Point, n+1)
	for i := 0; i < n; i++ {
		fwd[i] = distinct[(seedIdx+i)%n]
	}
	fwd[n] = fwd[0]

	bwd := make([]orb.Point, n+1)
	for i := 0; i < n; i++ {
		bwd[i] = distinct[(seedIdx-i+n*2)%n]
	}
	bwd[n] = bwd[0]

	if pointsLess(bwd, fwd) {
		return bwd
	}
	return fwd
}

func pointsLess(a, b []orb.Point) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		ka, kb := keyOf(a[i]), keyOf(b[i])
		if ka != kb {
			return less(ka, kb)
		}
	}
	return len(a) < len(b)
}

func reversePoints(pts []orb.Point) []orb.Point {
	rev := make([]orb.Point, len(pts))
	for i, p := range pts {
		rev[len(pts)-1-i] = p
	}
	return rev
}

func signedAreaPts(pts []orb.Point) float64 {
	var sum float64
	n := len(pts)
	for i := 0; i < n; i++ {
		p0, p1 := pts[i], pts[(i+1)%n]
		sum += p0[0]*p1[1] - p1[0]*p0[1]
	}
	return sum / 2
}

func pointsKey(pts []orb.Point) string {
	var sb strings.Builder
	for _, p := range pts {
		sb.WriteString(strconv.FormatFloat(p[0], 'g', -1, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(p[1], 'g', -1, 64))
		sb.WriteByte(';')
	}
	return sb.String()
}
