package topology

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestDecomposeArcsTwoAdjacentRegions(t *testing.T) {
	// Two regions sharing one vertical boundary segment:
	//   region A: unit square [0,1]x[0,1], label 1
	//   region B: unit square [1,2]x[0,1], label 2
	// The shared edge x=1 from (1,0) to (1,1) should become exactly one
	// arc referenced by both rings, with Left/Right = {1, 2}.
	regionA := RegionPolygon{
		Label: 1,
		Shell: orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
	}
	regionB := RegionPolygon{
		Label: 2,
		Shell: orb.Ring{{1, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 0}},
	}

	tile := DecomposeArcs([]RegionPolygon{regionA, regionB}, nil)

	if len(tile.RingArcs) != 2 {
		t.Fatalf("expected 2 ring-arc entries, got %d", len(tile.RingArcs))
	}

	refsA := tile.RingArcs[RingID{Region: 0, Hole: -1}]
	refsB := tile.RingArcs[RingID{Region: 1, Hole: -1}]

	sharedArcs := map[int]bool{}
	for _, ref := range refsA {
		sharedArcs[ref.ArcID] = true
	}
	shared := 0
	for _, ref := range refsB {
		if sharedArcs[ref.ArcID] {
			shared++
		}
	}
	if shared != 1 {
		t.Fatalf("expected exactly 1 arc shared between the two rings, got %d", shared)
	}

	for id, arc := range tile.Arcs {
		isBoundary := (arc.Left == 1 && arc.Right == 2) || (arc.Left == 2 && arc.Right == 1)
		hasOutside := arc.Left == Outside || arc.Right == Outside
		if !isBoundary && !hasOutside {
			t.Errorf("arc %d has unexpected label pair (%d, %d)", id, arc.Left, arc.Right)
		}
	}
}

func TestDecomposeArcsSingleClosedRingNoJunction(t *testing.T) {
	region := RegionPolygon{
		Label: 1,
		Shell: orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
	}
	tile := DecomposeArcs([]RegionPolygon{region}, nil)
	refs := tile.RingArcs[RingID{Region: 0, Hole: -1}]
	if len(refs) != 1 {
		t.Fatalf("expected a single closed arc with no junction, got %d arcs", len(refs))
	}
	arc := tile.Arcs[refs[0].ArcID]
	if !arc.Closed {
		t.Errorf("expected arc to be closed")
	}
	if arc.Left != Outside && arc.Right != Outside {
		t.Errorf("an isolated region's shell should border Outside on one side, got (%d, %d)", arc.Left, arc.Right)
	}
}

func TestDecomposeArcsForcedJunction(t *testing.T) {
	region := RegionPolygon{
		Label: 1,
		Shell: orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
	}
	forced := orb.Point{1, 0}
	forceJunction := func(p orb.Point) bool { return p == forced }

	tile := DecomposeArcs([]RegionPolygon{region}, forceJunction)
	refs := tile.RingArcs[RingID{Region: 0, Hole: -1}]
	if len(refs) != 1 {
		t.Fatalf("a single forced junction on a 4-vertex ring should still produce 1 arc (start==end), got %d", len(refs))
	}
	arc := tile.Arcs[refs[0].ArcID]
	if arc.Closed {
		t.Errorf("a ring split at a forced junction should produce a non-closed arc")
	}
	if arc.Points[0] != forced || arc.Points[len(arc.Points)-1] != forced {
		t.Errorf("arc should start and end at the forced junction, got %v", arc.Points)
	}
}

func TestCanonicalizeClosedLoopDirectionIndependent(t *testing.T) {
	fwd := []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	bwd := reversePoints(append(append([]orb.Point{}, fwd...), fwd[0]))[:len(fwd)]

	canonFwd := canonicalizeClosedLoop(fwd)
	canonBwd := canonicalizeClosedLoop(bwd)

	if pointsKey(canonFwd) != pointsKey(canonBwd) {
		t.Errorf("canonicalization should be direction-independent: %v vs %v", canonFwd, canonBwd)
	}
}
