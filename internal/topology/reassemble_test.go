package topology

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestReassembleConcatenatesSharedArc(t *testing.T) {
	regionA := RegionPolygon{Label: 1, Shell: orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	regionB := RegionPolygon{Label: 2, Shell: orb.Ring{{1, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 0}}}
	regions := []RegionPolygon{regionA, regionB}

	tile := DecomposeArcs(regions, nil)
	out, warnings, err := Reassemble(regions, tile, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 regions back, got %d", len(out))
	}
	for _, r := range out {
		if r.Shell[0] != r.Shell[len(r.Shell)-1] {
			t.Errorf("region %d shell did not close: %v", r.Label, r.Shell)
		}
		if signedArea(r.Shell) <= 0 {
			t.Errorf("region %d shell should be CCW, area=%v", r.Label, signedArea(r.Shell))
		}
	}
}

func TestReassembleKeepsHoleInsideShell(t *testing.T) {
	ring := RegionPolygon{
		Label: 1,
		Shell: orb.Ring{{0, 0}, {3, 0}, {3, 3}, {0, 3}, {0, 0}},
		Holes: []orb.Ring{{{1, 1}, {1, 2}, {2, 2}, {2, 1}, {1, 1}}},
	}
	regions := []RegionPolygon{ring}
	tile := DecomposeArcs(regions, nil)
	out, warnings, err := Reassemble(regions, tile, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings for a well-formed hole, got %v", warnings)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 region, got %d", len(out))
	}
	if len(out[0].Holes) != 1 {
		t.Fatalf("expected the hole to survive reassembly, got %d holes", len(out[0].Holes))
	}
	if signedArea(out[0].Holes[0]) >= 0 {
		t.Errorf("hole should be CW, area=%v", signedArea(out[0].Holes[0]))
	}
}

func TestRingInsideRingContainment(t *testing.T) {
	outer := orb.Ring{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}
	inner := orb.Ring{{1, 1}, {1, 2}, {2, 2}, {2, 1}, {1, 1}}
	outside := orb.Ring{{5, 5}, {5, 6}, {6, 6}, {6, 5}, {5, 5}}

	if !ringInsideRing(inner, outer) {
		t.Errorf("expected inner to be inside outer")
	}
	if ringInsideRing(outside, outer) {
		t.Errorf("expected outside ring to not be inside outer")
	}
}

func TestConcatArcsRejectsUnclosedRing(t *testing.T) {
	tile := &DecomposedTile{
		Arcs: map[int]*Arc{
			1: {ID: 1, Points: []orb.Point{{0, 0}, {1, 0}}, Left: 1, Right: Outside},
		},
	}
	refs := []RingArcRef{{ArcID: 1}}
	if _, err := concatArcs(tile, refs); err == nil {
		t.Fatal("expected an error for a ring that does not close")
	}
}
