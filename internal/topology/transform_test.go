package topology

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestRDPSimplifyKeepsEndpointsAndCollinearDrop(t *testing.T) {
	pts := []orb.Point{{0, 0}, {1, 0.01}, {2, 0}, {3, 0}}
	rdp := RDP{Tolerance: 0.5}
	out := rdp.Transform(pts, false)

	if out[0] != pts[0] {
		t.Errorf("start point changed: %v", out[0])
	}
	if out[len(out)-1] != pts[len(pts)-1] {
		t.Errorf("end point changed: %v", out[len(out)-1])
	}
	if len(out) >= len(pts) {
		t.Errorf("expected simplification to drop at least one point, got %d -> %d", len(pts), len(out))
	}
}

func TestRDPZeroToleranceNoOp(t *testing.T) {
	pts := []orb.Point{{0, 0}, {1, 5}, {2, 0}}
	rdp := RDP{Tolerance: 0}
	out := rdp.Transform(pts, false)
	if len(out) != len(pts) {
		t.Errorf("zero tolerance should not simplify, got %d points from %d", len(out), len(pts))
	}
}

func TestChaikinPreservesEndpoints(t *testing.T) {
	pts := []orb.Point{{0, 0}, {1, 0}, {2, 1}, {3, 1}, {4, 0}}
	c := Chaikin{Iterations: 2}
	out := c.Transform(pts, false)

	if out[0] != pts[0] {
		t.Errorf("start point moved: %v", out[0])
	}
	if out[len(out)-1] != pts[len(pts)-1] {
		t.Errorf("end point moved: %v", out[len(out)-1])
	}
	if len(out) <= len(pts) {
		t.Errorf("expected smoothing to add points, got %d -> %d", len(pts), len(out))
	}
}

func TestChaikinClosedArcPreservesSeed(t *testing.T) {
	seed := orb.Point{0, 0}
	pts := []orb.Point{seed, {2, 0}, {2, 2}, {0, 2}, seed}
	c := Chaikin{Iterations: 3}
	out := c.Transform(pts, true)

	if out[0] != seed || out[len(out)-1] != seed {
		t.Fatalf("closed arc seed not preserved: first=%v last=%v", out[0], out[len(out)-1])
	}
}

func TestNewDriverSelectsChainByName(t *testing.T) {
	driver, err := NewDriver([]string{"chaikin"}, 1, 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(driver.Chain) != 1 || driver.Chain[0].Name() != "chaikin" {
		t.Fatalf("expected a single chaikin-only chain, got %v", driver.Chain)
	}
}

func TestNewDriverDefaultsToRDPThenChaikin(t *testing.T) {
	driver, err := NewDriver(nil, 1, 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(driver.Chain) != 2 || driver.Chain[0].Name() != "rdp" || driver.Chain[1].Name() != "chaikin" {
		t.Fatalf("expected default [rdp, chaikin] chain, got %v", driver.Chain)
	}
}

func TestNewDriverRejectsUnknownTransform(t *testing.T) {
	if _, err := NewDriver([]string{"bogus"}, 1, 1, 1); err == nil {
		t.Fatal("expected an error for an unknown transform name")
	}
}

func TestDriverApplyRejectsEndpointViolation(t *testing.T) {
	tile := &DecomposedTile{
		Arcs: map[int]*Arc{
			1: {ID: 1, Points: []orb.Point{{0, 0}, {1, 0}, {2, 0}}, Left: 1, Right: Outside},
		},
	}
	driver := &Driver{Chain: []ArcTransform{brokenTransform{}}}
	if err := driver.Apply(tile); err == nil {
		t.Fatal("expected an error from a transform that moves an endpoint")
	}
}

// brokenTransform violates the endpoint-pinning contract, to exercise
// Driver.Apply's validation.
type brokenTransform struct{}

func (brokenTransform) Name() string { return "broken" }
func (brokenTransform) Transform(points []orb.Point, closed bool) []orb.Point {
	out := append([]orb.Point{}, points...)
	out[0] = orb.Point{99, 99}
	return out
}

func TestValidateTransformRejectsDuplicatePoints(t *testing.T) {
	before := []orb.Point{{0, 0}, {1, 0}, {2, 0}}
	after := []orb.Point{{0, 0}, {0, 0}, {2, 0}}
	if err := validateTransform(before, after, false); err == nil {
		t.Fatal("expected an error for duplicate consecutive points")
	}
}
