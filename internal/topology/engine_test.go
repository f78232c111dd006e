package topology

import (
	"context"
	"math"
	"testing"
)

func TestEngineRunMergesAcrossTileSeam(t *testing.T) {
	// 4x2 grid, single label, split into two 2x2 tiles side by side. With no
	// simplification or smoothing, the seam between them should cancel
	// cleanly into one rectangle covering the whole grid.
	labels := []int64{
		1, 1, 1, 1,
		1, 1, 1, 1,
	}
	grid := &Grid{Labels: labels, Width: 4, Height: 2, Affine: Affine{A: 1, E: 1}}

	engine, err := NewEngine(EngineConfig{TileSize: 2, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error constructing engine: %v", err)
	}

	merged, err := engine.Run(context.Background(), grid)
	if err != nil {
		t.Fatalf("unexpected error from Run: %v", err)
	}

	regions, ok := merged[1]
	if !ok || len(regions) != 1 {
		t.Fatalf("expected a single merged region for label 1, got %v", merged)
	}
	wantArea := 8.0
	if got := math.Abs(signedArea(regions[0].Shell)); got != wantArea {
		t.Errorf("merged shell area = %v, want %v", got, wantArea)
	}
	if len(regions[0].Holes) != 0 {
		t.Errorf("expected no holes, got %d", len(regions[0].Holes))
	}
}

func TestEngineRunKeepsDistinctLabelsSeparateAcrossTiles(t *testing.T) {
	labels := []int64{
		1, 1, 2, 2,
		1, 1, 2, 2,
	}
	grid := &Grid{Labels: labels, Width: 4, Height: 2, Affine: Affine{A: 1, E: 1}}

	engine, err := NewEngine(EngineConfig{TileSize: 2, Workers: 1})
	if err != nil {
		t.Fatalf("unexpected error constructing engine: %v", err)
	}

	merged, err := engine.Run(context.Background(), grid)
	if err != nil {
		t.Fatalf("unexpected error from Run: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(merged))
	}
	for label, regions := range merged {
		if len(regions) != 1 {
			t.Errorf("label %d: expected 1 region, got %d", label, len(regions))
		}
		if got := math.Abs(signedArea(regions[0].Shell)); got != 4 {
			t.Errorf("label %d: expected area 4, got %v", label, got)
		}
	}
}

func TestEngineRunRejectsEmptyGrid(t *testing.T) {
	grid := &Grid{Labels: nil, Width: 0, Height: 0, Affine: Affine{A: 1, E: 1}}
	engine, err := NewEngine(EngineConfig{TileSize: 2, Workers: 1})
	if err != nil {
		t.Fatalf("unexpected error constructing engine: %v", err)
	}
	if _, err := engine.Run(context.Background(), grid); err == nil {
		t.Fatal("expected an error for a grid with no pixels")
	}
}
