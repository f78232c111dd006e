package vector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/geopolygonize/geopolygonize/internal/topology"
)

func rect(x0, y0, x1, y1 float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

func TestGeoJSONSinkWritesOneFeaturePerRegion(t *testing.T) {
	regions := map[int64][]topology.RegionPolygon{
		1: {
			{Label: 1, Shell: rect(0, 0, 2, 2)},
		},
		2: {
			{Label: 2, Shell: rect(2, 0, 4, 2)},
			{Label: 2, Shell: rect(0, 2, 2, 4)},
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "out.geojson")
	sink := GeoJSONSink{Path: path}
	if err := sink.Write(regions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		t.Fatalf("unmarshaling output: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(fc.Features))
	}
	for _, f := range fc.Features {
		if _, ok := f.Properties["label"]; !ok {
			t.Errorf("feature missing label property: %v", f.Properties)
		}
	}
}

func TestGeoJSONSinkIncludesHoles(t *testing.T) {
	regions := map[int64][]topology.RegionPolygon{
		1: {
			{
				Label: 1,
				Shell: rect(0, 0, 4, 4),
				Holes: []orb.Ring{rect(1, 1, 2, 2)},
			},
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "out.geojson")
	sink := GeoJSONSink{Path: path}
	if err := sink.Write(regions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		t.Fatalf("unmarshaling output: %v", err)
	}
	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("expected geometry to decode as a polygon, got %T", fc.Features[0].Geometry)
	}
	if len(poly) != 2 {
		t.Fatalf("expected 1 shell + 1 hole ring, got %d rings", len(poly))
	}
}
