// Package vector writes the engine's labeled region polygons to the output
// formats spec.md §4.8 describes: GeoJSON and a DuckDB spatial table.
package vector

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/geopolygonize/geopolygonize/internal/topology"
)

// GeoJSONSink writes a label -> polygons map to a single GeoJSON
// FeatureCollection, one feature per region polygon, with the label carried
// under the "label" property.
type GeoJSONSink struct {
	Path string
}

// Write encodes regions as a geojson.FeatureCollection and writes it to s.Path.
func (s GeoJSONSink) Write(regions map[int64][]topology.RegionPolygon) error {
	fc := geojson.NewFeatureCollection()

	labels := make([]int64, 0, len(regions))
	for label := range regions {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	for _, label := range labels {
		for _, region := range regions[label] {
			poly := orb.Polygon{region.Shell}
			poly = append(poly, region.Holes...)

			feature := geojson.NewFeature(poly)
			feature.Properties = geojson.Properties{"label": label}
			fc.Append(feature)
		}
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshaling feature collection: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", s.Path, err)
	}
	return nil
}
