// Package apiserver exposes the topology engine over HTTP: POST /v1/convert
// runs one conversion and returns GeoJSON, GET /health reports liveness
// (spec.md §4.10).
package apiserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/CAFxX/httpcompression"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/geopolygonize/geopolygonize/internal/config"
	"github.com/geopolygonize/geopolygonize/internal/raster"
	"github.com/geopolygonize/geopolygonize/internal/topology"
)

// Config holds the server's own settings, independent of the engine config
// carried per-request in ConvertInput.
type Config struct {
	Host string
	Port int
}

// Server wraps a Huma API over the topology engine.
type Server struct {
	cfg     Config
	mux     *http.ServeMux
	humaAPI huma.API
}

// New builds a Server with its routes registered.
func New(cfg Config) (*Server, error) {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("geopolygonize API", "1.0.0")
	humaConfig.Info.Description = "Converts a categorical label raster into gap-free vector polygons."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port), Description: "Local server"},
	}

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{cfg: cfg, mux: mux, humaAPI: humaAPI}
	s.registerRoutes()
	return s, nil
}

// Handler returns the compressed top-level http.Handler, gzip/br-encoding
// GeoJSON responses above the adapter's default size threshold.
func (s *Server) Handler() (http.Handler, error) {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, fmt.Errorf("building compression adapter: %w", err)
	}
	return compress(s.mux), nil
}

// OpenAPI returns the server's OpenAPI document, for the `spec` CLI
// subcommand to export.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

type healthOutput struct {
	Body struct {
		Status string `json:"status" doc:"Liveness status" example:"ok"`
	}
}

// ConvertInput is the request body for POST /v1/convert: an inline ASCII
// grid plus the engine's tunables.
type ConvertInput struct {
	Body struct {
		Grid                      string   `json:"grid" doc:"ESRI ASCII Grid contents"`
		TileSize                  int      `json:"tile_size,omitempty" doc:"Maximum tile width/height in pixels" default:"200"`
		Workers                   int      `json:"workers,omitempty" doc:"Number of concurrent tile workers" default:"4"`
		MetersPerPixel            float64  `json:"meters_per_pixel,omitempty" doc:"World-unit size of one pixel" default:"1"`
		SimplificationPixelWindow float64  `json:"simplification_pixel_window,omitempty" doc:"RDP tolerance in pixels" default:"2"`
		SmoothingIterations       int      `json:"smoothing_iterations,omitempty" doc:"Number of Chaikin passes" default:"5"`
		MinBlobSize               int      `json:"min_blob_size,omitempty" doc:"Blobs smaller than this are repainted before tiling"`
		Transforms                []string `json:"transforms,omitempty" doc:"Named arc transforms to apply in order"`
	}
}

// ConvertOutput wraps the resulting GeoJSON FeatureCollection.
type ConvertOutput struct {
	Body *geojson.FeatureCollection
}

func (s *Server) registerRoutes() {
	huma.Get(s.humaAPI, "/health", s.getHealth, huma.OperationTags("health"))
	huma.Post(s.humaAPI, "/v1/convert", s.postConvert, huma.OperationTags("convert"))
}

func (s *Server) getHealth(ctx context.Context, input *struct{}) (*healthOutput, error) {
	out := &healthOutput{}
	out.Body.Status = "ok"
	return out, nil
}

func (s *Server) postConvert(ctx context.Context, input *ConvertInput) (*ConvertOutput, error) {
	grid, err := raster.ParseASCIIGrid([]byte(input.Body.Grid))
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid grid", err)
	}

	cfg := config.Default()
	if input.Body.TileSize > 0 {
		cfg.TileSize = input.Body.TileSize
	}
	if input.Body.Workers > 0 {
		cfg.Workers = input.Body.Workers
	}
	if input.Body.MetersPerPixel > 0 {
		cfg.MetersPerPixel = input.Body.MetersPerPixel
	}
	if input.Body.SimplificationPixelWindow > 0 {
		cfg.SimplificationPixelWindow = input.Body.SimplificationPixelWindow
	}
	if input.Body.SmoothingIterations > 0 {
		cfg.SmoothingIterations = input.Body.SmoothingIterations
	}
	if input.Body.MinBlobSize > 0 {
		cfg.MinBlobSize = input.Body.MinBlobSize
	}
	if len(input.Body.Transforms) > 0 {
		cfg.Transforms = input.Body.Transforms
	}

	raster.FillSmallBlobs(grid, cfg.MinBlobSize)

	engine, err := topology.NewEngine(topology.EngineConfig{
		TileSize:             cfg.TileSize,
		Workers:              cfg.Workers,
		SimplificationWindow: cfg.SimplificationPixelWindow,
		MetersPerPixel:       cfg.MetersPerPixel,
		ChaikinIterations:    cfg.SmoothingIterations,
		Transforms:           cfg.Transforms,
	})
	if err != nil {
		return nil, huma.Error400BadRequest("invalid configuration", err)
	}

	regions, err := engine.Run(ctx, grid)
	if err != nil {
		return nil, huma.Error500InternalServerError("conversion failed", err)
	}

	fc := geojson.NewFeatureCollection()
	for label, polys := range regions {
		for _, region := range polys {
			poly := orb.Polygon{region.Shell}
			poly = append(poly, region.Holes...)
			feature := geojson.NewFeature(poly)
			feature.Properties = geojson.Properties{"label": label}
			fc.Append(feature)
		}
	}

	return &ConvertOutput{Body: fc}, nil
}
