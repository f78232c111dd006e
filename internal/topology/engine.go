package topology

import (
	"context"
	"errors"
	"log/slog"

	"github.com/paulmach/orb"
)

// EngineConfig configures one run of the engine, corresponding to the
// ambient and domain parameters of spec.md §5, §6.
type EngineConfig struct {
	// TileSize is the maximum pixel width/height of a tile (spec.md §4.1).
	TileSize int
	// Workers is the number of concurrent tile workers (spec.md §5).
	Workers int
	// SimplificationWindow is the RDP tolerance in pixels, converted to
	// world units via MetersPerPixel before being handed to the driver.
	SimplificationWindow float64
	// MetersPerPixel converts SimplificationWindow to a world-unit RDP
	// tolerance.
	MetersPerPixel float64
	// ChaikinIterations is the number of Chaikin smoothing passes applied
	// after simplification.
	ChaikinIterations int
	// Transforms names the ArcTransform chain, in order, e.g.
	// ["rdp", "chaikin"]. Empty selects the default chain.
	Transforms []string
	// Logger receives structured progress and warning events. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
}

// Engine runs the full C1-C6 pipeline against one Grid.
type Engine struct {
	cfg    EngineConfig
	driver *Driver
}

// NewEngine builds an Engine from cfg, applying spec.md §6's defaults to a
// zero or negative TileSize, Workers or MetersPerPixel. A zero
// SimplificationWindow or ChaikinIterations is kept as is and turns that
// transform into a no-op.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.TileSize <= 0 {
		cfg.TileSize = 200
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MetersPerPixel <= 0 {
		cfg.MetersPerPixel = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	driver, err := NewDriver(cfg.Transforms, cfg.SimplificationWindow, cfg.MetersPerPixel, cfg.ChaikinIterations)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		driver: driver,
	}, nil
}

// Run executes the engine's pipeline end to end against grid: tiling (C1),
// region extraction (C2), arc decomposition (C4.3), transform (C4.4),
// reassembly (C5), and seam reconciliation (C6), returning every label's
// final set of gap-free region polygons (spec.md §1).
func (e *Engine) Run(ctx context.Context, grid *Grid) (map[int64][]RegionPolygon, error) {
	tiles, err := Plan(grid, e.cfg.TileSize)
	if err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		return nil, &Error{Kind: InputShape, Err: errors.New("raster produced no tiles")}
	}

	results, err := RunPool(ctx, tiles, e.cfg.Workers, e.cfg.Logger, e.processTile)
	if err != nil {
		return nil, err
	}

	merged, err := MergeAcrossTiles(results)
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// processTile runs the per-tile pipeline stages C2 through C5 for a single
// tile window, pinning every vertex on the tile's window rectangle as a
// forced junction so arcs never cross a seam (spec.md §4.6).
func (e *Engine) processTile(ctx context.Context, tile Tile) (TileResult, error) {
	if err := ctx.Err(); err != nil {
		return TileResult{}, err
	}

	regions := ExtractRegions(tile.Window)

	boundary := windowBoundaryPoints(tile.Window)
	forceJunction := func(p orb.Point) bool { return boundary[keyOf(p)] }

	decomposed := DecomposeArcs(regions, forceJunction)

	if err := e.driver.Apply(decomposed); err != nil {
		return TileResult{}, withTileCoord(err, tile.Coord)
	}

	reassembled, warnings, err := Reassemble(regions, decomposed, e.cfg.Logger)
	if err != nil {
		return TileResult{}, withTileCoord(err, tile.Coord)
	}

	return TileResult{
		Coord:    tile.Coord,
		Window:   tile.Window,
		Regions:  reassembled,
		Warnings: warnings,
	}, nil
}

// windowBoundaryPoints enumerates the world coordinates of every pixel
// lattice vertex on view's own window rectangle, computed through the same
// View.ToWorld call region extraction used, so membership tests are
// bit-exact regardless of the affine's rotation or skew terms.
func windowBoundaryPoints(view View) map[pointKey]bool {
	pts := map[pointKey]bool{}
	add := func(col, row int) { pts[keyOf(view.ToWorld(col, row))] = true }

	for col := view.MinCol; col <= view.MaxCol; col++ {
		add(col, view.MinRow)
		add(col, view.MaxRow)
	}
	for row := view.MinRow; row <= view.MaxRow; row++ {
		add(view.MinCol, row)
		add(view.MaxCol, row)
	}
	return pts
}

// withTileCoord annotates err with tile, if it is an *Error without one
// already.
func withTileCoord(err error, coord TileCoord) error {
	var topoErr *Error
	if errors.As(err, &topoErr) {
		if topoErr.Tile == nil {
			tc := TileCoord{Col: coord.Col, Row: coord.Row}
			topoErr.Tile = &tc
		}
		return topoErr
	}
	return &Error{Kind: TileLocal, Tile: &TileCoord{Col: coord.Col, Row: coord.Row}, Err: err}
}
