package topology

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/semaphore"
)

// Tile is one partition of the raster, windowed into the shared Grid so
// every world coordinate it produces goes through the grid's single global
// affine (spec.md §4.1, §4.6, §9).
type Tile struct {
	Coord  TileCoord
	Window View
}

// Plan splits grid into a row-major grid of tiles of at most tileSize pixels
// per side, per spec.md §4.1. The last tile in each row/column is shrunk to
// fit, never padded.
func Plan(grid *Grid, tileSize int) ([]Tile, error) {
	if tileSize <= 0 {
		return nil, &Error{Kind: Configuration, Err: fmt.Errorf("tile size must be positive, got %d", tileSize)}
	}

	var tiles []Tile
	cols := ceilDiv(grid.Width, tileSize)
	rows := ceilDiv(grid.Height, tileSize)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			minCol := col * tileSize
			minRow := row * tileSize
			maxCol := min(minCol+tileSize, grid.Width)
			maxRow := min(minRow+tileSize, grid.Height)
			tiles = append(tiles, Tile{
				Coord: TileCoord{Col: col, Row: row},
				Window: View{
					Grid:   grid,
					MinCol: minCol,
					MinRow: minRow,
					MaxCol: maxCol,
					MaxRow: maxRow,
				},
			})
		}
	}
	return tiles, nil
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// TileResult is one tile's output after local processing (C2-C5): the
// region polygons ready to be merged across tiles at seams, and any
// non-fatal warnings collected along the way.
type TileResult struct {
	Coord    TileCoord
	Window   View
	Regions  []RegionPolygon
	Warnings []Warning
}

// ProcessTileFunc runs the per-tile pipeline (extract, decompose, transform,
// reassemble) for one tile and returns its result.
type ProcessTileFunc func(ctx context.Context, tile Tile) (TileResult, error)

// RunPool runs fn over every tile using a fixed pool of workers. A semaphore
// of workers*4 permits (spec.md §5's watermark) is held from the moment a
// worker starts a tile until the collecting loop has taken that tile's
// result, so workers cannot run more than that many results ahead of
// collection. Results are returned sorted by (row, col) regardless of
// completion order. The first worker error cancels ctx for the rest and is
// returned at once, without waiting for tiles still in flight.
func RunPool(ctx context.Context, tiles []Tile, workers int, logger *slog.Logger, fn ProcessTileFunc) ([]TileResult, error) {
	if workers <= 0 {
		return nil, &Error{Kind: Configuration, Err: fmt.Errorf("worker count must be positive, got %d", workers)}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(tiles) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	const watermarkFactor = 4
	sem := semaphore.NewWeighted(int64(workers * watermarkFactor))

	type indexedResult struct {
		idx int
		res TileResult
	}
	resultsCh := make(chan indexedResult, len(tiles))
	errCh := make(chan error, len(tiles))

	dispatch := make(chan int)
	go func() {
		defer close(dispatch)
		for i := range tiles {
			select {
			case dispatch <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	for w := 0; w < workers; w++ {
		go func() {
			for i := range dispatch {
				if err := sem.Acquire(ctx, 1); err != nil {
					errCh <- err
					return
				}
				tile := tiles[i]
				res, err := fn(ctx, tile)
				if err != nil {
					sem.Release(1)
					logger.Error("tile processing failed", "col", tile.Coord.Col, "row", tile.Coord.Row, "error", err)
					errCh <- err
					cancel()
					return
				}
				resultsCh <- indexedResult{idx: i, res: res}
			}
		}()
	}

	results := make([]TileResult, len(tiles))
	filled := make([]bool, len(tiles))
	var firstErr error
	for completed := 0; completed < len(tiles); completed++ {
		select {
		case ir := <-resultsCh:
			sem.Release(1)
			results[ir.idx] = ir.res
			filled[ir.idx] = true
		case err := <-errCh:
			if firstErr == nil {
				firstErr = err
			}
		case <-ctx.Done():
			if firstErr == nil {
				firstErr = ctx.Err()
			}
		}
		if firstErr != nil {
			break
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	out := make([]TileResult, 0, len(tiles))
	for i, ok := range filled {
		if ok {
			out = append(out, results[i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Coord.Row != out[j].Coord.Row {
			return out[i].Coord.Row < out[j].Coord.Row
		}
		return out[i].Coord.Col < out[j].Coord.Col
	})
	return out, nil
}
