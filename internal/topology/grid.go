// Package topology implements the shared-boundary topology engine: it turns
// a categorical label raster into a gap-free vector polygon layer whose
// boundaries have been simplified and smoothed without reintroducing gaps or
// overlaps between adjacent regions.
package topology

import "github.com/paulmach/orb"

// Outside is the sentinel label for the raster complement, the virtual
// region used so that every arc has exactly two distinct adjacent labels.
const Outside int64 = -1 << 62

// Affine maps pixel indices (col, row) to planar (x, y) coordinates using the
// standard six-parameter affine transform.
type Affine struct {
	A, B, C float64 // x = A*col + B*row + C
	D, E, F float64 // y = D*col + E*row + F
}

// ToWorld converts a pixel-lattice vertex (col, row) to a planar point.
func (t Affine) ToWorld(col, row int) orb.Point {
	c, r := float64(col), float64(row)
	return orb.Point{t.A*c + t.B*r + t.C, t.D*c + t.E*r + t.F}
}

// Grid is a 2-D label raster with a known affine transform. Labels are
// opaque identifiers; their numeric ordering carries no meaning. NoData, if
// non-nil, marks pixels excluded from every region.
type Grid struct {
	Labels []int64 // row-major, length Width*Height
	Width  int
	Height int
	Affine Affine
	NoData *int64
}

// At returns the label at (col, row). Callers must keep col/row in range.
func (g *Grid) At(col, row int) int64 {
	return g.Labels[row*g.Width+col]
}

// Set writes the label at (col, row).
func (g *Grid) Set(col, row int, label int64) {
	g.Labels[row*g.Width+col] = label
}

// InBounds reports whether (col, row) is a valid pixel index into the grid.
func (g *Grid) InBounds(col, row int) bool {
	return col >= 0 && col < g.Width && row >= 0 && row < g.Height
}

// isNoData reports whether the label at (col, row) is the grid's nodata
// sentinel, treating out-of-bounds pixels as nodata too.
func (g *Grid) isNoData(col, row int) bool {
	if !g.InBounds(col, row) {
		return true
	}
	if g.NoData == nil {
		return false
	}
	return g.At(col, row) == *g.NoData
}

// View is a window onto a Grid, addressed in the same global (col, row)
// pixel indices as the underlying grid. World coordinates are always
// produced by calling the grid's own Affine with global indices, never a
// tile-local affine, so that two tiles sharing a seam vertex compute its
// world coordinates via the exact same floating-point expression and are
// therefore bitwise identical (spec.md §4.6, §9).
type View struct {
	Grid                         *Grid
	MinCol, MinRow, MaxCol, MaxRow int // [Min, Max), global pixel indices
}

// FullView returns a View covering the entire grid.
func FullView(g *Grid) View {
	return View{Grid: g, MinCol: 0, MinRow: 0, MaxCol: g.Width, MaxRow: g.Height}
}

// InBounds reports whether (col, row) lies inside the view's window.
func (v View) InBounds(col, row int) bool {
	return col >= v.MinCol && col < v.MaxCol && row >= v.MinRow && row < v.MaxRow
}

// At returns the label at (col, row), which must satisfy InBounds.
func (v View) At(col, row int) int64 {
	return v.Grid.At(col, row)
}

// isNoData reports whether (col, row) is nodata or outside the view.
func (v View) isNoData(col, row int) bool {
	if !v.InBounds(col, row) {
		return true
	}
	return v.Grid.isNoData(col, row)
}

// ToWorld maps a global pixel-lattice vertex through the underlying grid's
// affine transform.
func (v View) ToWorld(col, row int) orb.Point {
	return v.Grid.Affine.ToWorld(col, row)
}

// OnBoundary reports whether (col, row) is a lattice vertex of the view's
// own rectangle (as opposed to strictly interior to it) — the seam line
// used to force junctions at tile edges.
func (v View) OnBoundary(col, row int) bool {
	return col == v.MinCol || col == v.MaxCol || row == v.MinRow || row == v.MaxRow
}
