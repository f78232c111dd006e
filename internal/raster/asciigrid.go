// Package raster reads label rasters from disk and cleans them before the
// topology engine sees them (spec.md §4.7, §4.9).
package raster

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/geopolygonize/geopolygonize/internal/topology"
)

// ReadASCIIGrid parses an ESRI ASCII Grid file (header of ncols/nrows/
// xllcorner/yllcorner/cellsize/NODATA_value followed by a row-major body of
// integer labels) into a topology.Grid, per spec.md §4.7.
func ReadASCIIGrid(path string) (*topology.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &topology.Error{Kind: topology.InputShape, Err: err}
	}
	defer f.Close()

	grid, err := parseASCIIGrid(f)
	if err != nil {
		return nil, &topology.Error{Kind: topology.InputShape, Err: fmt.Errorf("%s: %w", path, err)}
	}
	return grid, nil
}

// ParseASCIIGrid parses ESRI ASCII Grid contents already held in memory,
// for callers (like the HTTP API) that receive a grid inline in a request
// body rather than as a file path.
func ParseASCIIGrid(data []byte) (*topology.Grid, error) {
	grid, err := parseASCIIGrid(bytes.NewReader(data))
	if err != nil {
		return nil, &topology.Error{Kind: topology.InputShape, Err: err}
	}
	return grid, nil
}

func parseASCIIGrid(r io.Reader) (*topology.Grid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)

	header := map[string]float64{}
	requiredKeys := []string{"ncols", "nrows", "xllcorner", "yllcorner", "cellsize"}
	hasNoData := false
	var noData int64
	var firstBodyLine string

	// Header lines are "key value" pairs in any order; the body starts at
	// the first line that isn't one of the known header keys.
	for firstBodyLine == "" {
		if !scanner.Scan() {
			return nil, fmt.Errorf("truncated ASCII grid header")
		}
		line := scanner.Text()
		key, val, ok := splitHeaderLine(line)
		if !ok {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		switch strings.ToLower(key) {
		case "ncols", "nrows", "xllcorner", "yllcorner", "cellsize":
			header[strings.ToLower(key)] = val
		case "nodata_value":
			hasNoData = true
			noData = int64(val)
		default:
			firstBodyLine = line
		}
		if firstBodyLine != "" || !allKeysPresent(header, requiredKeys) {
			continue
		}
		// All required keys seen; consume any further NODATA_value lines
		// before treating a line as the first body row.
		for {
			if !scanner.Scan() {
				return nil, fmt.Errorf("ASCII grid has no body")
			}
			line := scanner.Text()
			if key, val, ok := splitHeaderLine(line); ok && strings.EqualFold(key, "nodata_value") {
				hasNoData = true
				noData = int64(val)
				continue
			}
			firstBodyLine = line
			break
		}
	}

	ncols := int(header["ncols"])
	nrows := int(header["nrows"])
	if ncols <= 0 || nrows <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%d", ncols, nrows)
	}

	labels := make([]int64, ncols*nrows)
	row := 0
	if err := parseRowInto(firstBodyLine, labels, row, ncols); err != nil {
		return nil, fmt.Errorf("row %d: %w", row, err)
	}
	row++
	for scanner.Scan() {
		if row >= nrows {
			break
		}
		if err := parseRowInto(scanner.Text(), labels, row, ncols); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		row++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if row != nrows {
		return nil, fmt.Errorf("expected %d rows, got %d", nrows, row)
	}

	cellsize := header["cellsize"]
	xll := header["xllcorner"]
	yll := header["yllcorner"]
	// ASCII grids are stored top row first, but yllcorner anchors the
	// bottom-left corner, so the affine flips row to descend in y.
	affine := topology.Affine{
		A: cellsize, B: 0, C: xll,
		D: 0, E: -cellsize, F: yll + float64(nrows)*cellsize,
	}

	grid := &topology.Grid{
		Labels: labels,
		Width:  ncols,
		Height: nrows,
		Affine: affine,
	}
	if hasNoData {
		grid.NoData = &noData
	}
	return grid, nil
}

func allKeysPresent(header map[string]float64, keys []string) bool {
	for _, k := range keys {
		if _, ok := header[k]; !ok {
			return false
		}
	}
	return true
}

func splitHeaderLine(line string) (key string, val float64, ok bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return "", 0, false
	}
	v, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return "", 0, false
	}
	return fields[0], v, true
}

func parseRowInto(line string, labels []int64, row, ncols int) error {
	fields := strings.Fields(line)
	if len(fields) != ncols {
		return fmt.Errorf("expected %d columns, got %d", ncols, len(fields))
	}
	for col, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return fmt.Errorf("column %d: %q is not numeric", col, f)
		}
		if math.Trunc(v) != v {
			return fmt.Errorf("column %d: %q is not an integer label", col, f)
		}
		labels[row*ncols+col] = int64(v)
	}
	return nil
}
