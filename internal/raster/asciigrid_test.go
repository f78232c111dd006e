package raster

import (
	"strings"
	"testing"
)

func TestParseASCIIGridBasic(t *testing.T) {
	data := strings.Join([]string{
		"ncols 3",
		"nrows 2",
		"xllcorner 100.0",
		"yllcorner 200.0",
		"cellsize 10.0",
		"NODATA_value -9999",
		"1 1 2",
		"1 2 2",
	}, "\n")

	grid, err := ParseASCIIGrid([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grid.Width != 3 || grid.Height != 2 {
		t.Fatalf("dimensions = %dx%d, want 3x2", grid.Width, grid.Height)
	}
	if grid.NoData == nil || *grid.NoData != -9999 {
		t.Fatalf("expected NoData -9999, got %v", grid.NoData)
	}
	want := []int64{1, 1, 2, 1, 2, 2}
	for i, w := range want {
		if grid.Labels[i] != w {
			t.Errorf("label %d = %d, want %d", i, grid.Labels[i], w)
		}
	}

	// Row 0 of the file is the top row; yllcorner anchors the bottom, so the
	// affine's row term must descend in y as row increases.
	top := grid.Affine.ToWorld(0, 0)
	bottom := grid.Affine.ToWorld(0, 1)
	if !(top[1] > bottom[1]) {
		t.Errorf("expected world y to decrease as pixel row increases, got top=%v bottom=%v", top, bottom)
	}
	if top[0] != 100.0 {
		t.Errorf("expected x origin 100.0, got %v", top[0])
	}
}

func TestParseASCIIGridHeaderOrderIndependent(t *testing.T) {
	data := strings.Join([]string{
		"nrows 1",
		"cellsize 1",
		"ncols 2",
		"xllcorner 0",
		"yllcorner 0",
		"1 2",
	}, "\n")

	grid, err := ParseASCIIGrid([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grid.Width != 2 || grid.Height != 1 {
		t.Fatalf("dimensions = %dx%d, want 2x1", grid.Width, grid.Height)
	}
}

func TestParseASCIIGridRejectsWrongColumnCount(t *testing.T) {
	data := strings.Join([]string{
		"ncols 3",
		"nrows 1",
		"xllcorner 0",
		"yllcorner 0",
		"cellsize 1",
		"1 2",
	}, "\n")

	if _, err := ParseASCIIGrid([]byte(data)); err == nil {
		t.Fatal("expected an error for a row with the wrong column count")
	}
}

func TestParseASCIIGridRejectsNonIntegerLabel(t *testing.T) {
	data := strings.Join([]string{
		"ncols 1",
		"nrows 1",
		"xllcorner 0",
		"yllcorner 0",
		"cellsize 1",
		"1.5",
	}, "\n")

	if _, err := ParseASCIIGrid([]byte(data)); err == nil {
		t.Fatal("expected an error for a non-integer label")
	}
}

func TestParseASCIIGridRejectsTruncatedHeader(t *testing.T) {
	data := "ncols 3\nnrows 2\n"
	if _, err := ParseASCIIGrid([]byte(data)); err == nil {
		t.Fatal("expected an error for a truncated header")
	}
}
