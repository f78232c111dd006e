package raster

import "github.com/geopolygonize/geopolygonize/internal/topology"

// FillSmallBlobs repaints every 4-neighbor connected component smaller than
// minBlobSize with the most common label among its neighbors, before the
// grid reaches the tiler (spec.md §4.9). It runs once, over the whole grid,
// reusing the same connected-component primitive the region extractor (C2)
// uses on a per-tile View, here applied to a FullView of the whole grid.
func FillSmallBlobs(grid *topology.Grid, minBlobSize int) {
	if minBlobSize <= 0 {
		return
	}

	view := topology.FullView(grid)
	compID, numComp, _ := topology.LabelComponents(view)
	if numComp == 0 {
		return
	}

	w := grid.Width
	members := make([][]int, numComp)
	for idx, id := range compID {
		if id == -1 {
			continue
		}
		members[id] = append(members[id], idx)
	}

	for id, comp := range members {
		if len(comp) == 0 || len(comp) >= minBlobSize {
			continue
		}
		replacement, ok := dominantNeighborLabel(grid, compID, id, comp, w)
		if !ok {
			continue
		}
		for _, idx := range comp {
			grid.Set(idx%w, idx/w, replacement)
		}
	}
}

// dominantNeighborLabel returns the label that appears most often among the
// 4-neighbors of comp's pixels (identified by their row-major grid index)
// that belong to a different component, or false if the blob has no such
// neighbor (e.g. it fills the whole grid).
func dominantNeighborLabel(grid *topology.Grid, compID []int, ownID int, comp []int, w int) (int64, bool) {
	h := grid.Height
	counts := map[int64]int{}
	inBounds := func(c, r int) bool { return c >= 0 && c < w && r >= 0 && r < h }

	for _, idx := range comp {
		c, r := idx%w, idx/w
		for _, n := range [4][2]int{{c + 1, r}, {c - 1, r}, {c, r + 1}, {c, r - 1}} {
			nc, nr := n[0], n[1]
			if !inBounds(nc, nr) {
				continue
			}
			if compID[nr*w+nc] == ownID {
				continue
			}
			if grid.NoData != nil && grid.At(nc, nr) == *grid.NoData {
				continue
			}
			counts[grid.At(nc, nr)]++
		}
	}

	var best int64
	bestCount := -1
	for label, count := range counts {
		if count > bestCount {
			best, bestCount = label, count
		}
	}
	return best, bestCount >= 0
}
