package vector

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/geopolygonize/geopolygonize/internal/topology"
)

var (
	dbInstance *sql.DB
	dbOnce     sync.Once
	dbInitErr  error
)

// openSpatialDB returns the singleton DuckDB connection with the spatial
// extension loaded. A process opens one connection in all, on the first
// call: later calls return that connection (or its open error) whatever
// path they pass.
func openSpatialDB(path string) (*sql.DB, error) {
	dbOnce.Do(func() {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				dbInitErr = fmt.Errorf("creating %s: %w", dir, err)
				return
			}
		}
		dbInstance, dbInitErr = sql.Open("duckdb", path)
		if dbInitErr != nil {
			return
		}
		if _, err := dbInstance.Exec("INSTALL spatial; LOAD spatial;"); err != nil {
			dbInitErr = fmt.Errorf("loading spatial extension: %w", err)
		}
	})
	return dbInstance, dbInitErr
}

// DuckDBSink writes a label -> polygons map into a DuckDB table with a
// GEOMETRY column, via the spatial extension's ST_GeomFromText over a WKT
// encoding of each polygon (spec.md §4.8).
type DuckDBSink struct {
	Path  string
	Table string
}

// Write creates (if needed) s.Table and inserts one row per region polygon.
func (s DuckDBSink) Write(regions map[int64][]topology.RegionPolygon) error {
	table := s.Table
	if table == "" {
		table = "polygons"
	}

	db, err := openSpatialDB(s.Path)
	if err != nil {
		return err
	}

	if _, err := db.Exec(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (label BIGINT, geom GEOMETRY)", table,
	)); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}

	stmt, err := db.Prepare(fmt.Sprintf(
		"INSERT INTO %s (label, geom) VALUES (?, ST_GeomFromText(?))", table,
	))
	if err != nil {
		return fmt.Errorf("preparing insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for label, polys := range regions {
		for _, region := range polys {
			poly := orb.Polygon{region.Shell}
			poly = append(poly, region.Holes...)
			if _, err := stmt.Exec(label, wkt.MarshalString(poly)); err != nil {
				return fmt.Errorf("inserting label %d: %w", label, err)
			}
		}
	}
	return nil
}
