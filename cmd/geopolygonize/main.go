package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/geopolygonize/geopolygonize/internal/apiserver"
	"github.com/geopolygonize/geopolygonize/internal/config"
	"github.com/geopolygonize/geopolygonize/internal/raster"
	"github.com/geopolygonize/geopolygonize/internal/topology"
	"github.com/geopolygonize/geopolygonize/internal/vector"
)

// Options carries the flag values of whichever subcommand is running; each
// field is bound to its cobra flag explicitly below, flag help text and
// default included.
type Options struct {
	Input      string
	Output     string
	ConfigFile string
	DuckDB     string
	Host       string
	Port       int
}

func main() {
	root := &cobra.Command{
		Use:     "geopolygonize",
		Short:   "Converts a categorical label raster into gap-free vector polygons",
		Version: "0.1.0",
	}

	root.AddCommand(newConvertCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newSpecCmd())

	if err := root.Execute(); err != nil {
		os.Exit(classifyExitCode(err))
	}
}

func newConvertCmd() *cobra.Command {
	var opts Options
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Run the conversion pipeline once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts)
		},
	}
	cmd.Flags().StringVar(&opts.Input, "input", "", "Input ESRI ASCII Grid path")
	cmd.Flags().StringVar(&opts.Output, "output", "", "Output GeoJSON path")
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "YAML config file path")
	cmd.Flags().StringVar(&opts.DuckDB, "duckdb", "", "Optional DuckDB file to also write polygons to")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func runConvert(opts Options) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return &topology.Error{Kind: topology.Configuration, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return &topology.Error{Kind: topology.Configuration, Err: err}
	}

	grid, err := raster.ReadASCIIGrid(opts.Input)
	if err != nil {
		return err
	}
	raster.FillSmallBlobs(grid, cfg.MinBlobSize)

	logger := slog.Default()
	engine, err := topology.NewEngine(topology.EngineConfig{
		TileSize:             cfg.TileSize,
		Workers:              cfg.Workers,
		SimplificationWindow: cfg.SimplificationPixelWindow,
		MetersPerPixel:       cfg.MetersPerPixel,
		ChaikinIterations:    cfg.SmoothingIterations,
		Transforms:           cfg.Transforms,
		Logger:               logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	regions, err := engine.Run(ctx, grid)
	if err != nil {
		return err
	}

	if err := (vector.GeoJSONSink{Path: opts.Output}).Write(regions); err != nil {
		return &topology.Error{Kind: topology.InputShape, Err: err}
	}
	if opts.DuckDB != "" {
		if err := (vector.DuckDBSink{Path: opts.DuckDB}).Write(regions); err != nil {
			return &topology.Error{Kind: topology.InputShape, Err: err}
		}
	}

	logger.Info("conversion complete", "labels", len(regions), "output", opts.Output)
	return nil
}

func newServeCmd() *cobra.Command {
	var opts Options
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
	cmd.Flags().StringVar(&opts.Host, "host", "0.0.0.0", "Host to bind to")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 8087, "Port to listen on")
	return cmd
}

func runServe(opts Options) error {
	srv, err := apiserver.New(apiserver.Config{Host: opts.Host, Port: opts.Port})
	if err != nil {
		return err
	}
	handler, err := srv.Handler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	fmt.Printf("geopolygonize API server listening on %s\n", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
	return nil
}

func newSpecCmd() *cobra.Command {
	var useYAML bool
	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Export the serve command's OpenAPI document",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := apiserver.New(apiserver.Config{Host: "0.0.0.0", Port: 8087})
			if err != nil {
				return err
			}
			doc := srv.OpenAPI()

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(doc)
			} else {
				output, err = json.MarshalIndent(doc, "", "  ")
			}
			if err != nil {
				return err
			}
			fmt.Println(string(output))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&useYAML, "yaml", "y", false, "Output as YAML instead of JSON")
	return cmd
}

// classifyExitCode maps a returned error to the process exit code of
// spec.md §6: a *topology.Error carries its own Kind, anything else is
// treated as a generic failure.
func classifyExitCode(err error) int {
	var topoErr *topology.Error
	if errors.As(err, &topoErr) {
		return topoErr.Kind.ExitCode()
	}
	return 1
}
