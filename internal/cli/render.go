package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/heatmap/pkg/errors"
	hmio "github.com/matzehuels/heatmap/pkg/io"
	"github.com/matzehuels/heatmap/pkg/overlay"
	"github.com/matzehuels/heatmap/pkg/pipeline"
)

// renderFlags holds the command-line flags for the render command. Render
// parameters left unset fall back to the config file.
type renderFlags struct {
	output  string // PNG path, "-" for stdout
	kml     string // KML overlay path
	area    string // minX,minY,maxX,maxY
	dotSize int
	opacity int
	width   int
	height  int
	scheme  string
	combine string
	alpha   string
	workers int
	noCache bool
	refresh bool
	points  string // JSON copy of the loaded points
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render <points>",
		Short: "Render a point file or URL to a PNG heatmap",
		Long: `Render reads points from a CSV, TSV, JSON, GeoJSON or KML file, an http(s)
URL or stdin ("-") and writes a transparent PNG.

With --kml the image is written next to the KML file (same name, .png) unless
--output names it, and the KML references it as a ground overlay. Points are
then read as longitude (x) and latitude (y).`,
		Example: `  heatmap render visits.csv
  heatmap render visits.csv -o visits.png --dotsize 60 --scheme fire
  heatmap render https://example.com/quakes.geojson --kml quakes.kml --area -180,-90,180,90`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.renderOptions(cmd, args[0], flags)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), opts, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "", `output PNG (default: input name with .png, "-" for stdout)`)
	f.StringVar(&flags.kml, "kml", "", "also write a KML ground overlay to this path")
	f.StringVar(&flags.area, "area", "", "bounding box override: minX,minY,maxX,maxY")
	f.IntVarP(&flags.dotSize, "dotsize", "d", 0, "dot diameter in pixels")
	f.IntVar(&flags.opacity, "opacity", 0, "opacity of non-empty pixels (0-255)")
	f.IntVarP(&flags.width, "width", "W", 0, "canvas width in pixels")
	f.IntVarP(&flags.height, "height", "H", 0, "canvas height in pixels")
	f.StringVarP(&flags.scheme, "scheme", "s", "", "color scheme (see 'heatmap schemes')")
	f.StringVar(&flags.combine, "combine", "", "density combine rule: min, multiply, additive")
	f.StringVar(&flags.alpha, "alpha", "", "alpha mode: constant, scaled")
	f.IntVarP(&flags.workers, "workers", "j", 0, "render goroutines (-1 for one per CPU)")
	f.BoolVar(&flags.noCache, "no-cache", false, "disable the artifact cache")
	f.BoolVar(&flags.refresh, "refresh", false, "ignore cached sources and artifacts")
	f.StringVar(&flags.points, "save-points", "", "also write the loaded points as JSON to this path")

	cmd.RegisterFlagCompletionFunc("scheme", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return c.registry().Names(), cobra.ShellCompDirectiveNoFileComp
	})
	cmd.RegisterFlagCompletionFunc("combine", cobra.FixedCompletions(
		[]string{"min", "multiply", "additive"}, cobra.ShellCompDirectiveNoFileComp))
	cmd.RegisterFlagCompletionFunc("alpha", cobra.FixedCompletions(
		[]string{"constant", "scaled"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// renderOptions merges config defaults with the flags the user set.
func (c *CLI) renderOptions(cmd *cobra.Command, input string, flags renderFlags) (pipeline.Options, error) {
	opts := c.renderDefaults()
	opts.Input = input
	opts.Refresh = flags.refresh

	set := cmd.Flags().Changed
	if set("dotsize") {
		opts.DotSize = flags.dotSize
	}
	if set("opacity") {
		opts.Opacity = &flags.opacity
	}
	if set("width") {
		opts.Width = flags.width
	}
	if set("height") {
		opts.Height = flags.height
	}
	if set("scheme") {
		opts.Scheme = flags.scheme
	}
	if set("combine") {
		opts.Combine = flags.combine
	}
	if set("alpha") {
		opts.Alpha = flags.alpha
	}
	if set("workers") {
		opts.Workers = flags.workers
	}
	if flags.area != "" {
		area, err := pipeline.ParseArea(flags.area)
		if err != nil {
			return opts, err
		}
		opts.Area = area
	}

	if flags.kml != "" {
		opts.KML = true
		href, err := kmlHref(flags.kml, pngOutputPath(input, flags))
		if err != nil {
			return opts, err
		}
		opts.KMLHref = href
	}
	return opts, opts.ValidateForRender()
}

// pngOutputPath returns where the image goes.
func pngOutputPath(input string, flags renderFlags) string {
	switch {
	case flags.output != "":
		return flags.output
	case flags.kml != "":
		return overlay.PNGPath(flags.kml)
	case input == "-" || errors.IsURL(input):
		return "heatmap.png"
	default:
		return strings.TrimSuffix(input, filepath.Ext(input)) + ".png"
	}
}

// kmlHref returns the image reference for a KML file at kmlPath: relative to
// the KML directory when possible.
func kmlHref(kmlPath, pngPath string) (string, error) {
	if pngPath == "-" {
		return "", fmt.Errorf("--kml needs the image in a file, not on stdout")
	}
	absKML, err := filepath.Abs(kmlPath)
	if err != nil {
		return "", err
	}
	absPNG, err := filepath.Abs(pngPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(filepath.Dir(absKML), absPNG)
	if err != nil {
		return absPNG, nil
	}
	return filepath.ToSlash(rel), nil
}

func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, flags renderFlags) error {
	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", opts.Input))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	pngPath := pngOutputPath(opts.Input, flags)
	if err := writeOutput(pngPath, result.Artifacts[pipeline.FormatPNG]); err != nil {
		return err
	}
	if pngPath == "-" {
		return nil
	}

	printSuccess("Heatmap rendered")
	printFile(pngPath)
	if opts.KML {
		if err := hmio.WriteFile(flags.kml, result.Artifacts[pipeline.FormatKML]); err != nil {
			return fmt.Errorf("write %s: %w", flags.kml, err)
		}
		printFile(flags.kml)
	}
	if flags.points != "" {
		if err := hmio.ExportJSON(result.Points, flags.points); err != nil {
			return fmt.Errorf("write %s: %w", flags.points, err)
		}
		printFile(flags.points)
	}
	printStats(result.Stats.PointCount, result.Saturation, result.CacheInfo.RenderHit)
	if !errors.IsURL(opts.Input) && opts.Input != "-" {
		printNewline()
		printNextStep("Explore schemes interactively", "heatmap preview "+opts.Input)
	}
	return nil
}

// writeOutput writes data to path, or to stdout for "-".
func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := hmio.WriteFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

