package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/heatmap/internal/server"
	"github.com/matzehuels/heatmap/pkg/cache"
	"github.com/matzehuels/heatmap/pkg/config"
)

// serveCommand starts the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var maxPoints int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render API over HTTP",
		Long: `Serve exposes rendering over HTTP:

  GET  /healthz
  GET  /v1/schemes
  POST /v1/renders           {"points": [[x, y], ...], "options": {...}}
  GET  /v1/renders/{id}[.png|.kml]

Render records are kept in the configured cache. With backend "none" an
in-memory cache is used so records stay retrievable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("max-points") {
				maxPoints = cfg.Server.MaxPoints
			}

			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			if cfg.Cache.Backend == config.BackendNone {
				runner.Cache = cache.NewMemoryCache()
			}
			defer runner.Close()

			printKeyValue("Listening", StyleHighlight.Render("http://"+displayAddr(addr)))
			printKeyValue("Cache", cfg.Cache.Backend)
			printKeyValue("Schemes", fmt.Sprintf("%d", len(c.registry().Names())))
			printNewline()

			srv := server.New(runner, c.registry(), server.Config{
				MaxPoints:       maxPoints,
				MaxCanvasPixels: cfg.Server.MaxCanvasPixels,
				MaxDotSize:      cfg.Server.MaxDotSize,
				Logger:          c.Logger,
			})
			err = srv.ListenAndServe(ctx, addr)
			if errors.Is(err, ctx.Err()) {
				printSuccess("Server stopped")
			}
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().IntVar(&maxPoints, "max-points", server.DefaultMaxPoints, "maximum points per render request")
	return cmd
}

// displayAddr fills in the host of a ":port" address.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
