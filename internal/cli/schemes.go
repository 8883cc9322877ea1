package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/heatmap/pkg/palette"
)

// schemesCommand lists the registered color schemes with swatches.
func (c *CLI) schemesCommand() *cobra.Command {
	var cells int
	var plain bool

	cmd := &cobra.Command{
		Use:   "schemes",
		Short: "List color schemes",
		Long: `List the built-in color schemes and any [[scheme]] entries from the config
file. Swatches run from the coldest color (no density) to the hottest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cells < 2 {
				return fmt.Errorf("--cells must be at least 2, got %d", cells)
			}
			reg := c.registry()
			if plain {
				for _, name := range reg.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			out, err := schemesTable(reg, cells)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&cells, "cells", 32, "swatch width in terminal cells")
	cmd.Flags().BoolVar(&plain, "plain", false, "print names only")
	return cmd
}

// schemesTable renders one row per scheme.
func schemesTable(p palette.Provider, cells int) (string, error) {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	var rows [][]string
	for _, name := range p.Names() {
		pal, err := p.Lookup(name)
		if err != nil {
			return "", err
		}
		label := name
		if name == palette.DefaultScheme {
			label += StyleDim.Render(" (default)")
		}
		rows = append(rows, []string{label, swatch(pal.Sample(cells), 1)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Scheme", "cold → hot").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return StyleHighlight.PaddingRight(1)
			}
			return lipgloss.NewStyle()
		})
	return t.Render(), nil
}
