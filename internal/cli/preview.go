package cli

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/image/draw"

	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/heatmap"
	"github.com/matzehuels/heatmap/pkg/overlay"
)

const (
	halfBlock      = "▀"
	previewChrome  = 3 // title and help lines
	minDotSize     = 2
	dotSizeStep    = 1.25
	previewMinCols = 8
)

// previewBackground is the color transparent pixels are composited onto.
var previewBackground = color.RGBA{R: 0x1c, G: 0x1c, B: 0x1c, A: 0xff}

var combineRules = []heatmap.CombineRule{heatmap.CombineMin, heatmap.CombineMultiply, heatmap.CombineAdditive}

// previewCommand creates the interactive preview command.
func (c *CLI) previewCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "preview <points>",
		Short: "Preview a heatmap in the terminal",
		Long: `Preview renders the points and draws the image with half-block characters.

Keys:
  ←/→ h/l   previous/next color scheme
  +/-       grow/shrink the dots
  c         cycle the combine rule
  s         save the image and a KML overlay to the current directory
  q esc     quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.renderOptions(cmd, args[0], flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			runner, err := c.newRunner(ctx, flags.noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()
			opts.Logger = c.Logger

			prog := newProgress(c.Logger)
			points, err := runner.Load(ctx, opts)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Loaded %d points from %s", len(points), args[0]))
			cfg, err := opts.RenderConfig()
			if err != nil {
				return err
			}

			m := newPreviewModel(runner.Engine, points, cfg, args[0])
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.area, "area", "", "bounding box override: minX,minY,maxX,maxY")
	f.IntVarP(&flags.dotSize, "dotsize", "d", 0, "initial dot diameter in pixels")
	f.IntVar(&flags.opacity, "opacity", 0, "opacity of non-empty pixels (0-255)")
	f.IntVarP(&flags.width, "width", "W", 0, "canvas width in pixels")
	f.IntVarP(&flags.height, "height", "H", 0, "canvas height in pixels")
	f.StringVarP(&flags.scheme, "scheme", "s", "", "initial color scheme")
	f.StringVar(&flags.combine, "combine", "", "initial combine rule")
	f.StringVar(&flags.alpha, "alpha", "", "alpha mode: constant, scaled")
	f.BoolVar(&flags.noCache, "no-cache", false, "disable the source cache")
	return cmd
}

// =============================================================================
// previewModel - Interactive heatmap preview
// =============================================================================

type previewModel struct {
	engine  *heatmap.Engine
	points  []heatmap.Point
	cfg     heatmap.Config
	source  string
	schemes []string
	saveDir string

	cols, rows int

	cells     string
	result    *heatmap.Result
	took      time.Duration
	err       error
	rendering bool
	pending   bool
	notice    string
}

type renderedMsg struct {
	cfg    heatmap.Config
	result *heatmap.Result
	took   time.Duration
	err    error
}

func newPreviewModel(engine *heatmap.Engine, points []heatmap.Point, cfg heatmap.Config, source string) previewModel {
	return previewModel{
		engine:  engine,
		points:  points,
		cfg:     cfg,
		source:  source,
		schemes: engine.Palettes().Names(),
		saveDir: ".",
		cols:    80,
		rows:    24,

		rendering: true,
	}
}

func (m previewModel) Init() tea.Cmd {
	return m.render()
}

// render renders the current configuration off the event loop.
func (m *previewModel) render() tea.Cmd {
	m.rendering = true
	engine, points, cfg := m.engine, m.points, m.cfg
	return func() tea.Msg {
		start := time.Now()
		res, err := engine.Render(points, cfg)
		return renderedMsg{cfg: cfg, result: res, took: time.Since(start), err: err}
	}
}

// rerender starts a render, or queues one behind the render in flight.
func (m *previewModel) rerender() tea.Cmd {
	if m.rendering {
		m.pending = true
		return nil
	}
	return m.render()
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l":
			m.cfg.Scheme = m.nextScheme(1)
			return m, m.rerender()
		case "left", "h":
			m.cfg.Scheme = m.nextScheme(-1)
			return m, m.rerender()
		case "+", "=":
			m.cfg.DotSize = int(float64(m.cfg.DotSize)*dotSizeStep) + 1
			return m, m.rerender()
		case "-", "_":
			m.cfg.DotSize = max(minDotSize, int(float64(m.cfg.DotSize)/dotSizeStep))
			return m, m.rerender()
		case "c":
			m.cfg.Combine = nextCombine(m.cfg.Combine)
			return m, m.rerender()
		case "s":
			m.notice = m.save()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		if m.result != nil {
			m.cells = m.rasterize(m.result.Image)
		}
	case renderedMsg:
		m.rendering = false
		m.notice = ""
		m.took = msg.took
		m.err = msg.err
		if msg.err == nil {
			m.result = msg.result
			m.cells = m.rasterize(msg.result.Image)
		}
		if m.pending {
			m.pending = false
			return m, m.render()
		}
	}
	return m, nil
}

func (m previewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("heatmap preview"))
	b.WriteString(StyleDim.Render(" · " + m.source))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styleIconError.Render(iconError) + " " + m.err.Error())
	} else {
		b.WriteString(m.cells)
	}
	b.WriteString("\n")

	status := fmt.Sprintf("%s · dot %dpx · %s", m.cfg.Scheme, m.cfg.DotSize, m.cfg.Combine)
	if m.result != nil {
		status += fmt.Sprintf(" · %.1f%% saturated · %s", m.result.Saturation*100, m.took.Round(time.Millisecond))
	}
	if m.rendering {
		status += " · rendering…"
	}
	if m.notice != "" {
		status += " · " + m.notice
	}
	b.WriteString(StyleDim.Render(status + "   ←/→ scheme  +/- dot  c combine  s save  q quit"))
	return b.String()
}

func (m previewModel) nextScheme(step int) string {
	if len(m.schemes) == 0 {
		return m.cfg.Scheme
	}
	idx := 0
	for i, name := range m.schemes {
		if name == m.cfg.Scheme {
			idx = i
			break
		}
	}
	n := len(m.schemes)
	return m.schemes[((idx+step)%n+n)%n]
}

// save writes the displayed render as <source>-<scheme>.png plus a KML
// overlay and returns a status notice.
func (m previewModel) save() string {
	if m.result == nil {
		return "nothing rendered yet"
	}
	stem := "heatmap"
	if m.source != "-" && !errors.IsURL(m.source) {
		stem = strings.TrimSuffix(filepath.Base(m.source), filepath.Ext(m.source))
	}
	kmlPath := filepath.Join(m.saveDir, fmt.Sprintf("%s-%s.kml", stem, m.result.Config.Scheme))
	pngPath, err := overlay.Export(m.result, kmlPath)
	if err != nil {
		return "save failed: " + errors.UserMessage(err)
	}
	return "saved " + pngPath
}

func nextCombine(r heatmap.CombineRule) heatmap.CombineRule {
	for i, rule := range combineRules {
		if rule == r {
			return combineRules[(i+1)%len(combineRules)]
		}
	}
	return combineRules[0]
}

func (m previewModel) rasterize(img image.Image) string {
	w, h := fitCells(img.Bounds().Dx(), img.Bounds().Dy(), m.cols, (m.rows-previewChrome)*2)
	return rasterToCells(img, w, h)
}

// fitCells returns the largest pixel size with the aspect ratio of a w×h
// image that fits in cols columns and pixelRows half-block rows.
func fitCells(w, h, cols, pixelRows int) (int, int) {
	cols = max(cols, previewMinCols)
	pixelRows = max(pixelRows, 2)
	scale := min(float64(cols)/float64(w), float64(pixelRows)/float64(h))
	return max(1, int(float64(w)*scale)), max(2, int(float64(h)*scale)&^1)
}

// rasterToCells scales img to w×h pixels over the preview background and
// encodes pixel pairs as half blocks, top pixel in the foreground.
func rasterToCells(img image.Image, w, h int) string {
	h += h & 1
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(previewBackground), image.Point{}, draw.Src)
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var b strings.Builder
	for y := 0; y < h; y += 2 {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < w; x++ {
			top := dst.RGBAAt(x, y)
			bottom := dst.RGBAAt(x, y+1)
			b.WriteString(lipgloss.NewStyle().
				Foreground(hexColor(top)).
				Background(hexColor(bottom)).
				Render(halfBlock))
		}
	}
	return b.String()
}
