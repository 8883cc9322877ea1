package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/heatmap/pkg/buildinfo"
	"github.com/matzehuels/heatmap/pkg/cache"
	"github.com/matzehuels/heatmap/pkg/errors"
	"github.com/matzehuels/heatmap/pkg/heatmap"
	hmio "github.com/matzehuels/heatmap/pkg/io"
	"github.com/matzehuels/heatmap/pkg/overlay"
	"github.com/matzehuels/heatmap/pkg/palette"
	"github.com/matzehuels/heatmap/pkg/pipeline"
)

// swatchSize is the number of colors listed per scheme.
const swatchSize = 8

type schemeInfo struct {
	Name   string   `json:"name"`
	Colors []string `json:"colors"`
}

type schemesResponse struct {
	Default string       `json:"default"`
	Schemes []schemeInfo `json:"schemes"`
}

type renderRequest struct {
	// Points is a JSON point array in any form pkg/io accepts.
	Points  json.RawMessage  `json:"points"`
	Options pipeline.Options `json:"options"`
}

// record is the stored metadata of one render.
type record struct {
	ID         string              `json:"id"`
	Points     int                 `json:"points"`
	Bounds     heatmap.BoundingBox `json:"bounds"`
	Saturation float64             `json:"saturation"`
	Saturated  bool                `json:"saturated"`
	Cached     bool                `json:"cached"`
	CreatedAt  time.Time           `json:"created_at"`
	URLs       map[string]string   `json:"urls"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildinfo.Get().Version,
	})
}

func (s *Server) handleSchemes(w http.ResponseWriter, _ *http.Request) {
	resp := schemesResponse{Default: palette.DefaultScheme}
	for _, name := range s.palettes.Names() {
		p, err := s.palettes.Lookup(name)
		if err != nil {
			continue
		}
		info := schemeInfo{Name: name}
		for _, c := range p.Sample(swatchSize) {
			info.Colors = append(info.Colors, hexColor(c.R, c.G, c.B))
		}
		resp.Schemes = append(resp.Schemes, info)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateRender(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if len(bytes.TrimSpace(req.Points)) == 0 {
		writeError(w, errors.New(errors.ErrCodeEmptyInput, "no points supplied"))
		return
	}
	points, err := hmio.ReadJSON(bytes.NewReader(req.Points))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(points) > s.cfg.MaxPoints {
		writeError(w, errors.New(errors.ErrCodeInvalidParameter,
			"too many points: %d (limit %d)", len(points), s.cfg.MaxPoints))
		return
	}

	opts := req.Options
	opts.Input = ""
	opts.Logger = nil
	opts.KML = false
	opts.Workers = 0
	if err := s.checkLimits(opts); err != nil {
		writeError(w, err)
		return
	}
	id := uuid.NewString()

	ctx := r.Context()
	result, hit, err := s.runner.RenderWithCacheInfo(ctx, points, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	rec := record{
		ID:         id,
		Points:     len(points),
		Bounds:     result.Bounds,
		Saturation: result.Saturation,
		Saturated:  result.Saturated,
		Cached:     hit,
		CreatedAt:  time.Now().UTC(),
		URLs: map[string]string{
			pipeline.FormatPNG: "/v1/renders/" + id + ".png",
			pipeline.FormatKML: "/v1/renders/" + id + ".kml",
		},
	}
	// KML is per record; only the PNG goes through the artifact cache.
	var kml bytes.Buffer
	if err := overlay.Write(&kml, overlay.FromBounds(result.Bounds, id+".png")); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode overlay"))
		return
	}
	artifacts := map[string][]byte{
		pipeline.FormatPNG: result.Artifacts[pipeline.FormatPNG],
		pipeline.FormatKML: kml.Bytes(),
	}
	if err := s.storeRecord(r, rec, artifacts); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("render created", "id", id, "points", len(points), "cached", hit)
	w.Header().Set("Location", "/v1/renders/"+id)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) storeRecord(r *http.Request, rec record, artifacts map[string][]byte) error {
	ctx := r.Context()
	keyer, c := s.runner.Keyer, s.runner.Cache
	for format, data := range artifacts {
		if err := c.Set(ctx, keyer.RecordKey(rec.ID+"."+format), data, cache.TTLRecord); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "store %s artifact", format)
		}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode record")
	}
	if err := c.Set(ctx, keyer.RecordKey(rec.ID), data, cache.TTLRecord); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "store record")
	}
	return nil
}

// contentTypes maps artifact formats to response types.
var contentTypes = map[string]string{
	pipeline.FormatPNG: "image/png",
	pipeline.FormatKML: "application/vnd.google-earth.kml+xml",
}

func (s *Server) handleGetRender(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	ext := path.Ext(file)
	id := strings.TrimSuffix(file, ext)
	format := strings.TrimPrefix(ext, ".")

	if _, err := uuid.Parse(id); err != nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "render %q not found", file))
		return
	}
	key := s.runner.Keyer.RecordKey(id)
	ctype := "application/json"
	if format != "" {
		var ok bool
		if ctype, ok = contentTypes[format]; !ok {
			writeError(w, errors.New(errors.ErrCodeNotFound, "render %q not found", file))
			return
		}
		key = s.runner.Keyer.RecordKey(id + "." + format)
	}

	data, hit, err := s.runner.Cache.Get(r.Context(), key)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "load render"))
		return
	}
	if !hit {
		writeError(w, errors.New(errors.ErrCodeNotFound, "render %q not found", file))
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func hexColor(r, g, b uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{'#',
		digits[r>>4], digits[r&0xf],
		digits[g>>4], digits[g&0xf],
		digits[b>>4], digits[b&0xf],
	})
}

// checkLimits rejects canvas and dot sizes beyond the server limits before
// anything is allocated. Unset sizes are checked at their defaults.
func (s *Server) checkLimits(opts pipeline.Options) error {
	opts.SetRenderDefaults()
	if opts.DotSize > s.cfg.MaxDotSize {
		return errors.New(errors.ErrCodeInvalidParameter,
			"dot size %d exceeds the limit of %d", opts.DotSize, s.cfg.MaxDotSize)
	}
	if opts.Width > 0 && opts.Height > s.cfg.MaxCanvasPixels/opts.Width {
		return errors.New(errors.ErrCodeInvalidParameter,
			"canvas %dx%d exceeds the limit of %d pixels", opts.Width, opts.Height, s.cfg.MaxCanvasPixels)
	}
	return nil
}
