package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to Logger at debug level.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks logging to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{Logger: logger}
}

// Install registers h for render, cache and HTTP events.
func (h *LogHooks) Install() {
	SetRenderHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnLoadStart(_ context.Context, source string) {
	h.Logger.Debug("load start", "source", source)
}

func (h *LogHooks) OnLoadComplete(_ context.Context, source string, points int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("load failed", "source", source, "err", err)
		return
	}
	h.Logger.Debug("load complete", "source", source, "points", points, "took", d)
}

func (h *LogHooks) OnRenderStart(_ context.Context, points int, scheme string) {
	h.Logger.Debug("render start", "points", points, "scheme", scheme)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, points int, saturation float64, d time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("render failed", "points", points, "err", err)
		return
	}
	h.Logger.Debug("render complete", "points", points, "saturation", saturation, "took", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, route string) {
	h.Logger.Debug("request", "method", method, "route", route)
}

func (h *LogHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.Logger.Debug("response", "method", method, "route", route, "status", status, "took", d)
}

var (
	_ RenderHooks = (*LogHooks)(nil)
	_ CacheHooks  = (*LogHooks)(nil)
	_ HTTPHooks   = (*LogHooks)(nil)
)
