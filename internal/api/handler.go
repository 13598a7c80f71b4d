package api

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/schema"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-quake-map/internal/decorate"
	"github.com/mr1hm/go-quake-map/internal/magnitude"
	"github.com/mr1hm/go-quake-map/internal/mapview"
	"github.com/mr1hm/go-quake-map/internal/repository"
	"github.com/mr1hm/go-quake-map/internal/stream"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

const (
	defaultArchiveLimit = 20
	maxArchiveLimit     = 500
)

// Refresher reloads both overlays of target on demand.
type Refresher interface {
	Refresh(ctx context.Context, target *mapview.Map) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	target      *mapview.Map
	repo        repository.EarthquakeRepository
	decorator   *decorate.Decorator
	broadcaster *stream.Broadcaster
	refresher   Refresher
	decoder     *schema.Decoder
}

// NewHandler serves the map held by target. repo, broadcaster and refresher may
// be nil, in which case the archive, live stream and refresh routes answer 503.
func NewHandler(target *mapview.Map, repo repository.EarthquakeRepository, decorator *decorate.Decorator, broadcaster *stream.Broadcaster, refresher Refresher) *Handler {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &Handler{
		target:      target,
		repo:        repo,
		decorator:   decorator,
		broadcaster: broadcaster,
		refresher:   refresher,
		decoder:     decoder,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(pageTemplate)

	r.GET("/", h.index)
	r.GET("/api/map", h.getMap)
	r.GET("/api/layers/earthquakes", h.getOverlay(mapview.OverlayEarthquakes))
	r.GET("/api/layers/plates", h.getOverlay(mapview.OverlayPlates))
	r.GET("/api/legend", h.getLegend)
	r.GET("/api/classify", h.classify)
	r.GET("/api/earthquakes", h.getEarthquakes)
	r.GET("/api/earthquakes/stream", h.streamEarthquakes)
	r.POST("/api/refresh", h.refresh)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *Handler) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"Title": "Earthquakes and Tectonic Plates",
	})
}

func (h *Handler) getMap(c *gin.Context) {
	c.JSON(http.StatusOK, h.target.Describe())
}

func (h *Handler) getOverlay(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fc, err := h.target.Overlay(name)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		writeGeoJSON(c, fc)
	}
}

func (h *Handler) getLegend(c *gin.Context) {
	c.JSON(http.StatusOK, h.target.Describe().Legend)
}

func (h *Handler) classify(c *gin.Context) {
	raw := c.Query("magnitude")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "magnitude is required"})
		return
	}

	mag, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "magnitude must be a number"})
		return
	}

	class, err := magnitude.Classify(mag)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"magnitude": mag,
		"tier":      class.Bucket.Tier,
		"color":     class.Color,
		"radius":    class.Radius,
	})
}

type archiveQuery struct {
	MinMagnitude *float64 `schema:"min_magnitude"`
	Since        string   `schema:"since"` // 2006-01-02 or RFC3339
	Limit        int      `schema:"limit"`
	Offset       int      `schema:"offset"`
}

func (q archiveQuery) filter() (repository.Filter, error) {
	filter := repository.Filter{
		Limit:        defaultArchiveLimit,
		MinMagnitude: q.MinMagnitude,
	}

	if q.Limit > 0 && q.Limit <= maxArchiveLimit {
		filter.Limit = q.Limit
	}
	if q.Offset > 0 {
		filter.Offset = q.Offset
	}

	if q.Since != "" {
		t, err := time.Parse("2006-01-02", q.Since)
		if err != nil {
			t, err = time.Parse(time.RFC3339, q.Since)
		}
		if err != nil {
			return repository.Filter{}, err
		}
		filter.Since = &t
	}

	return filter, nil
}

func (h *Handler) getEarthquakes(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive disabled"})
		return
	}

	var q archiveQuery
	if err := h.decoder.Decode(&q, c.Request.URL.Query()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}
	filter, err := q.filter()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be YYYY-MM-DD or RFC3339"})
		return
	}

	quakes, err := h.repo.ListEarthquakes(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch earthquakes",
		})
		return
	}

	writeGeoJSON(c, h.decorator.Layer(quakes))
}

func (h *Handler) streamEarthquakes(c *gin.Context) {
	if h.broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live stream disabled"})
		return
	}

	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case dq, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("earthquake", dq.Feature())
			return true
		}
	})
}

// refresh reloads both feeds now. Feed bodies are cached per refresh window, so
// repeated requests within a window do not hit the upstream feeds again.
func (h *Handler) refresh(c *gin.Context) {
	if h.refresher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh disabled"})
		return
	}

	if err := h.refresher.Refresh(c.Request.Context(), h.target); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  err.Error(),
			"layers": h.layerCounts(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"layers": h.layerCounts()})
}

func (h *Handler) layerCounts() gin.H {
	view := h.target.Describe()
	layers := make(gin.H, len(view.Overlays))
	for _, o := range view.Overlays {
		layers[o.Name] = o.Features
	}
	return layers
}

func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": "ok", "layers": h.layerCounts()}

	if p, ok := h.repo.(pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			resp["status"] = "degraded"
			resp["archive"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp["archive"] = "ok"
	}
	c.JSON(http.StatusOK, resp)
}
