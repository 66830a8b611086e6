package analytics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler handles analytics HTTP requests.
type Handler struct {
	store          *Store
	collectLimiter *rateLimiter
}

// NewHandler creates a new analytics handler. The collect endpoint is
// rate-limited to 60 requests per IP per minute.
func NewHandler(store *Store) *Handler {
	return &Handler{
		store:          store,
		collectLimiter: newRateLimiter(60, time.Minute),
	}
}

// RegisterRoutes attaches the analytics endpoints to the Echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/analytics/collect", h.Collect)
	e.GET("/api/analytics/stats", h.Stats)
}

// CollectRequest is the expected request body for the collect endpoint.
type CollectRequest struct {
	Path     string `json:"path"`
	Referrer string `json:"referrer"`
}

const (
	maxPathLen     = 2048
	maxReferrerLen = 2048
)

func validateCollectRequest(req *CollectRequest) error {
	if req.Path == "" {
		return fmt.Errorf("path is required")
	}
	if len(req.Path) > maxPathLen {
		return fmt.Errorf("path exceeds maximum length of %d", maxPathLen)
	}
	if len(req.Referrer) > maxReferrerLen {
		return fmt.Errorf("referrer exceeds maximum length of %d", maxReferrerLen)
	}
	return nil
}

// Collect records one page view. Failures to persist are logged rather
// than surfaced; a lost data point must never break the page.
func (h *Handler) Collect(c echo.Context) error {
	if !h.collectLimiter.allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}

	// Honor Do Not Track.
	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request")
	}
	if err := validateCollectRequest(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request")
	}

	userAgent := c.Request().UserAgent()
	ip := c.RealIP()
	now := time.Now().UTC()

	if IsBot(userAgent) {
		bv := &BotVisit{
			BotName:   ExtractBotName(userAgent),
			IPHash:    HashIP(ip),
			UserAgent: userAgent,
			Path:      req.Path,
			Timestamp: now,
		}
		if err := h.store.SaveBotVisit(bv); err != nil {
			c.Logger().Errorf("save bot visit: %v", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	browser, os, device := ParseUserAgent(userAgent)
	visit := &Visit{
		VisitorID: GenerateVisitorID(ip, userAgent),
		IPHash:    HashIP(ip),
		Browser:   browser,
		OS:        os,
		Device:    device,
		Path:      req.Path,
		Referrer:  CleanReferrer(req.Referrer),
		Timestamp: now,
	}
	if err := h.store.SaveVisit(visit); err != nil {
		c.Logger().Errorf("save visit: %v", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// StatsResponse is the JSON response for the stats endpoint.
type StatsResponse struct {
	Stats      *Stats `json:"stats"`
	Realtime   int    `json:"realtime_visitors"`
	PeriodDays int    `json:"period_days"`
}

// Stats returns aggregated statistics. The period query parameter is a
// number of days, defaulting to 30.
func (h *Handler) Stats(c echo.Context) error {
	days := 30
	if p := c.QueryParam("period"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 365 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid period")
		}
		days = n
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	stats, err := h.store.GetStats(from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Unable to load stats").SetInternal(err)
	}
	realtime, err := h.store.GetRealtimeVisitors()
	if err != nil {
		c.Logger().Errorf("realtime visitors: %v", err)
	}

	return c.JSON(http.StatusOK, StatsResponse{
		Stats:      stats,
		Realtime:   realtime,
		PeriodDays: days,
	})
}
