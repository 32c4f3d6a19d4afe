package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"profitradar/internal/cache"
	"profitradar/internal/models"
	"profitradar/internal/reconcile"
	"profitradar/internal/util"
	"profitradar/internal/validation"
)

// CalendarHandler serves stored calendar months, auctions and dashboard figures
type CalendarHandler struct {
	rec   *reconcile.Reconciler
	cache cache.Cache
	now   func() time.Time
}

func NewCalendarHandler(rec *reconcile.Reconciler, c cache.Cache) *CalendarHandler {
	return &CalendarHandler{rec: rec, cache: c, now: time.Now}
}

// SaveCalendarRequest carries one scraped calendar month
type SaveCalendarRequest struct {
	Month    string           `json:"month" binding:"required" example:"February"`
	Auctions []models.Auction `json:"auctions"`
}

// GetCalendar returns one stored month
// @Summary Get a calendar month
// @Description Returns the stored auctions for a month, including their sale lists. Defaults to the current month.
// @Tags calendar
// @Produce json
// @Param month query string false "Month name, full or abbreviated" example(February)
// @Param year query int false "Year" example(2026)
// @Success 200 {object} models.CalendarMonth
// @Failure 400 {object} map[string]interface{} "Invalid month or year"
// @Failure 404 {object} map[string]interface{} "Calendar not found"
// @Router /api/calendar [get]
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
	month, year, ok := h.monthYear(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	key := cache.CalendarKey(month, year)
	var doc models.CalendarMonth
	if hit, err := h.cache.Get(ctx, key, &doc); err != nil {
		log.Printf("[WARN] cache read %s: %v", key, err)
	} else if hit {
		c.Header("X-Cache", "HIT")
		c.JSON(http.StatusOK, doc)
		return
	}

	stored, err := h.rec.GetCalendarMonth(ctx, month, year)
	if err != nil {
		util.StoreErrorResponse(c, "Calendar not found", err)
		return
	}
	h.cacheSet(ctx, key, stored)

	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, stored)
}

// ListMonths lists stored months
// @Summary List stored calendar months
// @Description Returns one summary per stored month, newest first
// @Tags calendar
// @Produce json
// @Success 200 {object} map[string]interface{} "months: []models.CalendarSummary"
// @Router /api/calendar/months [get]
func (h *CalendarHandler) ListMonths(c *gin.Context) {
	summaries, err := h.rec.ListCalendarMonths(c.Request.Context())
	if err != nil {
		util.StoreErrorResponse(c, "No calendars stored", err)
		return
	}
	if summaries == nil {
		summaries = []models.CalendarSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"months": summaries, "count": len(summaries)})
}

// SaveCalendar replaces a stored month with a freshly scraped one
// @Summary Save a scraped calendar month
// @Description Fully replaces the month document. The year is inferred from the auctions' sale dates. Requires X-Admin-Key.
// @Tags calendar
// @Accept json
// @Produce json
// @Param X-Admin-Key header string true "Admin key"
// @Param calendar body SaveCalendarRequest true "Calendar month"
// @Success 200 {object} reconcile.SaveResult
// @Failure 400 {object} map[string]interface{} "Invalid payload"
// @Failure 401 {object} map[string]interface{} "Missing or invalid admin key"
// @Router /api/calendar [post]
func (h *CalendarHandler) SaveCalendar(c *gin.Context) {
	var req SaveCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SafeErrorResponse(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	month, err := validation.NormalizeMonth(req.Month)
	if err != nil {
		util.SafeErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := validation.ValidateAuctions(req.Auctions); err != nil {
		util.SafeErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx := c.Request.Context()
	res, err := h.rec.SaveCalendarMonth(ctx, month, req.Auctions)
	if err != nil {
		util.StoreErrorResponse(c, "Calendar not found", err)
		return
	}
	invalidate(ctx, h.cache, res.Month, res.Year)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"month":   res.Month,
		"year":    res.Year,
		"total":   res.Total,
	})
}

// GetAuction looks an auction up by its sales link
// @Summary Get an auction by link
// @Tags calendar
// @Produce json
// @Param link query string true "viewSalesLink of the auction"
// @Success 200 {object} map[string]interface{} "auction, month, year"
// @Failure 400 {object} map[string]interface{} "Invalid link"
// @Failure 404 {object} map[string]interface{} "Auction not found"
// @Router /api/auctions [get]
func (h *CalendarHandler) GetAuction(c *gin.Context) {
	link := c.Query("link")
	if err := validation.ValidateSalesLink(link); err != nil {
		util.SafeErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	auction, month, err := h.rec.FindAuction(c.Request.Context(), link)
	if err != nil {
		util.StoreErrorResponse(c, "Auction not found", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"auction": auction,
		"month":   month.Month,
		"year":    month.Year,
	})
}

// Dashboard returns figures computed from stored data
// @Summary Dashboard metrics
// @Description Auctions this month, lots at auction and lots with buy-it-now, computed from the stored month
// @Tags dashboard
// @Produce json
// @Param month query string false "Month name" example(February)
// @Param year query int false "Year" example(2026)
// @Success 200 {object} models.DashboardMetrics
// @Router /api/dashboard [get]
func (h *CalendarHandler) Dashboard(c *gin.Context) {
	month, year, ok := h.monthYear(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	key := cache.DashboardKey(month, year)
	var metrics models.DashboardMetrics
	if hit, err := h.cache.Get(ctx, key, &metrics); err == nil && hit {
		c.JSON(http.StatusOK, metrics)
		return
	}

	metrics, err := h.rec.Dashboard(ctx, month, year)
	if err != nil {
		util.StoreErrorResponse(c, "No calendars stored", err)
		return
	}
	h.cacheSet(ctx, key, metrics)
	c.JSON(http.StatusOK, metrics)
}

// monthYear reads month and year query parameters, defaulting to the current month
func (h *CalendarHandler) monthYear(c *gin.Context) (string, int, bool) {
	now := h.now()
	month := now.Month().String()
	year := now.Year()

	if raw := c.Query("month"); raw != "" {
		m, err := validation.NormalizeMonth(raw)
		if err != nil {
			util.SafeErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
			return "", 0, false
		}
		month = m
	}
	if raw := c.Query("year"); raw != "" {
		y, err := validation.ParseYear(raw)
		if err != nil {
			util.SafeErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
			return "", 0, false
		}
		year = y
	}
	return month, year, true
}

func (h *CalendarHandler) cacheSet(ctx context.Context, key string, value any) {
	if err := h.cache.Set(ctx, key, value); err != nil {
		log.Printf("[WARN] cache write %s: %v", key, err)
	}
}

// invalidate drops the cached read models of one month
func invalidate(ctx context.Context, c cache.Cache, month string, year int) {
	for _, key := range []string{cache.CalendarKey(month, year), cache.DashboardKey(month, year)} {
		if err := c.Delete(ctx, key); err != nil {
			log.Printf("[WARN] cache invalidate %s: %v", key, err)
		}
	}
}
