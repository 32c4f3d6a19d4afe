package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"profitradar/internal/cache"
	"profitradar/internal/models"
	"profitradar/internal/reconcile"
	"profitradar/internal/scraper"
	"profitradar/internal/util"
	"profitradar/internal/validation"
)

const (
	ModeIncremental = "incremental"
	ModeReplace     = "replace"
)

// SaleListHandler attaches sale lists to stored auctions, either posted or scraped on demand
type SaleListHandler struct {
	rec    *reconcile.Reconciler
	cache  cache.Cache
	source scraper.Source
}

func NewSaleListHandler(rec *reconcile.Reconciler, c cache.Cache, source scraper.Source) *SaleListHandler {
	return &SaleListHandler{rec: rec, cache: c, source: source}
}

// AttachSaleListRequest carries a sale list in the canonical shape, the older
// misspelled shape or the flat scraper car shape
type AttachSaleListRequest struct {
	ViewSalesLink string          `json:"viewSalesLink" binding:"required"`
	SaleList      json.RawMessage `json:"saleList" swaggertype:"array,object"`
	Mode          string          `json:"mode" example:"incremental" enums:"incremental,replace"`
}

// AttachSaleList merges or replaces an auction's sale list
// @Summary Attach a sale list to an auction
// @Description Incremental mode (default) merges by lot identity and skips the write when nothing changed; replace mode overwrites the list. Requires X-Admin-Key.
// @Tags sale-list
// @Accept json
// @Produce json
// @Param X-Admin-Key header string true "Admin key"
// @Param saleList body AttachSaleListRequest true "Sale list"
// @Success 200 {object} reconcile.Result
// @Failure 400 {object} map[string]interface{} "Invalid payload"
// @Failure 401 {object} map[string]interface{} "Missing or invalid admin key"
// @Router /api/sale-list [post]
func (h *SaleListHandler) AttachSaleList(c *gin.Context) {
	var req AttachSaleListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SafeErrorResponse(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	if err := validation.ValidateSalesLink(req.ViewSalesLink); err != nil {
		util.SafeErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	raw := bytes.TrimSpace(req.SaleList)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		util.SafeErrorResponse(c, http.StatusBadRequest, "saleList is required", nil)
		return
	}
	entries, err := models.DecodeSaleList(raw)
	if err != nil {
		util.SafeErrorResponse(c, http.StatusBadRequest, "saleList must be an array of sale list entries", err)
		return
	}
	if err := validation.ValidateSaleList(entries); err != nil {
		util.SafeErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx := c.Request.Context()
	switch req.Mode {
	case "", ModeIncremental:
		res, err := h.rec.IncrementalAttachSaleList(ctx, req.ViewSalesLink, entries)
		if err != nil {
			util.StoreErrorResponse(c, "Auction not found", err)
			return
		}
		if res.Written {
			h.invalidateAuction(ctx, req.ViewSalesLink)
		}
		c.JSON(http.StatusOK, res)

	case ModeReplace:
		affected, err := h.rec.AttachSaleList(ctx, req.ViewSalesLink, entries)
		if err != nil {
			util.StoreErrorResponse(c, "Auction not found", err)
			return
		}
		if affected > 0 {
			h.invalidateAuction(ctx, req.ViewSalesLink)
		}
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"viewSalesLink": req.ViewSalesLink,
			"affected":      affected,
			"numberOnSale":  len(entries),
		})

	default:
		util.SafeErrorResponse(c, http.StatusBadRequest, "mode must be incremental or replace", nil)
	}
}

// ScrapeSales scrapes one auction's sale list and reconciles it
// @Summary Scrape and reconcile a sale list
// @Description Fetches the sale list behind the link through the configured source and merges it incrementally. Requires X-Admin-Key; each link has a cooldown.
// @Tags sale-list
// @Produce json
// @Param X-Admin-Key header string true "Admin key"
// @Param link query string true "viewSalesLink of the auction"
// @Success 200 {object} reconcile.Result
// @Failure 400 {object} map[string]interface{} "Invalid link"
// @Failure 429 {object} map[string]interface{} "Scrape cooldown active"
// @Failure 502 {object} map[string]interface{} "Scrape failed"
// @Router /api/scrape/sales [post]
func (h *SaleListHandler) ScrapeSales(c *gin.Context) {
	link := c.Query("link")
	if err := validation.ValidateSalesLink(link); err != nil {
		util.SafeErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx := c.Request.Context()
	entries, err := h.source.SaleList(ctx, link)
	if err != nil {
		msg := "Failed to scrape sale list"
		if errors.Is(err, scraper.ErrBlocked) {
			msg = "Sale list page is behind a captcha"
		}
		util.SafeErrorResponse(c, http.StatusBadGateway, msg, err)
		return
	}

	res, err := h.rec.IncrementalAttachSaleList(ctx, link, entries)
	if err != nil {
		util.StoreErrorResponse(c, "Auction not found", err)
		return
	}
	if res.Written {
		h.invalidateAuction(ctx, link)
	}
	c.JSON(http.StatusOK, res)
}

func (h *SaleListHandler) invalidateAuction(ctx context.Context, link string) {
	_, month, err := h.rec.FindAuction(ctx, link)
	if err != nil {
		log.Printf("[WARN] cannot resolve month for %s to invalidate cache: %v", link, err)
		return
	}
	invalidate(ctx, h.cache, month.Month, month.Year)
}

// Pinger is implemented by the storage backends
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether storage answers
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string "status: ok"
// @Failure 503 {object} map[string]string "status: unavailable"
// @Router /api/health [get]
func Health(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			log.Printf("[ERROR] health check: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
