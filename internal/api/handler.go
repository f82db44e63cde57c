package api

import (
	"net/http"
	"strconv"
	"time"

	"pricewatch-service/internal/ingest"
	"pricewatch-service/internal/models"
	"pricewatch-service/internal/service"
	"pricewatch-service/internal/store"
	"pricewatch-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	engine *service.Engine
	store  *store.Store
	buffer *ingest.Buffer
}

// NewHandler creates a new HTTP handler
func NewHandler(engine *service.Engine, st *store.Store, buffer *ingest.Buffer) *Handler {
	return &Handler{
		engine: engine,
		store:  st,
		buffer: buffer,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/listings", h.ingestListings)
		v1.POST("/runs", h.triggerRun)
		v1.GET("/changes", h.getChanges)
		v1.POST("/changes/notified", h.markNotified)
		v1.GET("/summary", h.getSummary)
		v1.GET("/products/:id/comparison", h.getComparison)
		v1.GET("/products/:id/trend", h.getTrend)
		v1.GET("/overrides", h.listOverrides)
		v1.POST("/overrides", h.createOverride)
		v1.DELETE("/overrides/:id", h.deleteOverride)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck verifies database connectivity
func (h *Handler) readinessCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// ingestListingsRequest is one fetcher delivery: a batch of raw listings
// for one site.
type ingestListingsRequest struct {
	Site     string              `json:"site" binding:"required"`
	Listings []models.RawListing `json:"listings" binding:"required,min=1"`
}

// ingestListings stages a batch of raw listings for the next run
func (h *Handler) ingestListings(c *gin.Context) {
	var req ingestListingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	for i := range req.Listings {
		if req.Listings[i].Site == "" {
			req.Listings[i].Site = req.Site
		}
	}
	h.buffer.AddBatch(req.Listings)

	c.JSON(http.StatusAccepted, gin.H{
		"staged": len(req.Listings),
		"buffer": h.buffer.Len(),
	})
}

// triggerRun drains the staging buffer and processes it as one run
func (h *Handler) triggerRun(c *gin.Context) {
	day := util.DayStart(time.Now())
	if v := c.Query("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, want YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	listings := h.buffer.Drain()
	result, err := h.engine.ProcessRun(c.Request.Context(), day, listings)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Run failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// getChanges returns change events; ?notified=false exposes the
// undelivered backlog for polling notifiers
func (h *Handler) getChanges(c *gin.Context) {
	if c.Query("notified") == "false" {
		priceChanges, err := h.store.UnnotifiedPriceChanges(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		stockChanges, err := h.store.UnnotifiedStockChanges(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"price_changes": priceChanges,
			"stock_changes": stockChanges,
		})
		return
	}

	day := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	movers, err := h.store.TopMovers(c.Request.Context(), day, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "changes": movers})
}

// markNotifiedRequest identifies delivered changes by kind and id.
type markNotifiedRequest struct {
	PriceChangeIDs []int64 `json:"price_change_ids"`
	StockChangeIDs []int64 `json:"stock_change_ids"`
}

// markNotified flips the delivery marker for externally delivered changes
func (h *Handler) markNotified(c *gin.Context) {
	var req markNotifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.store.MarkPriceChangesNotified(ctx, req.PriceChangeIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.MarkStockChangesNotified(ctx, req.StockChangeIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"marked": len(req.PriceChangeIDs) + len(req.StockChangeIDs),
	})
}

// getSummary returns the daily detection summary
func (h *Handler) getSummary(c *gin.Context) {
	day := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", day); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, want YYYY-MM-DD"})
		return
	}

	summary, err := h.engine.Summary(c.Request.Context(), day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// getComparison returns the latest price/stock per site for one product,
// cheapest site first
func (h *Handler) getComparison(c *gin.Context) {
	productID, ok := h.productID(c)
	if !ok {
		return
	}

	product, err := h.store.GetProductByID(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	states, err := h.store.LatestSiteStates(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	leader := -1
	for i, s := range states {
		if s.StockStatus == models.StockOutOfStock || !s.Price.IsPositive() {
			continue
		}
		if leader < 0 || s.Price.LessThan(states[leader].Price) {
			leader = i
		}
	}
	leaderSite := ""
	if leader >= 0 {
		leaderSite = states[leader].SiteName
	}

	c.JSON(http.StatusOK, gin.H{
		"product":      product,
		"sites":        states,
		"price_leader": leaderSite,
	})
}

// getTrend returns a product's per-day price series on one site
func (h *Handler) getTrend(c *gin.Context) {
	productID, ok := h.productID(c)
	if !ok {
		return
	}

	site := c.Query("site")
	if site == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing site parameter"})
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days parameter"})
		return
	}

	points, err := h.store.PriceTrend(c.Request.Context(), productID, site, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id": productID,
		"site":       site,
		"days":       days,
		"points":     points,
	})
}

// listOverrides returns the manual override table
func (h *Handler) listOverrides(c *gin.Context) {
	overrides, err := h.store.ListOverrides(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"overrides": overrides})
}

// createOverrideRequest pins a (site, original name) pair to a product.
type createOverrideRequest struct {
	SiteName     string `json:"site_name" binding:"required"`
	OriginalName string `json:"original_name" binding:"required"`
	ProductID    int64  `json:"product_id" binding:"required"`
	Note         string `json:"note"`
}

// createOverride pins a listing to a product, bypassing scoring
func (h *Handler) createOverride(c *gin.Context) {
	var req createOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if _, err := h.store.GetProductByID(c.Request.Context(), req.ProductID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Target product not found"})
		return
	}

	override := &models.ManualOverride{
		SiteName:     req.SiteName,
		OriginalName: req.OriginalName,
		ProductID:    req.ProductID,
		Note:         req.Note,
	}
	if err := h.store.CreateOverride(c.Request.Context(), override); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, override)
}

// deleteOverride removes a manual pin
func (h *Handler) deleteOverride(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid override ID"})
		return
	}
	if err := h.store.DeleteOverride(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
