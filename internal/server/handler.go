package server

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/dataset"
	"github.com/chris/tgrid/internal/logger"
	"github.com/chris/tgrid/internal/selection"
	"github.com/chris/tgrid/internal/store"
)

const unitHours = "hours"

// Loader is the dataset session the handler serves
type Loader interface {
	Current() *dataset.Dataset
	Load(raw []byte, source string) (*dataset.Dataset, error)
}

// Handler serves the loaded timeline over HTTP. The dataset and its
// selection are not goroutine-safe, so every request holds mu.
type Handler struct {
	mu      sync.Mutex
	session Loader
	router  *gin.Engine
	log     *zap.Logger
}

// NewHandler creates a Handler with its routes registered
func NewHandler(session Loader, log *zap.Logger) *Handler {
	log = logger.OrNop(log)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	h := &Handler{
		session: session,
		router:  router,
		log:     log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)

	locked := h.router.Group("/", h.lock)
	locked.GET("/timeline", h.getTimeline)
	locked.POST("/dataset", h.loadDataset)
	locked.GET("/range", h.getRange)
	locked.PUT("/range", h.setRange)
	locked.PUT("/range/low", h.setLow)
	locked.PUT("/range/high", h.setHigh)
}

func (h *Handler) lock(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Next()
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// healthCheck handles GET /health
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// current writes a 404 and returns nil when nothing is loaded
func (h *Handler) current(c *gin.Context) *dataset.Dataset {
	d := h.session.Current()
	if d == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "no_dataset",
			Message: "no dataset loaded",
		})
	}
	return d
}

// getTimeline handles GET /timeline
func (h *Handler) getTimeline(c *gin.Context) {
	d := h.current(c)
	if d == nil {
		return
	}
	c.JSON(http.StatusOK, newTimelineResponse(d))
}

// loadDataset handles POST /dataset. The previous dataset stays current
// when the payload is rejected.
func (h *Handler) loadDataset(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	d, err := h.session.Load(raw, c.Query("source"))
	if err != nil {
		var invalid *store.InvalidInputError
		var empty *store.EmptyDatasetError
		status, code := http.StatusInternalServerError, "internal_error"
		switch {
		case errors.As(err, &invalid):
			status, code = http.StatusBadRequest, "invalid_input"
		case errors.As(err, &empty):
			status, code = http.StatusUnprocessableEntity, "empty_dataset"
		}
		h.log.Warn("Dataset rejected", zap.Error(err))
		c.JSON(status, ErrorResponse{
			Error:   code,
			Message: err.Error(),
		})
		return
	}

	h.log.Info("Dataset replaced", zap.String("dataset_id", d.ID.String()))

	c.JSON(http.StatusCreated, LoadResponse{
		DatasetID: d.ID.String(),
		Entities:  len(d.Entities),
		Events:    len(d.Events),
		Buckets:   len(d.Buckets),
		Warnings:  warningStrings(d),
	})
}

// getRange handles GET /range
func (h *Handler) getRange(c *gin.Context) {
	d := h.current(c)
	if d == nil {
		return
	}
	c.JSON(http.StatusOK, newRangeResponse(d, nil))
}

// setRange handles PUT /range
func (h *Handler) setRange(c *gin.Context) {
	d := h.current(c)
	if d == nil {
		return
	}

	var req RangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidRequest(c, err)
		return
	}

	var w *selection.RangeClampWarning
	if req.Unit == unitHours {
		w = d.SetHoursRange(*req.Low, *req.High)
	} else {
		w = d.Selection.SetRange(*req.Low, *req.High)
	}
	h.respondRange(c, d, w)
}

// setLow handles PUT /range/low
func (h *Handler) setLow(c *gin.Context) {
	d := h.current(c)
	if d == nil {
		return
	}

	var req HandleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidRequest(c, err)
		return
	}
	h.respondRange(c, d, d.Selection.SetLow(*req.Value))
}

// setHigh handles PUT /range/high
func (h *Handler) setHigh(c *gin.Context) {
	d := h.current(c)
	if d == nil {
		return
	}

	var req HandleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidRequest(c, err)
		return
	}
	h.respondRange(c, d, d.Selection.SetHigh(*req.Value))
}

func (h *Handler) invalidRequest(c *gin.Context, err error) {
	h.log.Warn("Invalid range request", zap.Error(err))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

func (h *Handler) respondRange(c *gin.Context, d *dataset.Dataset, w *selection.RangeClampWarning) {
	if w != nil {
		h.log.Info("Range update clamped", zap.String("warning", w.String()))
	}
	c.JSON(http.StatusOK, newRangeResponse(d, w))
}
