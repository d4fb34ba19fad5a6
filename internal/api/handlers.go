package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/safe-ro/safe-ro/internal/firms"
	"github.com/safe-ro/safe-ro/internal/pipeline"
	"github.com/safe-ro/safe-ro/internal/products"
	"github.com/safe-ro/safe-ro/internal/raster"
)

type ndviRequest struct {
	RedPath    string `json:"red_path" binding:"required"`
	NIRPath    string `json:"nir_path" binding:"required"`
	Downsample int    `json:"downsample"`
}

type floodRequest struct {
	S1Path     string   `json:"s1_path" binding:"required"`
	Threshold  *float64 `json:"threshold"`
	Percentile *float64 `json:"percentile"`
	Downsample int      `json:"downsample"`
}

type firesRequest struct {
	CSVPath       string      `json:"csv_path" binding:"required"`
	MinConfidence *float64    `json:"min_confidence"`
	BBox          *[4]float64 `json:"bbox"`
}

func downsample(factor int) int {
	if factor == 0 {
		return 1
	}
	return factor
}

// productError maps a product failure to a status code and body.
func productError(c *gin.Context, message string, err error) {
	var lerr *raster.LoadError
	switch {
	case errors.Is(err, products.ErrInvalidParameter), errors.Is(err, pipeline.ErrNoInputs):
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "detail": err.Error()})
	case errors.As(err, &lerr) && lerr.Reason == raster.ReasonInvalidFactor:
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "reason": lerr.Reason})
	case errors.As(err, &lerr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": message, "reason": lerr.Reason})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "detail": err.Error()})
	}
}

func (s *Server) handleNDVI(c *gin.Context) {
	var req ndviRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := products.ComputeIndex(req.RedPath, req.NIRPath, products.WithDownsample(downsample(req.Downsample)))
	if err != nil {
		productError(c, "Could not compute NDVI", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": result.Stats(), "bounds": result.Bounds})
}

func (s *Server) handleFlood(c *gin.Context) {
	var req floodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := []products.Option{products.WithDownsample(downsample(req.Downsample))}
	if req.Threshold != nil {
		opts = append(opts, products.WithThreshold(*req.Threshold))
	}
	if req.Percentile != nil {
		opts = append(opts, products.WithPercentile(*req.Percentile))
	}

	mask, err := products.DetectThresholdMask(req.S1Path, opts...)
	if err != nil {
		productError(c, "Could not compute flood mask", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"flooded_area_percent": mask.FloodedPercent(),
		"threshold":            raster.FiniteOrNil(mask.Threshold),
		"bounds":               mask.Bounds,
	})
}

func (s *Server) handleFires(c *gin.Context) {
	var req firesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detector, err := firms.Load(req.CSVPath)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Could not read fire data", "detail": err.Error()})
		return
	}

	minConfidence := float64(firms.DefaultMinConfidence)
	if req.MinConfidence != nil {
		minConfidence = *req.MinConfidence
	}
	fires := detector.FilterByConfidence(minConfidence)
	if req.BBox != nil {
		b := *req.BBox
		fires = firms.NewDetector(fires, true).FilterByBBox(b[0], b[1], b[2], b[3])
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(fires),
		"example": fires[:min(pipeline.SampleSize, len(fires))],
	})
}

func (s *Server) handlePipeline(c *gin.Context) {
	var in pipeline.Inputs
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := s.runner.Summarize(c.Request.Context(), in)
	if err != nil {
		productError(c, "Could not run pipeline", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	runs, err := s.history.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
