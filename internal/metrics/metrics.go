package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safe_ro",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "safe_ro",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "path"})

	// Raster metrics
	BandLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safe_ro",
		Subsystem: "raster",
		Name:      "band_loads_total",
		Help:      "Band loads by outcome (ok or failure reason)",
	}, []string{"outcome"})

	ProductDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "safe_ro",
		Subsystem: "products",
		Name:      "compute_duration_seconds",
		Help:      "Duration of NDVI and flood mask computations",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"product"})

	ProductErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "safe_ro",
		Subsystem: "products",
		Name:      "errors_total",
		Help:      "Failed NDVI and flood mask computations",
	}, []string{"product"})

	// Pipeline metrics
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "safe_ro",
		Subsystem: "pipeline",
		Name:      "cache_hits_total",
		Help:      "Pipeline summaries served from the file cache",
	})

	FloodedPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "safe_ro",
		Subsystem: "pipeline",
		Name:      "flooded_area_percent",
		Help:      "Flooded area percent of the last pipeline run",
	})

	// Downloader metrics
	DownloadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "safe_ro",
		Subsystem: "sentinel",
		Name:      "downloaded_bytes_total",
		Help:      "Bytes downloaded from the Copernicus catalogue",
	})

	DownloadRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "safe_ro",
		Subsystem: "sentinel",
		Name:      "download_retries_total",
		Help:      "Download attempts that had to be retried",
	})
)

// Middleware records request count and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus exposition handler for gin.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// ObserveProduct times a product computation.
func ObserveProduct(product string, start time.Time, err error) {
	ProductDuration.WithLabelValues(product).Observe(time.Since(start).Seconds())
	if err != nil {
		ProductErrors.WithLabelValues(product).Inc()
	}
}
