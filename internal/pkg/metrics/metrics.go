package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campfinder",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campfinder",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campfinder",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Search pipeline metrics
	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campfinder",
		Subsystem: "search",
		Name:      "searches_total",
		Help:      "Completed searches by data path (cache, network, dropped)",
	}, []string{"path"})

	SearchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campfinder",
		Subsystem: "search",
		Name:      "errors_total",
		Help:      "Failed searches by error kind",
	}, []string{"kind"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campfinder",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests to the geocoder and listing service",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"target"})

	SkippedListings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campfinder",
		Subsystem: "upstream",
		Name:      "skipped_listings_total",
		Help:      "Upstream listing objects dropped during normalization",
	}, []string{"reason"})

	CacheWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campfinder",
		Subsystem: "cache",
		Name:      "writes_total",
		Help:      "Result cache writes by outcome",
	}, []string{"result"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campfinder",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"tier"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campfinder",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"tier"})

	DetailLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campfinder",
		Subsystem: "detail",
		Name:      "loads_total",
		Help:      "Detail page loads by outcome (rendered, failed, stale)",
	}, []string{"result"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "campfinder",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// ObserveUpstream records the duration of an upstream call started at start.
func ObserveUpstream(target string, start time.Time) {
	UpstreamDuration.WithLabelValues(target).Observe(time.Since(start).Seconds())
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
