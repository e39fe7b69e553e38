package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctfgeo",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ctfgeo",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ctfgeo",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Challenge metrics
	AttemptsEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctfgeo",
		Subsystem: "challenge",
		Name:      "attempts_total",
		Help:      "Total submissions evaluated, by verdict status",
	}, []string{"status"})

	InvalidSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ctfgeo",
		Subsystem: "challenge",
		Name:      "invalid_submissions_total",
		Help:      "Total submissions with unparseable coordinates",
	})

	SolvesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ctfgeo",
		Subsystem: "challenge",
		Name:      "solves_total",
		Help:      "Total solve rows recorded",
	})

	FirstBloods = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ctfgeo",
		Subsystem: "challenge",
		Name:      "first_bloods_total",
		Help:      "Total first-blood solves",
	})

	ScoreRecalcs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctfgeo",
		Subsystem: "scoring",
		Name:      "recalculations_total",
		Help:      "Total dynamic score recalculations",
	}, []string{"result"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ctfgeo",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctfgeo",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctfgeo",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	dbPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ctfgeo",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	dbPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ctfgeo",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	dbPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ctfgeo",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

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

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics refreshes the pool gauges from pgx pool stats.
func UpdateDBPoolMetrics(stat *pgxpool.Stat) {
	if stat == nil {
		return
	}
	dbPoolConnsOpen.Set(float64(stat.TotalConns()))
	dbPoolConnsAcquired.Set(float64(stat.AcquiredConns()))
	dbPoolConnsIdle.Set(float64(stat.IdleConns()))
}
