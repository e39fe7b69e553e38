package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricSolves      = "business.solves_recorded"
	MetricFirstBloods = "business.first_bloods"
	MetricScoreRecalc = "business.score_recalculations"
)
