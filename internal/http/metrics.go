package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// apiMetrics labels traffic by the resource collection it touched so a slow
// or throttled collection stands out from the rest of the console.
type apiMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	mutations *prometheus.CounterVec
	throttled *prometheus.CounterVec
}

func newAPIMetrics(reg prometheus.Registerer) *apiMetrics {
	return &apiMetrics{
		requests: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nebula",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Processed API requests by collection and route.",
		}, []string{"method", "collection", "route", "status"})),
		latency: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nebula",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "API handler latency by collection and route.",
			Buckets:   latencyBuckets,
		}, []string{"collection", "route"})),
		mutations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nebula",
			Subsystem: "api",
			Name:      "mutations_total",
			Help:      "Owner writes by collection and outcome.",
		}, []string{"collection", "outcome"})),
		throttled: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nebula",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the limiter by collection and key scope.",
		}, []string{"collection", "scope"})),
	}
}

// register returns the already registered collector when another router in
// the process registered the same metric first.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *apiMetrics) observe(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	collection := collectionOf(route)
	m.requests.WithLabelValues(method, collection, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(collection, route).Observe(d.Seconds())
	if isMutation(method) && collection != "auth" && collection != "system" {
		m.mutations.WithLabelValues(collection, mutationOutcome(status)).Inc()
	}
}

func (m *apiMetrics) rateLimited(route string, scope rateScope) {
	if m == nil {
		return
	}
	m.throttled.WithLabelValues(collectionOf(route), string(scope)).Inc()
}

// collectionOf names the resource family behind a route pattern:
// "/vps/:id" is "vps", "/security-rules/:id" is "security".
func collectionOf(route string) string {
	first, rest, _ := strings.Cut(strings.TrimPrefix(route, "/"), "/")
	switch first {
	case "vps", "databases", "buckets", "credits", "notifications", "pipelines", "profile", "iam", "catalog", "auth":
		return first
	case "security-groups", "security-rules":
		return "security"
	case "ws":
		return collectionOf("/" + rest)
	case "internal":
		return "events"
	case "healthz", "metrics", "":
		return "system"
	}
	return "other"
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func mutationOutcome(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "throttled"
	case status >= http.StatusInternalServerError:
		return "failed"
	case status >= http.StatusBadRequest:
		return "rejected"
	default:
		return "applied"
	}
}
