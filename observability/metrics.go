package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roadsafe"

// Lookup outcomes recorded by ObserveLookup.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Collector bundles the service's Prometheus metrics. The Observe and Set
// methods and Middleware accept a nil *Collector and record nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Checks          *prometheus.CounterVec
	LocationLookups *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDurations   *prometheus.HistogramVec
	GeofencesLoaded prometheus.Gauge
}

// NewCollector registers metrics against reg, defaulting to the global
// registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		Checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geofence",
			Name:      "checks_total",
			Help:      "Containment checks, labeled by result (inside or outside).",
		}, []string{"result"}),
		LocationLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "location",
			Name:      "lookups_total",
			Help:      "IP location lookups, labeled by cache hit, miss or error.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		HTTPDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "path"}),
		GeofencesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "geofence",
			Name:      "loaded",
			Help:      "Number of geofences loaded at startup.",
		}),
	}

	var err error
	if c.Checks, err = register(reg, c.Checks); err != nil {
		return nil, err
	}
	if c.LocationLookups, err = register(reg, c.LocationLookups); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = register(reg, c.HTTPRequests); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = register(reg, c.HTTPDurations); err != nil {
		return nil, err
	}
	if c.GeofencesLoaded, err = register(reg, c.GeofencesLoaded); err != nil {
		return nil, err
	}
	return c, nil
}

// register reuses an identical collector that is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return col, err
	}
	return col, nil
}

func (c *Collector) ObserveCheck(outside bool) {
	if c == nil {
		return
	}
	result := "inside"
	if outside {
		result = "outside"
	}
	c.Checks.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveLookup(result string) {
	if c == nil {
		return
	}
	c.LocationLookups.WithLabelValues(result).Inc()
}

func (c *Collector) SetGeofences(n int) {
	if c == nil {
		return
	}
	c.GeofencesLoaded.Set(float64(n))
}

// Middleware records request count and latency per route pattern.
func (c *Collector) Middleware() gin.HandlerFunc {
	if c == nil {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := ctx.Request.Method
		c.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.HTTPDurations.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) Register(r *gin.Engine) {
	r.Use(c.Middleware())
	r.GET("/metrics", gin.WrapH(c.Handler()))
}
