package http

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/iridium/internal/events"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	// Domain metrics
	identitiesCreatedTotal *prometheus.CounterVec
	loginsTotal            *prometheus.CounterVec
	identityLocksTotal     prometheus.Counter
	passwordResetsTotal    prometheus.Counter
)

// RegisterMetrics inicializa las métricas y devuelve el handler para /metrics.
func RegisterMetrics(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método y ruta",
		}, []string{"method", "path"})

		identitiesCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identities_created_total",
			Help: "Identities creadas por origen",
		}, []string{"kind"}) // kind: local|external

		loginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Autenticaciones exitosas por tipo",
		}, []string{"kind"}) // kind: password|provider

		identityLocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "identity_locks_total",
			Help: "Identities bloqueadas por intentos fallidos",
		})

		passwordResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "password_resets_initiated_total",
			Help: "Resets de password iniciados",
		})

		for _, c := range []prometheus.Collector{
			httpRequestsTotal,
			httpRequestDuration,
			httpInflight,
			identitiesCreatedTotal,
			loginsTotal,
			identityLocksTotal,
			passwordResetsTotal,
		} {
			if err := registerCollector(registry, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}

	// Usamos el gatherer global por compatibilidad, ya que las métricas se registran allí.
	return promhttp.Handler(), nil
}

// SubscribeMetrics alimenta los contadores de dominio desde el bus de
// eventos. Llamar después de RegisterMetrics.
func SubscribeMetrics(bus *events.Bus) {
	if bus == nil || identitiesCreatedTotal == nil {
		return
	}
	bus.Subscribe(events.IdentityCreated, func(context.Context, events.Event) error {
		identitiesCreatedTotal.WithLabelValues("local").Inc()
		return nil
	})
	bus.Subscribe(events.ProviderLinked, func(context.Context, events.Event) error {
		identitiesCreatedTotal.WithLabelValues("external").Inc()
		loginsTotal.WithLabelValues("provider").Inc()
		return nil
	})
	bus.Subscribe(events.IdentityAuthenticated, func(context.Context, events.Event) error {
		loginsTotal.WithLabelValues("password").Inc()
		return nil
	})
	bus.Subscribe(events.IdentityLocked, func(context.Context, events.Event) error {
		identityLocksTotal.Inc()
		return nil
	})
	bus.Subscribe(events.PasswordResetInitiated, func(context.Context, events.Event) error {
		passwordResetsTotal.Inc()
		return nil
	})
}

// WithMetrics instrumenta requests HTTP con métricas Prometheus.
func WithMetrics(next http.Handler) http.Handler {
	if next == nil {
		return nil
	}
	if httpRequestsTotal == nil || httpRequestDuration == nil || httpInflight == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		pathLabel := normalizePath(r.URL.Path)

		httpInflight.WithLabelValues(method, pathLabel).Inc()
		start := time.Now()

		rec := &metricsRecorder{ResponseWriter: w}
		defer func() {
			httpInflight.WithLabelValues(method, pathLabel).Dec()
			duration := time.Since(start).Seconds()
			httpRequestDuration.WithLabelValues(method, pathLabel).Observe(duration)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

type metricsRecorder struct {
	http.ResponseWriter
	status int
}

func (m *metricsRecorder) WriteHeader(code int) {
	if m.status == 0 {
		m.status = code
	}
	m.ResponseWriter.WriteHeader(code)
}

// registerCollector registra el collector ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

var (
	uuidRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// normalizePath colapsa los segmentos dinámicos para acotar la
// cardinalidad de las labels.
func normalizePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if uuidRe.MatchString(s) {
			segs[i] = ":id"
		}
	}
	return strings.Join(segs, "/")
}
