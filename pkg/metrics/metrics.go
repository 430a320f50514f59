package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several instances can coexist in tests.
type Metrics struct {
	Registry     *prometheus.Registry
	StoreFetches *prometheus.CounterVec
	Logins       *prometheus.CounterVec
	Uploads      *prometheus.CounterVec
	Renders      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		StoreFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfqdash",
			Name:      "store_fetches_total",
			Help:      "Dataset loads through the store cache, by result.",
		}, []string{"result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfqdash",
			Name:      "logins_total",
			Help:      "Login attempts, by result.",
		}, []string{"result"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfqdash",
			Name:      "uploads_total",
			Help:      "Accepted uploads, by mode.",
		}, []string{"mode"}),
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rfqdash",
			Name:      "dashboard_renders_total",
			Help:      "Full pipeline runs.",
		}),
	}
	m.Registry.MustRegister(m.StoreFetches, m.Logins, m.Uploads, m.Renders)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveFetch(err error) {
	if m == nil {
		return
	}
	m.StoreFetches.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveLogin(err error) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveUpload(mode string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(mode).Inc()
}

func (m *Metrics) ObserveRender() {
	if m == nil {
		return
	}
	m.Renders.Inc()
}
