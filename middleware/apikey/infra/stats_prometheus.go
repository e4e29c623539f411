package infra

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"apikey-gateway/middleware/apikey/domain"
)

// PrometheusStatsStore expõe as decisões do gate como contador Prometheus.
// Labels: outcome ("Allowed" ou o "type" da rejeição) e method. Path e chave
// ficam de fora para não explodir cardinalidade; métodos fora do padrão HTTP
// viram "OTHER".
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
}

func NewPrometheusStatsStore(reg prometheus.Registerer, namespace string) (*PrometheusStatsStore, error) {
	if namespace == "" {
		namespace = "apikey_gateway"
	}
	decisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Total number of API key authorization decisions",
		},
		[]string{"outcome", "method"},
	)
	if reg != nil {
		if err := reg.Register(decisions); err != nil {
			return nil, err
		}
	}
	return &PrometheusStatsStore{decisions: decisions}, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	outcome := ev.Outcome
	if outcome == "" {
		outcome = domain.OutcomeAllowed
		if !ev.Allowed {
			outcome = "Denied"
		}
	}
	s.decisions.WithLabelValues(outcome, methodLabel(ev.Method)).Inc()
	return nil
}

func methodLabel(m string) string {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return m
	}
	return "OTHER"
}

func (s *PrometheusStatsStore) Collector() prometheus.Collector { return s.decisions }
