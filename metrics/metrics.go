package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	StreamsOpen          prometheus.Gauge
	StreamDegradations   *prometheus.CounterVec
	StreamRecoveries     *prometheus.CounterVec
	ViewFolds            prometheus.Counter
	DispatchOutcomes     *prometheus.CounterVec
	TierChanges          *prometheus.CounterVec
	DirectoryCacheHits   prometheus.Counter
	DirectoryCacheMisses prometheus.Counter
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registra as métricas no registerer dado. Os testes passam um
// registry próprio para não colidir com o registro global.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StreamsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "console_streams_open",
			Help: "Streams de parceiros abertos no momento",
		}),
		StreamDegradations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_stream_degradations_total",
			Help: "Quedas de stream por parceiro",
		}, []string{"partner_id"}),
		StreamRecoveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_stream_recoveries_total",
			Help: "Recuperações de stream por parceiro",
		}, []string{"partner_id"}),
		ViewFolds: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_view_folds_total",
			Help: "Atualizações aplicadas na visão consolidada",
		}),
		DispatchOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_dispatch_outcomes_total",
			Help: "Resultados de envio de notificação por status",
		}, []string{"status"}),
		TierChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_tier_changes_total",
			Help: "Trocas de tier efetivadas",
		}, []string{"to_tier"}),
		DirectoryCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_directory_cache_hits_total",
			Help: "Acertos no cache do diretório de parceiros",
		}),
		DirectoryCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_directory_cache_misses_total",
			Help: "Faltas no cache do diretório de parceiros",
		}),
	}
}
