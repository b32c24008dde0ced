// Package metrics expone contadores Prometheus de validación y emisión de comprobantes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resultados de validación y emisión.
const (
	ResultadoValido   = "valido"
	ResultadoInvalido = "invalido"
	ResultadoEmitido  = "emitido"
	ResultadoError    = "error"
)

// Metrics agrupa los colectores del servicio. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	Validaciones    *prometheus.CounterVec
	Violaciones     *prometheus.CounterVec
	Emisiones       *prometheus.CounterVec
	DuracionEmision prometheus.Histogram
}

// New registra los colectores en reg. Con reg nil se usa el registro global.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Validaciones: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cfdi_validaciones_total",
			Help: "Comprobantes validados por resultado",
		}, []string{"resultado"}),

		Violaciones: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cfdi_violaciones_total",
			Help: "Violaciones reportadas por tipo de restricción",
		}, []string{"tipo"}),

		Emisiones: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cfdi_emisiones_total",
			Help: "Intentos de emisión por resultado",
		}, []string{"resultado"}),

		DuracionEmision: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cfdi_emision_duracion_segundos",
			Help:    "Duración de la emisión completa (validar, sellar, timbrar, codificar)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveValidacion cuenta una validación y sus violaciones agrupadas por tipo.
func (m *Metrics) ObserveValidacion(porTipo map[string]int) {
	if m == nil {
		return
	}
	total := 0
	for tipo, n := range porTipo {
		m.Violaciones.WithLabelValues(tipo).Add(float64(n))
		total += n
	}
	if total == 0 {
		m.Validaciones.WithLabelValues(ResultadoValido).Inc()
		return
	}
	m.Validaciones.WithLabelValues(ResultadoInvalido).Inc()
}

// IncEmision cuenta un intento de emisión.
func (m *Metrics) IncEmision(resultado string) {
	if m != nil {
		m.Emisiones.WithLabelValues(resultado).Inc()
	}
}

// ObserveDuracion registra la duración de una emisión.
func (m *Metrics) ObserveDuracion(d time.Duration) {
	if m != nil {
		m.DuracionEmision.Observe(d.Seconds())
	}
}
