package generator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BudgetRecorder records how authored instructions compare with a backend's
// character budget.
type BudgetRecorder interface {
	// RecordRawLength records the instruction length before Fit.
	RecordRawLength(backend string, length int)

	// RecordOverBudget counts instructions that had to be shortened.
	RecordOverBudget(backend string)

	// RecordCompliance records whether the raw instruction fit the budget.
	RecordCompliance(backend string, withinLimit bool)
}

// PrometheusBudgetMetrics implements BudgetRecorder with Prometheus metrics.
type PrometheusBudgetMetrics struct {
	rawLength  *prometheus.HistogramVec
	overBudget *prometheus.CounterVec
	compliance *prometheus.GaugeVec
}

var (
	budgetMetricsInstance *PrometheusBudgetMetrics
	budgetMetricsOnce     sync.Once
)

// NewPrometheusBudgetMetrics returns the process-wide recorder.
func NewPrometheusBudgetMetrics() *PrometheusBudgetMetrics {
	budgetMetricsOnce.Do(func() {
		budgetMetricsInstance = &PrometheusBudgetMetrics{
			rawLength: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "provider_instruction_raw_length_characters",
				Help:    "Length of authored instructions before budget enforcement (Unicode runes)",
				Buckets: []float64{250, 500, 750, 1000, 1250, 1500, 2000, 3000},
			}, []string{"backend"}),
			overBudget: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "provider_instruction_over_budget_total",
				Help: "Total number of authored instructions exceeding the backend character budget",
			}, []string{"backend"}),
			compliance: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "provider_instruction_budget_compliance",
				Help: "1 if the last authored instruction fit the budget without shortening, else 0",
			}, []string{"backend"}),
		}
	})
	return budgetMetricsInstance
}

// RecordRawLength implements BudgetRecorder.
func (p *PrometheusBudgetMetrics) RecordRawLength(backend string, length int) {
	p.rawLength.WithLabelValues(backend).Observe(float64(length))
}

// RecordOverBudget implements BudgetRecorder.
func (p *PrometheusBudgetMetrics) RecordOverBudget(backend string) {
	p.overBudget.WithLabelValues(backend).Inc()
}

// RecordCompliance implements BudgetRecorder.
func (p *PrometheusBudgetMetrics) RecordCompliance(backend string, withinLimit bool) {
	if withinLimit {
		p.compliance.WithLabelValues(backend).Set(1)
	} else {
		p.compliance.WithLabelValues(backend).Set(0)
	}
}
