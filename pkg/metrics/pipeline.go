package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records scraper pipeline outcomes.
type PipelineMetrics struct {
	candidates *prometheus.CounterVec
	stage      *prometheus.HistogramVec
	harvested  prometheus.Gauge
}

// NewPipelineMetrics registers the pipeline metrics on reg. A nil registerer
// yields a no-op recorder.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	candidates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_candidates_total",
		Help:      "Candidates processed by the scraper pipeline, by outcome.",
	}, []string{"outcome"})
	stage := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Duration of pipeline stages in seconds.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage"})
	harvested := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pipeline_harvested_urls",
		Help:      "External tool URLs discovered by the last harvest.",
	})
	reg.MustRegister(candidates, stage, harvested)
	return &PipelineMetrics{candidates: candidates, stage: stage, harvested: harvested}
}

func (p *PipelineMetrics) IncCandidate(outcome string) {
	if p == nil || p.candidates == nil {
		return
	}
	p.candidates.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (p *PipelineMetrics) ObserveStage(stage string, d time.Duration) {
	if p == nil || p.stage == nil {
		return
	}
	p.stage.WithLabelValues(normalizeLabel(stage)).Observe(d.Seconds())
}

func (p *PipelineMetrics) SetHarvested(n int) {
	if p == nil || p.harvested == nil {
		return
	}
	p.harvested.Set(float64(n))
}
