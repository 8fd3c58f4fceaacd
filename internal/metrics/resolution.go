package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matt-riley/moneycoach/internal/resolution"
)

var outcomeStates = []resolution.State{
	resolution.StateLoading,
	resolution.StateReady,
	resolution.StateFailed,
}

var _ resolution.Recorder = (*Metrics)(nil)

// OutcomeSource supplies the current resolution outcome.
type OutcomeSource interface {
	Outcome() resolution.Outcome
}

type resolutionCollector struct {
	source OutcomeSource

	state   *prometheus.Desc
	enabled *prometheus.Desc
}

// RegisterResolutionMetrics registers gauges that report the live resolution
// outcome of source on every scrape.
func RegisterResolutionMetrics(reg prometheus.Registerer, source OutcomeSource) {
	reg.MustRegister(&resolutionCollector{
		source: source,
		state: prometheus.NewDesc(
			"moneycoach_resolution_state",
			"Current feature resolution state (1 for the active state).",
			[]string{"state"}, nil,
		),
		enabled: prometheus.NewDesc(
			"moneycoach_enabled_features",
			"Number of enabled features in the current outcome.",
			nil, nil,
		),
	})
}

func (c *resolutionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.state
	ch <- c.enabled
}

func (c *resolutionCollector) Collect(ch chan<- prometheus.Metric) {
	outcome := c.source.Outcome()

	for _, state := range outcomeStates {
		value := 0.0
		if outcome.State() == state {
			value = 1
		}
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, value, state.String())
	}
	ch <- prometheus.MustNewConstMetric(c.enabled, prometheus.GaugeValue, float64(len(outcome.EnabledNames())))
}
