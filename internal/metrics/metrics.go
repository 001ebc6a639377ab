// Package metrics exposes the composite lights to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/virtlight/virtlightd/internal/light"
)

// Metrics holds the per-composite gauges and the command counter.
type Metrics struct {
	groupOn         *prometheus.GaugeVec
	groupPrimaryOn  *prometheus.GaugeVec
	groupAvailable  *prometheus.GaugeVec
	groupBrightness *prometheus.GaugeVec
	groupColorTemp  *prometheus.GaugeVec
	commands        *prometheus.CounterVec
}

// New registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		groupOn: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "virtlight_group_on",
				Help: "Whether any member of the group is on.",
			},
			[]string{"group"}),
		groupPrimaryOn: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "virtlight_group_primary_on",
				Help: "Whether any main light of the group is on.",
			},
			[]string{"group"}),
		groupAvailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "virtlight_group_available",
				Help: "Whether the group has at least one reachable member.",
			},
			[]string{"group"}),
		groupBrightness: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "virtlight_group_brightness",
				Help: "Reduced group brightness, 0-255. Absent attribute reports 0.",
			},
			[]string{"group"}),
		groupColorTemp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "virtlight_group_color_temp_mireds",
				Help: "Reduced group color temperature in mireds. Absent attribute reports 0.",
			},
			[]string{"group"}),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "virtlight_commands_total",
				Help: "Dispatched batched commands by verb and outcome.",
			},
			[]string{"group", "verb", "outcome"}),
	}
	reg.MustRegister(m.groupOn)
	reg.MustRegister(m.groupPrimaryOn)
	reg.MustRegister(m.groupAvailable)
	reg.MustRegister(m.groupBrightness)
	reg.MustRegister(m.groupColorTemp)
	reg.MustRegister(m.commands)
	return m
}

// ObserveState records one recomputed composite state.
func (m *Metrics) ObserveState(group string, st light.CompositeState) {
	m.groupOn.WithLabelValues(group).Set(b2f(st.IsOn))
	m.groupPrimaryOn.WithLabelValues(group).Set(b2f(st.PrimaryOn))
	m.groupAvailable.WithLabelValues(group).Set(b2f(st.Available))

	var brightness, colorTemp float64
	if st.Brightness != nil {
		brightness = float64(*st.Brightness)
	}
	if st.ColorTemp != nil {
		colorTemp = float64(*st.ColorTemp)
	}
	m.groupBrightness.WithLabelValues(group).Set(brightness)
	m.groupColorTemp.WithLabelValues(group).Set(colorTemp)
}

// ObserveCommand records one dispatched command.
func (m *Metrics) ObserveCommand(group string, verb light.Verb, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.commands.WithLabelValues(group, string(verb), outcome).Inc()
}

func b2f(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
