package monitoring

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// ExportFormat selects the serialization used by Exporter.
type ExportFormat string

const (
	ExportJSON       ExportFormat = "json"
	ExportPrometheus ExportFormat = "prometheus"
	ExportCSV        ExportFormat = "csv"
)

// MonitoringSnapshot is the combined view exported by Exporter, gathering
// the current state of the usage, performance, and cost trackers.
type MonitoringSnapshot struct {
	Usage       []UsageMetric              `json:"usage"`
	Perf        []PerfMetric               `json:"perf"`
	Cost        []CostMetric               `json:"cost"`
	Percentiles map[string]TypePercentiles `json:"percentiles_by_type"`
	CostReport  CostReport                 `json:"cost_report"`
}

// Exporter renders a MonitoringSnapshot in one of the supported formats.
type Exporter struct {
	format ExportFormat
}

// NewExporter builds an Exporter for format, defaulting to JSON for an
// unrecognized value.
func NewExporter(format ExportFormat) *Exporter {
	switch format {
	case ExportPrometheus, ExportCSV:
		return &Exporter{format: format}
	default:
		return &Exporter{format: ExportJSON}
	}
}

// Export renders snapshot per the configured format.
func (e *Exporter) Export(snapshot MonitoringSnapshot) ([]byte, error) {
	switch e.format {
	case ExportPrometheus:
		return exportPrometheus(snapshot)
	case ExportCSV:
		return exportCSV(snapshot)
	default:
		return json.MarshalIndent(snapshot, "", "  ")
	}
}

func exportPrometheus(snapshot MonitoringSnapshot) ([]byte, error) {
	reg := prometheus.NewRegistry()

	costTotal := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "contextframe_cost_total_usd",
		Help: "Cumulative estimated cost in USD across all tracked operations.",
	})
	costTotal.Set(snapshot.CostReport.TotalUSD)
	reg.MustRegister(costTotal)

	opLatency := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "contextframe_operation_latency_ms",
		Help: "Latency percentiles (p50, p90, p99) in milliseconds by operation type.",
	}, []string{"operation_type", "quantile"})
	for opType, pct := range snapshot.Percentiles {
		opLatency.WithLabelValues(opType, "p50").Set(pct.P50)
		opLatency.WithLabelValues(opType, "p90").Set(pct.P90)
		opLatency.WithLabelValues(opType, "p99").Set(pct.P99)
	}
	reg.MustRegister(opLatency)

	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func exportCSV(snapshot MonitoringSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"metric_type", "key", "value"}); err != nil {
		return nil, err
	}
	rows := [][]string{
		{"cost", "total_usd", strconv.FormatFloat(snapshot.CostReport.TotalUSD, 'f', 6, 64)},
		{"cost", "projected_monthly_usd", strconv.FormatFloat(snapshot.CostReport.ProjectedMonthlyUSD, 'f', 6, 64)},
	}

	types := make([]string, 0, len(snapshot.Percentiles))
	for t := range snapshot.Percentiles {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		p := snapshot.Percentiles[t]
		rows = append(rows,
			[]string{"latency_p50_ms", t, strconv.FormatFloat(p.P50, 'f', 3, 64)},
			[]string{"latency_p90_ms", t, strconv.FormatFloat(p.P90, 'f', 3, 64)},
			[]string{"latency_p99_ms", t, strconv.FormatFloat(p.P99, 'f', 3, 64)},
			[]string{"error_rate", t, strconv.FormatFloat(p.ErrorRate, 'f', 4, 64)},
		)
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
