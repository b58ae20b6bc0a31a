// Confusion-matrix metrics over the outcome history.

package learn

import "fmt"

// metricsEpsilon is added to every denominator so empty or degenerate
// histories yield zeros instead of NaN.
const metricsEpsilon = 1e-9

// Metrics aggregates the confusion counts of an outcome history and the
// scores derived from them.
type Metrics struct {
	TP int `yaml:"tp"`
	FP int `yaml:"fp"`
	FN int `yaml:"fn"`
	TN int `yaml:"tn"`

	Accuracy  float64 `yaml:"accuracy"`
	Precision float64 `yaml:"precision"`
	Recall    float64 `yaml:"recall"`
	F1        float64 `yaml:"f1"`
}

// ComputeMetrics partitions records into TP/FP/FN/TN by exact pair equality
// and derives accuracy, precision, recall and F1. Pure function of records.
func ComputeMetrics(records []OutcomeRecord) Metrics {
	var m Metrics
	for _, r := range records {
		switch {
		case r.Predicted == 1 && r.True == 1:
			m.TP++
		case r.Predicted == 1 && r.True == 0:
			m.FP++
		case r.Predicted == 0 && r.True == 1:
			m.FN++
		default:
			m.TN++
		}
	}

	total := float64(m.TP+m.FP+m.FN+m.TN) + metricsEpsilon
	m.Accuracy = float64(m.TP+m.TN) / total
	m.Precision = float64(m.TP) / (float64(m.TP+m.FP) + metricsEpsilon)
	m.Recall = float64(m.TP) / (float64(m.TP+m.FN) + metricsEpsilon)
	m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall + metricsEpsilon)
	return m
}

// String renders the metrics line printed at each episode boundary.
func (m Metrics) String() string {
	return fmt.Sprintf("Acc=%.2f, Prec=%.2f, Recall=%.2f, F1=%.2f", m.Accuracy, m.Precision, m.Recall, m.F1)
}
