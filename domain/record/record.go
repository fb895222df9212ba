// Package record defines the explicit schema for raw discovery records.
// Upstream sources expose records as loose key-value mappings; FromMap
// validates each record once at ingestion so no downstream code reaches
// into untyped maps.
package record

import (
	"fmt"
	"strconv"
	"strings"

	"seqtriage/domain/core"
)

// DefaultFeasibility is assumed when a source omits the feasibility metric.
const DefaultFeasibility = 0.6

// Metrics carries the scalar quality metrics attached to a discovery record.
// All values are taken as-is from the source; recalibration happens later in
// the ranking pipeline.
type Metrics struct {
	Novelty      float64 `json:"novelty_score" db:"novelty_score"`
	Research     float64 `json:"research_score" db:"research_score"`
	Therapeutic  float64 `json:"therapeutic_potential" db:"therapeutic_potential"`
	Physics      float64 `json:"physics_validation" db:"physics_validation"`
	Druggability float64 `json:"druggability" db:"druggability"`
	Confidence   float64 `json:"confidence" db:"confidence"`
	Aggregation  float64 `json:"aggregation_propensity" db:"aggregation_propensity"`
	Feasibility  float64 `json:"feasibility" db:"feasibility"`
}

// MergeMax returns the field-wise maximum of two metric vectors.
// Duplicate records can only improve a candidate's recorded quality,
// never degrade it.
func (m Metrics) MergeMax(other Metrics) Metrics {
	return Metrics{
		Novelty:      maxFloat(m.Novelty, other.Novelty),
		Research:     maxFloat(m.Research, other.Research),
		Therapeutic:  maxFloat(m.Therapeutic, other.Therapeutic),
		Physics:      maxFloat(m.Physics, other.Physics),
		Druggability: maxFloat(m.Druggability, other.Druggability),
		Confidence:   maxFloat(m.Confidence, other.Confidence),
		Aggregation:  maxFloat(m.Aggregation, other.Aggregation),
		Feasibility:  maxFloat(m.Feasibility, other.Feasibility),
	}
}

// Raw is a single discovery record as produced by the external source.
// Immutable once read.
type Raw struct {
	Sequence string  `json:"sequence"`
	Label    string  `json:"label"`
	Metrics  Metrics `json:"metrics"`
}

// FromMap builds a Raw record from a source key-value mapping.
// It accepts the canonical layout (nested "metrics" sub-map with *_score
// names) plus the known alternate layouts older exports used: a "scores"
// sub-map, and flat metric keys at the top level. A record without a
// non-empty sequence is rejected with ErrMalformedInput.
func FromMap(m map[string]interface{}) (Raw, error) {
	seq := stringValue(m, "sequence", "seq")
	if strings.TrimSpace(seq) == "" {
		return Raw{}, core.NewMalformedInputError("record has no sequence")
	}

	metricsMap := subMap(m, "metrics")
	if metricsMap == nil {
		metricsMap = subMap(m, "scores")
	}
	if metricsMap == nil {
		// Legacy flat layout: metric keys live beside the sequence
		metricsMap = m
	}

	r := Raw{
		Sequence: seq,
		Label:    stringValue(m, "label", "name"),
		Metrics: Metrics{
			Novelty:      metricValue(metricsMap, 0, "novelty_score", "novelty"),
			Research:     metricValue(metricsMap, 0, "research_score", "research"),
			Therapeutic:  metricValue(metricsMap, 0, "therapeutic_potential", "therapeutic"),
			Physics:      metricValue(metricsMap, 0, "physics_validation", "physics"),
			Druggability: metricValue(metricsMap, 0, "druggability"),
			Confidence:   metricValue(metricsMap, 0, "confidence"),
			Aggregation:  metricValue(metricsMap, 0, "aggregation_propensity", "aggregation"),
			Feasibility:  metricValue(metricsMap, DefaultFeasibility, "feasibility"),
		},
	}
	return r, nil
}

// Placeholder builds an empty-sequence record that preserves the label of
// a row FromMap rejected. Sources keep such rows in the batch so the
// dedupe stage reports them as skips instead of losing them silently.
func Placeholder(m map[string]interface{}) Raw {
	return Raw{Label: stringValue(m, "label", "name")}
}

// subMap extracts a nested string-keyed map, tolerating both decoded-JSON
// and native map types.
func subMap(m map[string]interface{}, key string) map[string]interface{} {
	v, ok := m[key]
	if !ok {
		return nil
	}
	sub, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return sub
}

// stringValue returns the first present non-empty string among keys.
func stringValue(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// metricValue returns the first present numeric value among keys, falling
// back to def. Sources deliver numbers as float64 (JSON), integers (graph
// drivers), or strings (spreadsheet cells).
func metricValue(m map[string]interface{}, def float64, keys ...string) float64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		if f, ok := coerceFloat(v); ok {
			return f
		}
	}
	return def
}

func coerceFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case fmt.Stringer:
		f, err := strconv.ParseFloat(strings.TrimSpace(n.String()), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
