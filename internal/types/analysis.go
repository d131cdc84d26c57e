package types

import (
	"time"
)

// AnalysisResult represents the result of an analysis operation
type AnalysisResult struct {
	ID           string            `json:"id" yaml:"id"`
	AnalysisType string            `json:"analysis_type" yaml:"analysis_type"`
	Status       string            `json:"status" yaml:"status"`
	Curve        *LimitCurve       `json:"curve,omitempty" yaml:"curve,omitempty"`
	Metadata     map[string]string `json:"metadata" yaml:"metadata"`
	Timestamp    time.Time         `json:"timestamp" yaml:"timestamp"`
	Duration     time.Duration     `json:"duration" yaml:"duration"`
	Error        string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// LimitCurve holds perturber mass upper limits as a function of period
type LimitCurve struct {
	ConfidenceLevels []float64    `json:"confidence_levels" yaml:"confidence_levels"`
	PlanetEpoch      float64      `json:"planet_epoch" yaml:"planet_epoch"`   // T0 used for the basis functions
	PlanetPeriod     float64      `json:"planet_period" yaml:"planet_period"` // P used for the basis functions
	PhaseSamples     int          `json:"phase_samples" yaml:"phase_samples"`
	NumTransits      int          `json:"num_transits" yaml:"num_transits"`
	Points           []LimitPoint `json:"points" yaml:"points"`
}

// LimitPoint is the set of mass upper limits at one trial perturber period
type LimitPoint struct {
	PerturberPeriod float64   `json:"perturber_period" yaml:"perturber_period"`
	Limits          []float64 `json:"limits" yaml:"limits"` // one per confidence level, same order
	Interior        bool      `json:"interior" yaml:"interior"` // perturber period shorter than the planet's
}

// LimitAt returns the limit at confidence level index i for every period
func (c *LimitCurve) LimitAt(i int) []float64 {
	out := make([]float64, len(c.Points))
	for j, p := range c.Points {
		if i < len(p.Limits) {
			out[j] = p.Limits[i]
		}
	}
	return out
}

// Periods returns the trial perturber periods in scan order
func (c *LimitCurve) Periods() []float64 {
	out := make([]float64, len(c.Points))
	for j, p := range c.Points {
		out[j] = p.PerturberPeriod
	}
	return out
}
