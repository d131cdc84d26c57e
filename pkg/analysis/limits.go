package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/oxygene76/ttv-limits/internal/types"
	"github.com/oxygene76/ttv-limits/pkg/astronomy/transit"
	"github.com/oxygene76/ttv-limits/pkg/astronomy/ttv"
)

// Manager handles all analysis operations
type Manager struct {
	solver *ttv.LimitSolver
	logger *logrus.Entry
}

// NewManager creates a new analysis manager
func NewManager(solver *ttv.LimitSolver, logger *logrus.Entry) (*Manager, error) {
	if solver == nil {
		return nil, fmt.Errorf("limit solver is required")
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		solver: solver,
		logger: logger.WithField("component", "analysis"),
	}, nil
}

// ScanPeriods computes mass upper limits for every trial perturber period.
// The planet ephemeris is derived once from obs when eph is nil.
func (m *Manager) ScanPeriods(ctx context.Context, periods, confidenceLevels []float64,
	obs transit.ObservationSet, eph *transit.Ephemeris) (*types.LimitCurve, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("no perturber periods to scan")
	}
	if err := transit.Validate(obs); err != nil {
		return nil, err
	}
	if eph == nil {
		derived, err := obs.LinearEphemeris()
		if err != nil {
			return nil, fmt.Errorf("failed to derive planet ephemeris: %w", err)
		}
		eph = &derived
		m.logger.WithFields(logrus.Fields{
			"epoch":  eph.Epoch,
			"period": eph.Period,
		}).Info("Derived linear ephemeris from transit data")
	}

	curve := &types.LimitCurve{
		ConfidenceLevels: append([]float64(nil), confidenceLevels...),
		PlanetEpoch:      eph.Epoch,
		PlanetPeriod:     eph.Period,
		PhaseSamples:     m.solver.Config().PhaseSamples,
		NumTransits:      len(obs.Indices()),
		Points:           make([]types.LimitPoint, 0, len(periods)),
	}

	m.logger.Infof("Scanning %d perturber periods at %d confidence levels", len(periods), len(confidenceLevels))
	for i, period := range periods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		limits, err := m.solver.MassUpperLimits(ctx, period, confidenceLevels, obs, eph)
		if err != nil {
			return nil, fmt.Errorf("mass limit at period %g failed: %w", period, err)
		}
		curve.Points = append(curve.Points, types.LimitPoint{
			PerturberPeriod: period,
			Limits:          limits,
			Interior:        period < eph.Period,
		})
		m.logger.WithFields(logrus.Fields{
			"step":             i + 1,
			"perturber_period": period,
			"limits":           limits,
		}).Info("Period done")
	}

	return curve, nil
}

// AnalyzeMassLimits runs a period scan and wraps it in an analysis record
func (m *Manager) AnalyzeMassLimits(ctx context.Context, periods, confidenceLevels []float64,
	obs transit.ObservationSet, eph *transit.Ephemeris) (*types.AnalysisResult, error) {
	start := time.Now()

	curve, err := m.ScanPeriods(ctx, periods, confidenceLevels, obs, eph)
	if err != nil {
		return nil, fmt.Errorf("mass limit analysis failed: %w", err)
	}

	minPeriod, maxPeriod := math.Inf(1), math.Inf(-1)
	for _, p := range periods {
		minPeriod = math.Min(minPeriod, p)
		maxPeriod = math.Max(maxPeriod, p)
	}

	result := &types.AnalysisResult{
		ID:           fmt.Sprintf("mass_limits_%d", start.UnixNano()),
		AnalysisType: "ttv_mass_limits",
		Status:       "completed",
		Curve:        curve,
		Metadata: map[string]string{
			"num_transits":  fmt.Sprintf("%d", curve.NumTransits),
			"num_periods":   fmt.Sprintf("%d", len(periods)),
			"period_range":  fmt.Sprintf("%g-%g", minPeriod, maxPeriod),
			"phase_samples": fmt.Sprintf("%d", curve.PhaseSamples),
			"method":        "phase_marginalized_linear_fit",
		},
		Timestamp: start,
		Duration:  time.Since(start),
	}

	m.logger.Infof("Mass limit analysis completed in %v", result.Duration)
	return result, nil
}

// PeriodGrid returns n trial periods spaced evenly in log between lo and hi
func PeriodGrid(lo, hi float64, n int) ([]float64, error) {
	if !(lo > 0) || !(hi > lo) || n < 1 {
		return nil, fmt.Errorf("invalid period grid [%g, %g] with %d points", lo, hi, n)
	}
	if n == 1 {
		return []float64{lo}, nil
	}
	return floats.LogSpan(make([]float64, n), lo, hi), nil
}
