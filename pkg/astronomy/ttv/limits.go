package ttv

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	astromath "github.com/oxygene76/ttv-limits/pkg/astronomy/math"
	"github.com/oxygene76/ttv-limits/pkg/astronomy/transit"
)

// Solver defaults
const (
	DefaultPhaseSamples     = 50
	DefaultInitialMassGuess = 3e-3
	DefaultMaxDoublings     = 64
	DefaultTolerance        = 2e-12
	DefaultMaxIterations    = 100
)

// SolverConfig holds the numerical settings of the limit solver
type SolverConfig struct {
	PhaseSamples     int     // points on the [-π, π] phase grid
	InitialMassGuess float64 // starting upper bound for the root bracket
	MaxDoublings     int     // cap on bracket doublings
	Tolerance        float64 // absolute root tolerance in mass units
	MaxIterations    int     // Brent iteration budget per confidence level
	Workers          int     // concurrent phase evaluations, 0 means GOMAXPROCS
}

// DefaultSolverConfig returns the standard solver settings
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		PhaseSamples:     DefaultPhaseSamples,
		InitialMassGuess: DefaultInitialMassGuess,
		MaxDoublings:     DefaultMaxDoublings,
		Tolerance:        DefaultTolerance,
		MaxIterations:    DefaultMaxIterations,
	}
}

// Validate checks the solver settings
func (c SolverConfig) Validate() error {
	if c.PhaseSamples < 2 {
		return errorsmod.Wrapf(ErrInvalidConfig, "phase samples must be at least 2, got %d", c.PhaseSamples)
	}
	if !(c.InitialMassGuess > 0) || math.IsInf(c.InitialMassGuess, 0) {
		return errorsmod.Wrapf(ErrInvalidConfig, "initial mass guess must be positive, got %v", c.InitialMassGuess)
	}
	if c.MaxDoublings < 0 {
		return errorsmod.Wrapf(ErrInvalidConfig, "max doublings must be non-negative, got %d", c.MaxDoublings)
	}
	if !(c.Tolerance > 0) {
		return errorsmod.Wrapf(ErrInvalidConfig, "tolerance must be positive, got %v", c.Tolerance)
	}
	if c.MaxIterations <= 0 {
		return errorsmod.Wrapf(ErrInvalidConfig, "max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Workers < 0 {
		return errorsmod.Wrapf(ErrInvalidConfig, "workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// PhaseScan holds the per-phase estimator outputs for one perturber period
type PhaseScan struct {
	Phases     []float64
	Best       []float64
	Sigma      []float64
	ChiSquared []float64
}

// LimitSolver computes phase-marginalised perturber mass upper limits
type LimitSolver struct {
	estimator *Estimator
	config    SolverConfig
	logger    *logrus.Entry
}

// NewLimitSolver creates a limit solver around an estimator
func NewLimitSolver(estimator *Estimator, config SolverConfig, logger *logrus.Entry) (*LimitSolver, error) {
	if estimator == nil {
		return nil, errorsmod.Wrap(ErrInvalidConfig, "estimator is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LimitSolver{
		estimator: estimator,
		config:    config,
		logger:    logger.WithField("component", "limit_solver"),
	}, nil
}

// Config returns the solver settings
func (s *LimitSolver) Config() SolverConfig {
	return s.config
}

// MassUpperLimits returns, for each confidence level, the perturber mass below
// which the phase-marginalised probability reaches that level. Limits are
// returned in the order the levels are given.
func (s *LimitSolver) MassUpperLimits(ctx context.Context, perturberPeriod float64, confidenceLevels []float64,
	obs transit.ObservationSet, eph *transit.Ephemeris) ([]float64, error) {
	if err := validateConfidenceLevels(confidenceLevels); err != nil {
		return nil, err
	}

	start := time.Now()
	scan, err := s.ScanPhases(ctx, perturberPeriod, obs, eph)
	if err != nil {
		return nil, err
	}

	marginal, err := NewPhaseMarginal(scan.Phases, scan.Best, scan.Sigma, scan.ChiSquared)
	if err != nil {
		return nil, fmt.Errorf("period %g: %w", perturberPeriod, err)
	}

	limits := make([]float64, len(confidenceLevels))
	for i, cl := range confidenceLevels {
		limit, err := s.solveLevel(marginal, cl)
		if err != nil {
			return nil, fmt.Errorf("period %g, confidence level %g: %w", perturberPeriod, cl, err)
		}
		limits[i] = limit
	}

	s.logger.WithFields(logrus.Fields{
		"perturber_period":  perturberPeriod,
		"confidence_levels": confidenceLevels,
		"limits":            limits,
		"duration":          time.Since(start),
	}).Debug("mass upper limits solved")

	return limits, nil
}

// ScanPhases runs the estimator at every point of the phase grid. Phases are
// evaluated concurrently; the first failure cancels the scan.
func (s *LimitSolver) ScanPhases(ctx context.Context, perturberPeriod float64, obs transit.ObservationSet, eph *transit.Ephemeris) (*PhaseScan, error) {
	// checked once up front so a bad set fails before any goroutine starts
	if err := transit.Validate(obs); err != nil {
		return nil, err
	}
	if eph == nil {
		derived, err := obs.LinearEphemeris()
		if err != nil {
			return nil, err
		}
		eph = &derived
	}

	n := s.config.PhaseSamples
	scan := &PhaseScan{
		Phases:     astromath.Linspace(-math.Pi, math.Pi, n),
		Best:       make([]float64, n),
		Sigma:      make([]float64, n),
		ChiSquared: make([]float64, n),
	}

	workers := s.config.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, phase := range scan.Phases {
		i, phase := i, phase
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fit, err := s.estimator.Estimate(perturberPeriod, phase, obs, eph)
			if err != nil {
				return fmt.Errorf("phase %g: %w", phase, err)
			}
			scan.Best[i] = fit.Amplitude
			scan.Sigma[i] = fit.Sigma
			scan.ChiSquared[i] = fit.ChiSquared
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("phase scan at period %g: %w", perturberPeriod, err)
	}
	return scan, nil
}

// solveLevel brackets and solves q(m) = cl on [0, Mmax]
func (s *LimitSolver) solveLevel(marginal *PhaseMarginal, cl float64) (float64, error) {
	upper, err := s.bracket(marginal, cl)
	if err != nil {
		return 0, err
	}
	root, err := astromath.Brent(func(m float64) float64 {
		return marginal.CDF(m) - cl
	}, 0, upper, s.config.Tolerance, s.config.MaxIterations)
	if err != nil {
		return 0, fmt.Errorf("root finding on [0, %g]: %w", upper, err)
	}
	return root, nil
}

// bracket doubles the initial guess until q(Mmax) ≥ cl
func (s *LimitSolver) bracket(marginal *PhaseMarginal, cl float64) (float64, error) {
	upper := s.config.InitialMassGuess
	for doublings := 0; ; doublings++ {
		q := marginal.CDF(upper)
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return 0, errorsmod.Wrapf(ErrNonFiniteMarginal, "q(%g) = %v", upper, q)
		}
		if q >= cl {
			return upper, nil
		}
		if doublings == s.config.MaxDoublings {
			return 0, errorsmod.Wrapf(ErrBracketNotFound, "q(%g) = %g after %d doublings", upper, q, doublings)
		}
		upper *= 2
	}
}

func validateConfidenceLevels(levels []float64) error {
	if len(levels) == 0 {
		return errorsmod.Wrap(ErrInvalidConfidenceLevel, "no confidence levels requested")
	}
	for _, cl := range levels {
		if !(cl >= 0 && cl < 1) {
			return errorsmod.Wrapf(ErrInvalidConfidenceLevel, "%.2f is not a valid confidence level between 0 and 1", cl)
		}
	}
	return nil
}
