package ttv

import (
	"math"

	errorsmod "cosmossdk.io/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	astromath "github.com/oxygene76/ttv-limits/pkg/astronomy/math"
	"github.com/oxygene76/ttv-limits/pkg/astronomy/transit"
)

// Column layout of the timing model
const (
	colOffset    = 0 // constant offset (epoch correction)
	colPeriod    = 1 // linear in transit number (period correction)
	colAmplitude = 2 // perturbation basis (perturber mass)
	numParams    = 3
)

// FitResult is the outcome of a single (period, phase) fit
type FitResult struct {
	Amplitude  float64 // best-fit perturbation amplitude, interpretable as perturber mass
	Sigma      float64 // standard error of Amplitude
	ChiSquared float64 // weighted residual sum of squares

	// Constrained is set when the unconstrained amplitude was negative and
	// ChiSquared comes from the refit with amplitude held at zero.
	Constrained bool
	// ConstrainedFit holds the refit parameter vector when Constrained is set
	ConstrainedFit *mat.VecDense

	Diagnostics *Diagnostics
}

// Diagnostics carries the full linear-algebra state of a fit
type Diagnostics struct {
	BestFit     *mat.VecDense // unconstrained (offset, period, amplitude)
	Covariance  *mat.SymDense // (AᵀA)⁻¹
	Design      *mat.Dense    // weighted design matrix A, one row per observation
	WeightedObs *mat.VecDense // observed times divided by their uncertainties
	Ephemeris   transit.Ephemeris
	TrialEpoch  float64 // perturber reference time derived from the phase
}

// Estimator fits the linear TTV model for one trial perturber at a time
type Estimator struct {
	basis  Basis
	logger *logrus.Entry
}

// NewEstimator creates an estimator using the given basis-function families
func NewEstimator(basis Basis, logger *logrus.Entry) (*Estimator, error) {
	if err := basis.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Estimator{
		basis:  basis,
		logger: logger.WithField("component", "estimator"),
	}, nil
}

// Estimate fits offset, period correction and perturbation amplitude for a
// perturber of period perturberPeriod at orbital phase phase (radians). When
// eph is nil the linear ephemeris is derived from obs.
func (e *Estimator) Estimate(perturberPeriod, phase float64, obs transit.ObservationSet, eph *transit.Ephemeris) (*FitResult, error) {
	return e.estimate(perturberPeriod, phase, obs, eph, false)
}

// EstimateFull is Estimate with the Diagnostics bundle populated
func (e *Estimator) EstimateFull(perturberPeriod, phase float64, obs transit.ObservationSet, eph *transit.Ephemeris) (*FitResult, error) {
	return e.estimate(perturberPeriod, phase, obs, eph, true)
}

func (e *Estimator) estimate(perturberPeriod, phase float64, obs transit.ObservationSet, eph *transit.Ephemeris, full bool) (*FitResult, error) {
	if err := transit.Validate(obs); err != nil {
		return nil, err
	}
	if !(perturberPeriod > 0) || math.IsInf(perturberPeriod, 0) {
		return nil, errorsmod.Wrapf(ErrInvalidPeriod, "perturber period %v", perturberPeriod)
	}

	ephemeris, err := resolveEphemeris(obs, eph)
	if err != nil {
		return nil, err
	}

	design, yvec, trialEpoch, err := e.buildSystem(perturberPeriod, phase, obs, ephemeris)
	if err != nil {
		return nil, err
	}

	cov, err := astromath.NormalCovariance(design)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrSingularDesign, "period %g phase %g: %v", perturberPeriod, phase, err)
	}
	best, chisq, err := astromath.LeastSquares(design, yvec)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrSingularDesign, "period %g phase %g: %v", perturberPeriod, phase, err)
	}

	result := &FitResult{
		Amplitude:  best.AtVec(colAmplitude),
		Sigma:      math.Sqrt(cov.At(colAmplitude, colAmplitude)),
		ChiSquared: chisq,
	}

	// Masses are non-negative. Refit with the amplitude at its bound; only the
	// reported chi-squared changes, amplitude and sigma keep the unconstrained values.
	if result.Amplitude < 0 {
		refit, refitChisq, err := constrainedRefit(design, yvec, best)
		if err != nil {
			return nil, errorsmod.Wrapf(ErrSingularDesign, "constrained refit at period %g phase %g: %v", perturberPeriod, phase, err)
		}
		result.Constrained = true
		result.ConstrainedFit = refit
		result.ChiSquared = refitChisq
	}

	if full {
		result.Diagnostics = &Diagnostics{
			BestFit:     best,
			Covariance:  cov,
			Design:      design,
			WeightedObs: yvec,
			Ephemeris:   ephemeris,
			TrialEpoch:  trialEpoch,
		}
	}

	e.logger.WithFields(logrus.Fields{
		"perturber_period": perturberPeriod,
		"phase":            phase,
		"amplitude":        result.Amplitude,
		"sigma":            result.Sigma,
		"chi_squared":      result.ChiSquared,
		"constrained":      result.Constrained,
	}).Trace("fit complete")

	return result, nil
}

// buildSystem returns the weighted design matrix, the weighted observation
// vector and the perturber reference time for the given trial.
func (e *Estimator) buildSystem(perturberPeriod, phase float64, obs transit.ObservationSet, eph transit.Ephemeris) (*mat.Dense, *mat.VecDense, float64, error) {
	indices, times, unc := obs.Indices(), obs.Times(), obs.Uncertainties()
	count := transit.MaxIndex(obs) + 1
	trialEpoch := perturberPeriod * phase / (2 * math.Pi)

	basisFn := e.basis.Select(eph.Period, perturberPeriod)
	coeffs := basisFn(eph.Period, perturberPeriod, eph.Epoch, trialEpoch, count)
	if len(coeffs) != count {
		return nil, nil, 0, errorsmod.Wrapf(ErrBasisLength, "got %d coefficients for %d transits", len(coeffs), count)
	}

	// per-epoch rows [1, n, b(n)] expanded to one row per observation, scaled by 1/σ
	design := mat.NewDense(len(indices), numParams, nil)
	yvec := mat.NewVecDense(len(indices), nil)
	for i, n := range indices {
		w := 1 / unc[i]
		design.Set(i, colOffset, w)
		design.Set(i, colPeriod, float64(n)*w)
		design.Set(i, colAmplitude, coeffs[n]*w)
		yvec.SetVec(i, times[i]*w)
	}
	return design, yvec, trialEpoch, nil
}

// constrainedRefit minimises |A·x - y|² subject to x[amplitude] ≥ 0, starting
// from the unconstrained solution with the amplitude clamped to zero. The
// objective is convex and its unconstrained minimiser violates the bound, so
// the constrained minimiser lies on amplitude = 0 and the remaining
// parameters solve the reduced problem.
func constrainedRefit(design *mat.Dense, yvec *mat.VecDense, best *mat.VecDense) (*mat.VecDense, float64, error) {
	x0 := mat.VecDenseCopyOf(best)
	x0.SetVec(colAmplitude, 0)

	rows, _ := design.Dims()
	reduced := design.Slice(0, rows, colOffset, colAmplitude)
	free, _, err := astromath.LeastSquares(reduced, yvec)
	if err != nil {
		return nil, 0, err
	}

	refit := mat.NewVecDense(numParams, []float64{free.AtVec(colOffset), free.AtVec(colPeriod), 0})
	chisq := astromath.ResidualSumOfSquares(design, refit, yvec)

	// never report a worse objective than the clamped starting point
	if start := astromath.ResidualSumOfSquares(design, x0, yvec); start < chisq {
		return x0, start, nil
	}
	return refit, chisq, nil
}

func resolveEphemeris(obs transit.ObservationSet, eph *transit.Ephemeris) (transit.Ephemeris, error) {
	if eph != nil {
		if !(eph.Period > 0) || math.IsInf(eph.Period, 0) || math.IsNaN(eph.Epoch) {
			return transit.Ephemeris{}, errorsmod.Wrapf(ErrInvalidPeriod, "planet ephemeris %+v", *eph)
		}
		return *eph, nil
	}
	derived, err := obs.LinearEphemeris()
	if err != nil {
		return transit.Ephemeris{}, err
	}
	return derived, nil
}
