package ttv

import (
	"math"

	errorsmod "cosmossdk.io/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// PhaseMarginal is the cumulative probability q(m) that the perturber mass is
// below m, marginalised over orbital phase with weights exp(-Δχ²/2) under a
// flat phase prior. At each phase the conditional mass posterior is a
// Gaussian of mean best and width sigma truncated to non-negative masses.
type PhaseMarginal struct {
	phases  []float64
	best    []float64
	sigma   []float64
	weights []float64 // exp(-Δχ²/2)
	norm    float64   // ∫ weights dφ

	// erf(best/σ/√2), independent of m
	erfBest []float64
	scratch []float64
}

// NewPhaseMarginal builds q(m) from per-phase fit outputs. phases must be
// strictly increasing and all slices must have the same length (at least 2).
func NewPhaseMarginal(phases, best, sigma, chisq []float64) (*PhaseMarginal, error) {
	n := len(phases)
	if n < 2 || len(best) != n || len(sigma) != n || len(chisq) != n {
		return nil, errorsmod.Wrapf(ErrInvalidConfig,
			"phase grid of %d points with %d/%d/%d fit values", n, len(best), len(sigma), len(chisq))
	}
	for i := 1; i < n; i++ {
		if !(phases[i] > phases[i-1]) {
			return nil, errorsmod.Wrap(ErrInvalidConfig, "phase grid must be strictly increasing")
		}
	}

	// centring on the mean keeps exp(-Δχ²/2) in range
	meanChisq := stat.Mean(chisq, nil)
	weights := make([]float64, n)
	for i, c := range chisq {
		weights[i] = math.Exp(-0.5 * (c - meanChisq))
	}
	norm := integrate.Trapezoidal(phases, weights)
	if !(norm > 0) || math.IsInf(norm, 0) {
		return nil, errorsmod.Wrapf(ErrNonFiniteMarginal, "phase likelihood normalisation %v", norm)
	}

	erfBest := make([]float64, n)
	for i := range best {
		erfBest[i] = math.Erf(best[i] / sigma[i] / math.Sqrt2)
	}

	return &PhaseMarginal{
		phases:  append([]float64(nil), phases...),
		best:    append([]float64(nil), best...),
		sigma:   append([]float64(nil), sigma...),
		weights: weights,
		norm:    norm,
		erfBest: erfBest,
		scratch: make([]float64, n),
	}, nil
}

// CDF returns q(m). It is not safe for concurrent use.
func (p *PhaseMarginal) CDF(m float64) float64 {
	for i := range p.phases {
		p.scratch[i] = truncatedGaussianCDF(m, p.best[i], p.sigma[i], p.erfBest[i])
	}
	floats.Mul(p.scratch, p.weights)
	return integrate.Trapezoidal(p.phases, p.scratch) / p.norm
}

// Weights returns the relative phase likelihoods exp(-Δχ²/2)
func (p *PhaseMarginal) Weights() []float64 {
	return append([]float64(nil), p.weights...)
}

// QIntegrand is the probability that a Gaussian of mean best and width sigma,
// truncated to non-negative values, lies below m.
func QIntegrand(m, best, sigma float64) float64 {
	return truncatedGaussianCDF(m, best, sigma, math.Erf(best/sigma/math.Sqrt2))
}

func truncatedGaussianCDF(m, best, sigma, erfBest float64) float64 {
	num := erfBest + math.Erf((m-best)/sigma/math.Sqrt2)
	return num / (1 + erfBest)
}
