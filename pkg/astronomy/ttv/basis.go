package ttv

import (
	errorsmod "cosmossdk.io/errors"
)

// BasisFunc returns one perturbation coefficient per transit number 0..count-1
// for a perturber of the given period whose reference epoch is perturberEpoch.
// The coefficients are the timing offsets produced by a perturber of unit mass.
type BasisFunc func(planetPeriod, perturberPeriod, planetEpoch, perturberEpoch float64, count int) []float64

// Basis is a pair of basis-function families, one for perturbers interior to
// the transiting planet's orbit and one for perturbers exterior to it.
type Basis struct {
	// Inner is used when the transiting planet is the inner body (perturber period > planet period)
	Inner BasisFunc
	// Outer is used when the transiting planet is the outer body
	Outer BasisFunc
}

// Select returns the family for a perturber of the given period
func (b Basis) Select(planetPeriod, perturberPeriod float64) BasisFunc {
	if perturberPeriod > planetPeriod {
		return b.Inner
	}
	return b.Outer
}

func (b Basis) validate() error {
	if b.Inner == nil || b.Outer == nil {
		return errorsmod.Wrap(ErrInvalidConfig, "both inner and outer basis functions are required")
	}
	return nil
}
