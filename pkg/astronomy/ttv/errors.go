package ttv

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error codespace for TTV estimation
const Codespace = "ttv"

var (
	// ErrInvalidPeriod is returned for a non-positive or non-finite perturber period
	ErrInvalidPeriod = errorsmod.Register(Codespace, 2, "invalid perturber period")
	// ErrInvalidConfidenceLevel is returned for confidence levels outside [0, 1)
	ErrInvalidConfidenceLevel = errorsmod.Register(Codespace, 3, "invalid confidence level")
	// ErrBasisLength is returned when a basis function yields the wrong number of coefficients
	ErrBasisLength = errorsmod.Register(Codespace, 4, "basis function length mismatch")
	// ErrSingularDesign is returned when the design matrix cannot be solved or inverted
	ErrSingularDesign = errorsmod.Register(Codespace, 5, "singular design matrix")
	// ErrBracketNotFound is returned when the mass upper bound search exceeds its doubling budget
	ErrBracketNotFound = errorsmod.Register(Codespace, 6, "mass upper bound search did not bracket the confidence level")
	// ErrNonFiniteMarginal is returned when the phase-marginal probability evaluates to NaN or ±Inf
	ErrNonFiniteMarginal = errorsmod.Register(Codespace, 7, "non-finite phase-marginal probability")
	// ErrInvalidConfig is returned for unusable solver settings
	ErrInvalidConfig = errorsmod.Register(Codespace, 8, "invalid solver configuration")
)
