package math

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error codespace for the numeric primitives
const Codespace = "astromath"

var (
	// ErrShape is returned when operand dimensions do not agree
	ErrShape = errorsmod.Register(Codespace, 2, "dimension mismatch")
	// ErrSingular is returned when a normal matrix cannot be inverted
	ErrSingular = errorsmod.Register(Codespace, 3, "singular matrix")
	// ErrNoBracket is returned when a root finder is given an interval that does not bracket a root
	ErrNoBracket = errorsmod.Register(Codespace, 4, "interval does not bracket a root")
	// ErrNotConverged is returned when an iterative method exhausts its iteration budget
	ErrNotConverged = errorsmod.Register(Codespace, 5, "iteration did not converge")
	// ErrNonFinite is returned when a function evaluates to NaN or ±Inf
	ErrNonFinite = errorsmod.Register(Codespace, 6, "non-finite function value")
)
