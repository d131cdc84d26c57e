package math

import (
	"math"

	errorsmod "cosmossdk.io/errors"
	"gonum.org/v1/gonum/floats"
)

const machineEpsilon = 2.220446049250313e-16

// Brent finds a root of f in [a, b] with Brent's method (inverse quadratic
// interpolation guarded by bisection). f(a) and f(b) must have opposite signs
// or one of them must be zero. The root is located to within
// tol + 4·eps·|root|.
func Brent(f func(float64) float64, a, b, tol float64, maxIter int) (float64, error) {
	fa, fb := f(a), f(b)
	if !isFinite(fa) || !isFinite(fb) {
		return 0, errorsmod.Wrapf(ErrNonFinite, "f(%g)=%g, f(%g)=%g", a, fa, b, fb)
	}
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if math.Signbit(fa) == math.Signbit(fb) {
		return 0, errorsmod.Wrapf(ErrNoBracket, "f(%g)=%g, f(%g)=%g", a, fa, b, fb)
	}

	c, fc := a, fa
	d := b - a
	e := d
	for i := 0; i < maxIter; i++ {
		if (fb > 0 && fc > 0) || (fb < 0 && fc < 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		// keep b as the best estimate
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol1 := 2*machineEpsilon*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			s := fb / fa
			var p, q float64
			if a == c {
				// secant
				p = 2 * xm * s
				q = 1 - s
			} else {
				// inverse quadratic interpolation
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*xm*q-math.Abs(tol1*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
		if !isFinite(fb) {
			return 0, errorsmod.Wrapf(ErrNonFinite, "f(%g)=%g", b, fb)
		}
	}
	return 0, errorsmod.Wrapf(ErrNotConverged, "Brent: no root within %d iterations", maxIter)
}

// Linspace returns n evenly spaced points over [lo, hi], both ends included.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
