package math

import (
	"math"

	errorsmod "cosmossdk.io/errors"
	"gonum.org/v1/gonum/mat"
)

// RankTolerance is the relative singular value cutoff used by LeastSquares.
// Singular values below RankTolerance times the largest are treated as zero.
const RankTolerance = 1e-13

// LeastSquares solves min |a*x - b|² for x using the SVD of a. When a is rank
// deficient the minimum-norm solution is returned. The second return value is
// the residual sum of squares.
func LeastSquares(a mat.Matrix, b mat.Vector) (*mat.VecDense, float64, error) {
	m, n := a.Dims()
	if b.Len() != m {
		return nil, 0, errorsmod.Wrapf(ErrShape, "design has %d rows, target has %d", m, b.Len())
	}
	if m == 0 || n == 0 {
		return nil, 0, errorsmod.Wrap(ErrShape, "empty design matrix")
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, 0, errorsmod.Wrap(ErrNotConverged, "SVD factorization failed")
	}
	rank := svd.Rank(RankTolerance)
	if rank == 0 {
		return nil, 0, errorsmod.Wrap(ErrSingular, "design matrix has rank zero")
	}

	x := mat.NewVecDense(n, nil)
	svd.SolveVecTo(x, b, rank)

	rss := ResidualSumOfSquares(a, x, b)
	if math.IsNaN(rss) || math.IsInf(rss, 0) {
		return nil, 0, errorsmod.Wrapf(ErrNonFinite, "residual sum of squares %v", rss)
	}
	return x, rss, nil
}

// ResidualSumOfSquares returns |a*x - b|²
func ResidualSumOfSquares(a mat.Matrix, x, b mat.Vector) float64 {
	var r mat.VecDense
	r.MulVec(a, x)
	r.SubVec(&r, b)
	return mat.Dot(&r, &r)
}

// NormalCovariance returns (aᵀa)⁻¹, the parameter covariance of a weighted
// linear least-squares problem whose rows are already divided by their
// uncertainties.
func NormalCovariance(a mat.Matrix) (*mat.SymDense, error) {
	_, n := a.Dims()
	var ata mat.SymDense
	ata.SymOuterK(1, a.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&ata); !ok {
		return nil, errorsmod.Wrap(ErrSingular, "normal matrix is not positive definite")
	}
	cov := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, errorsmod.Wrapf(ErrSingular, "inverting normal matrix: %v", err)
	}
	return cov, nil
}
