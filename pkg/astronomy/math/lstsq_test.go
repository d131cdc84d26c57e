package math

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLeastSquaresExactLine(t *testing.T) {
	// y = 3 + 2x
	a := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 1,
		1, 2,
		1, 3,
	})
	b := mat.NewVecDense(4, []float64{3, 5, 7, 9})

	x, rss, err := LeastSquares(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 3, x.AtVec(0), 1e-12)
	assert.InDelta(t, 2, x.AtVec(1), 1e-12)
	assert.InDelta(t, 0, rss, 1e-20)
}

func TestLeastSquaresResidual(t *testing.T) {
	// best constant for {0, 2} is 1, residual 2
	a := mat.NewDense(2, 1, []float64{1, 1})
	b := mat.NewVecDense(2, []float64{0, 2})

	x, rss, err := LeastSquares(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1, x.AtVec(0), 1e-12)
	assert.InDelta(t, 2, rss, 1e-12)
}

func TestLeastSquaresRankDeficientGivesMinimumNorm(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		1, 1, 0,
		1, 2, 0,
	})
	b := mat.NewVecDense(3, []float64{1, 2, 3})

	x, rss, err := LeastSquares(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1, x.AtVec(0), 1e-12)
	assert.InDelta(t, 1, x.AtVec(1), 1e-12)
	assert.InDelta(t, 0, x.AtVec(2), 1e-12)
	assert.InDelta(t, 0, rss, 1e-20)
}

func TestLeastSquaresShapeMismatch(t *testing.T) {
	a := mat.NewDense(3, 1, []float64{1, 1, 1})
	b := mat.NewVecDense(2, []float64{1, 2})

	_, _, err := LeastSquares(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))
}

func TestNormalCovariance(t *testing.T) {
	a := mat.NewDense(4, 2, []float64{
		1, 1,
		1, 0,
		1, 0,
		1, 0,
	})
	cov, err := NormalCovariance(a)
	require.NoError(t, err)
	// aᵀa = [[4 1] [1 1]], inverse = 1/3 [[1 -1] [-1 4]]
	assert.InDelta(t, 1.0/3, cov.At(0, 0), 1e-12)
	assert.InDelta(t, -1.0/3, cov.At(0, 1), 1e-12)
	assert.InDelta(t, 4.0/3, cov.At(1, 1), 1e-12)
}

func TestNormalCovarianceSingular(t *testing.T) {
	a := mat.NewDense(3, 2, []float64{
		1, 0,
		1, 0,
		1, 0,
	})
	_, err := NormalCovariance(a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSingular))
}
