package transit

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObservations(t *testing.T) {
	tests := []struct {
		name    string
		indices []int
		times   []float64
		unc     []float64
		wantErr error
	}{
		{
			name:    "valid",
			indices: []int{0, 1, 3},
			times:   []float64{10, 15, 25},
			unc:     []float64{0.1, 0.1, 0.2},
		},
		{
			name:    "duplicates and unsorted allowed",
			indices: []int{4, 0, 4, 2},
			times:   []float64{30, 10, 30.01, 20},
			unc:     []float64{0.1, 0.1, 0.1, 0.1},
		},
		{
			name:    "negative index",
			indices: []int{0, -1, 2},
			times:   []float64{10, 15, 20},
			unc:     []float64{0.1, 0.1, 0.1},
			wantErr: ErrNegativeIndex,
		},
		{
			name:    "negative index wins over length mismatch",
			indices: []int{-1, 2},
			times:   []float64{10},
			unc:     []float64{0.1},
			wantErr: ErrNegativeIndex,
		},
		{
			name:    "empty",
			wantErr: ErrInvalidObservations,
		},
		{
			name:    "length mismatch",
			indices: []int{0, 1},
			times:   []float64{10},
			unc:     []float64{0.1, 0.1},
			wantErr: ErrInvalidObservations,
		},
		{
			name:    "zero uncertainty",
			indices: []int{0, 1},
			times:   []float64{10, 15},
			unc:     []float64{0.1, 0},
			wantErr: ErrInvalidObservations,
		},
		{
			name:    "NaN uncertainty",
			indices: []int{0, 1},
			times:   []float64{10, 15},
			unc:     []float64{math.NaN(), 0.1},
			wantErr: ErrInvalidObservations,
		},
		{
			name:    "infinite time",
			indices: []int{0, 1},
			times:   []float64{10, math.Inf(1)},
			unc:     []float64{0.1, 0.1},
			wantErr: ErrInvalidObservations,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := NewObservations(tt.indices, tt.times, tt.unc)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.indices), obs.Len())
		})
	}
}

func TestNewObservationsCopiesInput(t *testing.T) {
	indices := []int{0, 1}
	times := []float64{10, 15}
	unc := []float64{0.1, 0.1}

	obs, err := NewObservations(indices, times, unc)
	require.NoError(t, err)

	indices[0] = -5
	times[0] = 0
	assert.Equal(t, 0, obs.Indices()[0])
	assert.Equal(t, 10.0, obs.Times()[0])
}

func TestLinearEphemeris(t *testing.T) {
	truth := Ephemeris{Epoch: 2458325.5, Period: 125.85}
	indices := []int{0, 1, 2, 5, 7, 7}
	times := make([]float64, len(indices))
	unc := make([]float64, len(indices))
	for i, n := range indices {
		times[i] = truth.TransitTime(n)
		unc[i] = 0.01 * float64(i+1)
	}

	obs, err := NewObservations(indices, times, unc)
	require.NoError(t, err)

	eph, err := obs.LinearEphemeris()
	require.NoError(t, err)
	assert.InDelta(t, truth.Epoch, eph.Epoch, 1e-6)
	assert.InDelta(t, truth.Period, eph.Period, 1e-8)
}

func TestLinearEphemerisUnweighted(t *testing.T) {
	// symmetric scatter about a line: unweighted fit returns the line
	obs, err := NewObservations(
		[]int{0, 0, 1, 1},
		[]float64{-1, 1, 9, 11},
		[]float64{0.1, 10, 0.1, 10},
	)
	require.NoError(t, err)

	eph, err := obs.LinearEphemeris()
	require.NoError(t, err)
	assert.InDelta(t, 0, eph.Epoch, 1e-12)
	assert.InDelta(t, 10, eph.Period, 1e-12)
}

func TestLinearEphemerisSingleEpoch(t *testing.T) {
	obs, err := NewObservations([]int{3, 3}, []float64{10, 10.1}, []float64{0.1, 0.1})
	require.NoError(t, err)

	_, err = obs.LinearEphemeris()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEphemerisFit))
}

func TestMaxIndex(t *testing.T) {
	obs, err := NewObservations([]int{4, 0, 9, 2}, []float64{1, 2, 3, 4}, []float64{1, 1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 9, MaxIndex(obs))
}
