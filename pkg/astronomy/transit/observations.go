package transit

import (
	"fmt"
	"math"

	errorsmod "cosmossdk.io/errors"
	"gonum.org/v1/gonum/mat"

	astromath "github.com/oxygene76/ttv-limits/pkg/astronomy/math"
)

// Codespace is the error codespace for transit observation handling
const Codespace = "transit"

var (
	// ErrNegativeIndex is returned when an observation carries a transit index below zero
	ErrNegativeIndex = errorsmod.Register(Codespace, 2, "negative transit index")
	// ErrInvalidObservations is returned for malformed observation sets
	ErrInvalidObservations = errorsmod.Register(Codespace, 3, "invalid observation set")
	// ErrEphemerisFit is returned when a linear ephemeris cannot be derived from the data
	ErrEphemerisFit = errorsmod.Register(Codespace, 4, "linear ephemeris fit failed")
)

// Ephemeris is the unperturbed linear timing model of the transiting planet
type Ephemeris struct {
	Epoch  float64 `json:"epoch" yaml:"epoch"`   // T0, time of transit number zero
	Period float64 `json:"period" yaml:"period"` // P, same time unit as Epoch
}

// TransitTime returns the predicted time of transit number n
func (e Ephemeris) TransitTime(n int) float64 {
	return e.Epoch + float64(n)*e.Period
}

// ObservationSet gives read access to aligned transit timing data.
//
// Indices, Times and Uncertainties must have equal length. Implementations
// must not mutate the returned slices while a computation is running.
type ObservationSet interface {
	Indices() []int
	Times() []float64
	Uncertainties() []float64
	// LinearEphemeris fits (T0, P) to the data when none is supplied by the caller.
	LinearEphemeris() (Ephemeris, error)
}

// Observations is an ObservationSet backed by three parallel slices
type Observations struct {
	indices       []int
	times         []float64
	uncertainties []float64
}

// NewObservations copies and validates the given timing data
func NewObservations(indices []int, times, uncertainties []float64) (*Observations, error) {
	obs := &Observations{
		indices:       append([]int(nil), indices...),
		times:         append([]float64(nil), times...),
		uncertainties: append([]float64(nil), uncertainties...),
	}
	if err := Validate(obs); err != nil {
		return nil, err
	}
	return obs, nil
}

// Indices returns the transit number of each observation
func (o *Observations) Indices() []int { return o.indices }

// Times returns the observed mid-transit times
func (o *Observations) Times() []float64 { return o.times }

// Uncertainties returns the 1σ timing uncertainties
func (o *Observations) Uncertainties() []float64 { return o.uncertainties }

// Len returns the number of observations
func (o *Observations) Len() int { return len(o.indices) }

// LinearEphemeris fits time = T0 + n·P by unweighted least squares
func (o *Observations) LinearEphemeris() (Ephemeris, error) {
	return FitEphemeris(o.indices, o.times)
}

// FitEphemeris performs an unweighted least-squares regression of transit
// time on transit number. At least two distinct transit numbers are needed.
func FitEphemeris(indices []int, times []float64) (Ephemeris, error) {
	if len(indices) != len(times) {
		return Ephemeris{}, errorsmod.Wrapf(ErrInvalidObservations,
			"%d indices but %d times", len(indices), len(times))
	}
	if !hasDistinct(indices) {
		return Ephemeris{}, errorsmod.Wrap(ErrEphemerisFit, "need at least two distinct transit numbers")
	}

	n := len(indices)
	a := mat.NewDense(n, 2, nil)
	for i, idx := range indices {
		a.Set(i, 0, 1)
		a.Set(i, 1, float64(idx))
	}
	b := mat.NewVecDense(n, append([]float64(nil), times...))

	x, _, err := astromath.LeastSquares(a, b)
	if err != nil {
		return Ephemeris{}, errorsmod.Wrapf(ErrEphemerisFit, "%v", err)
	}
	return Ephemeris{Epoch: x.AtVec(0), Period: x.AtVec(1)}, nil
}

// MaxIndex returns the largest transit number in the set
func MaxIndex(obs ObservationSet) int {
	maxIdx := 0
	for _, n := range obs.Indices() {
		if n > maxIdx {
			maxIdx = n
		}
	}
	return maxIdx
}

// Validate checks the observation set invariants: non-empty, aligned
// sequences, non-negative transit numbers, finite times and strictly
// positive finite uncertainties.
func Validate(obs ObservationSet) error {
	if obs == nil {
		return errorsmod.Wrap(ErrInvalidObservations, "nil observation set")
	}
	indices, times, unc := obs.Indices(), obs.Times(), obs.Uncertainties()

	// indices first: a negative transit number rejects the set before anything else is inspected
	for i, n := range indices {
		if n < 0 {
			return errorsmod.Wrapf(ErrNegativeIndex, "observation %d has transit number %d", i, n)
		}
	}
	if len(indices) == 0 {
		return errorsmod.Wrap(ErrInvalidObservations, "no observations")
	}
	if len(times) != len(indices) || len(unc) != len(indices) {
		return errorsmod.Wrap(ErrInvalidObservations, fmt.Sprintf(
			"length mismatch: %d indices, %d times, %d uncertainties", len(indices), len(times), len(unc)))
	}
	for i := range indices {
		if math.IsNaN(times[i]) || math.IsInf(times[i], 0) {
			return errorsmod.Wrapf(ErrInvalidObservations, "observation %d has non-finite time %v", i, times[i])
		}
		if !(unc[i] > 0) || math.IsInf(unc[i], 0) {
			return errorsmod.Wrapf(ErrInvalidObservations, "observation %d has uncertainty %v", i, unc[i])
		}
	}
	return nil
}

func hasDistinct(indices []int) bool {
	for _, n := range indices {
		if n != indices[0] {
			return true
		}
	}
	return false
}
