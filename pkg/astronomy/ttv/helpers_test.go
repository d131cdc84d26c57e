package ttv

import (
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/oxygene76/ttv-limits/pkg/astronomy/transit"
)

// sinusoid is a synodic-chopping style basis: the offset at transit n
// oscillates with the perturber's orbital phase at the time of that transit.
func sinusoid(sign float64) BasisFunc {
	return func(planetPeriod, perturberPeriod, planetEpoch, perturberEpoch float64, count int) []float64 {
		out := make([]float64, count)
		for n := range out {
			t := planetEpoch + float64(n)*planetPeriod
			out[n] = sign * planetPeriod / (2 * math.Pi) * math.Sin(2*math.Pi*(t-perturberEpoch)/perturberPeriod)
		}
		return out
	}
}

func testBasis() Basis {
	return Basis{Inner: sinusoid(1), Outer: sinusoid(-1)}
}

// countingBasis wraps a basis and counts evaluations
type countingBasis struct {
	inner, outer atomic.Int64
}

func (c *countingBasis) basis() Basis {
	b := testBasis()
	return Basis{
		Inner: func(p, pp, t0, tp float64, count int) []float64 {
			c.inner.Add(1)
			return b.Inner(p, pp, t0, tp, count)
		},
		Outer: func(p, pp, t0, tp float64, count int) []float64 {
			c.outer.Add(1)
			return b.Outer(p, pp, t0, tp, count)
		},
	}
}

func (c *countingBasis) calls() int64 {
	return c.inner.Load() + c.outer.Load()
}

// rawObservations is an ObservationSet that skips construction-time validation
type rawObservations struct {
	indices  []int
	times    []float64
	unc      []float64
	ephCalls atomic.Int64
}

func (r *rawObservations) Indices() []int           { return r.indices }
func (r *rawObservations) Times() []float64         { return r.times }
func (r *rawObservations) Uncertainties() []float64 { return r.unc }
func (r *rawObservations) LinearEphemeris() (transit.Ephemeris, error) {
	r.ephCalls.Add(1)
	return transit.FitEphemeris(r.indices, r.times)
}

type synthetic struct {
	eph             transit.Ephemeris
	transits        int
	uncertainty     float64
	perturberPeriod float64
	phase           float64
	amplitude       float64
	noiseSeed       int64 // zero means noise-free
}

// observations generates transit times from a linear ephemeris plus
// amplitude times the test basis.
func (s synthetic) observations(t *testing.T) *transit.Observations {
	t.Helper()
	indices := make([]int, s.transits)
	times := make([]float64, s.transits)
	unc := make([]float64, s.transits)

	trialEpoch := s.perturberPeriod * s.phase / (2 * math.Pi)
	coeffs := testBasis().Select(s.eph.Period, s.perturberPeriod)(s.eph.Period, s.perturberPeriod, s.eph.Epoch, trialEpoch, s.transits)

	var rng *rand.Rand
	if s.noiseSeed != 0 {
		rng = rand.New(rand.NewSource(s.noiseSeed))
	}
	for n := 0; n < s.transits; n++ {
		indices[n] = n
		unc[n] = s.uncertainty
		times[n] = s.eph.TransitTime(n) + s.amplitude*coeffs[n]
		if rng != nil {
			times[n] += s.uncertainty * rng.NormFloat64()
		}
	}

	obs, err := transit.NewObservations(indices, times, unc)
	require.NoError(t, err)
	return obs
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return logrus.NewEntry(l)
}

func newTestEstimator(t *testing.T, b Basis) *Estimator {
	t.Helper()
	est, err := NewEstimator(b, quietLogger())
	require.NoError(t, err)
	return est
}
