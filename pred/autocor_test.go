package pred

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/maj-tki/goeta/utils"
)

func armaBundle(ar, ma *mat.Dense, y []float64, lag []int) *Draws {
	return &Draws{
		S: 1, N: len(y),
		AC: &Autocor{AR: ar, MA: ma, Y: y, Lag: lag},
	}
}

// TestARRecursion walks an AR(1) with phi = 0.5 by hand: each predictor is
// half the previous observation's residual.
func TestARRecursion(t *testing.T) {
	d := armaBundle(
		mat.NewDense(1, 1, []float64{0.5}), nil,
		[]float64{1, 2, 3, 4}, []int{1, 1, 1, 1},
	)
	eta, err := Linear(d, nil)
	require.NoError(t, err)

	want := []float64{0, 0.5, 1, 1.5}
	for j, w := range want {
		assert.InDelta(t, w, eta.Dense.At(0, j), 1e-12, "observation %d", j)
	}
}

// TestARWithBaseline repeats the AR(1) walk on top of a constant offset;
// residuals are taken against the pre-AR predictor.
func TestARWithBaseline(t *testing.T) {
	d := armaBundle(
		mat.NewDense(1, 1, []float64{0.5}), nil,
		[]float64{1, 2, 3, 4}, []int{1, 1, 1, 1},
	)
	d.Offset = []float64{1, 1, 1, 1}
	eta, err := Linear(d, nil)
	require.NoError(t, err)

	want := []float64{1, 1, 1.5, 2}
	for j, w := range want {
		assert.InDelta(t, w, eta.Dense.At(0, j), 1e-12, "observation %d", j)
	}
}

func TestMARecursion(t *testing.T) {
	d := armaBundle(
		nil, mat.NewDense(1, 1, []float64{0.5}),
		[]float64{1, 1, 1}, []int{1, 1, 1},
	)
	eta, err := Linear(d, nil)
	require.NoError(t, err)

	want := []float64{0, 0.5, 0.25}
	for j, w := range want {
		assert.InDelta(t, w, eta.Dense.At(0, j), 1e-12, "observation %d", j)
	}
}

// TestARMASeriesReset gives one observation a lag count of zero, which must
// clear the residual window between independent series.
func TestARMASeriesReset(t *testing.T) {
	d := armaBundle(
		mat.NewDense(1, 1, []float64{0.5}), nil,
		[]float64{1, 2, 3, 4}, []int{1, 0, 1, 1},
	)
	eta, err := Linear(d, nil)
	require.NoError(t, err)

	want := []float64{0, 0.5, 0, 1.5}
	for j, w := range want {
		assert.InDelta(t, w, eta.Dense.At(0, j), 1e-12, "observation %d", j)
	}
}

// TestAR2Recursion exercises a second-order window.
func TestAR2Recursion(t *testing.T) {
	d := armaBundle(
		mat.NewDense(1, 2, []float64{0.5, 0.25}), nil,
		[]float64{1, 1, 1}, nil,
	)
	eta, err := Linear(d, nil)
	require.NoError(t, err)

	// e0 = 1; eta1 = 0.5*1 = 0.5, e1 = 1; eta2 = 0.5*1 + 0.25*1 = 0.75
	want := []float64{0, 0.5, 0.75}
	for j, w := range want {
		assert.InDelta(t, w, eta.Dense.At(0, j), 1e-12, "observation %d", j)
	}
}

func TestARMAPointwiseFails(t *testing.T) {
	d := armaBundle(
		mat.NewDense(1, 1, []float64{0.5}), nil,
		[]float64{1, 2}, []int{1, 1},
	)
	_, err := Linear(d, []int{0})
	assert.ErrorIs(t, err, ErrPointwiseARMA)
}

type recordingSampler struct {
	n     int
	state *mat.Dense
	out   []float64
	err   error
}

func (r *recordingSampler) SampleResponse(n int, eta *mat.Dense) ([]float64, error) {
	r.n = n
	r.state = eta
	return r.out, r.err
}

// TestARMAMissingResponseSampled imputes a NaN response through the sampler
// and feeds the sampled value back into the recursion.
func TestARMAMissingResponseSampled(t *testing.T) {
	d := armaBundle(
		mat.NewDense(1, 1, []float64{0.5}), nil,
		[]float64{1, math.NaN(), 3}, []int{1, 1, 1},
	)
	sampler := &recordingSampler{out: []float64{10}}
	eta, err := Linear(d, nil, WithResponseSampler(sampler))
	require.NoError(t, err)

	want := []float64{0, 0.5, 5}
	for j, w := range want {
		assert.InDelta(t, w, eta.Dense.At(0, j), 1e-12, "observation %d", j)
	}

	// the sampler saw the missing observation's index and the predictor
	// accumulated up to it
	assert.Equal(t, 1, sampler.n)
	r, c := sampler.state.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 2, c)
	assert.InDelta(t, 0.5, sampler.state.At(0, 1), 1e-12)
}

func TestARMAMissingResponseNoSampler(t *testing.T) {
	d := armaBundle(
		mat.NewDense(1, 1, []float64{0.5}), nil,
		[]float64{1, math.NaN()}, []int{1, 1},
	)
	_, err := Linear(d, nil)
	assert.ErrorIs(t, err, ErrNoSampler)
}

func TestARMASamplerError(t *testing.T) {
	d := armaBundle(
		mat.NewDense(1, 1, []float64{0.5}), nil,
		[]float64{math.NaN()}, []int{1},
	)
	boom := errors.New("boom")
	_, err := Linear(d, nil, WithResponseSampler(&recordingSampler{err: boom}))
	assert.ErrorIs(t, err, boom)
}

func TestLatentResiduals(t *testing.T) {
	d := &Draws{
		S: 1, N: 3,
		AC: &Autocor{Err: mat.NewDense(1, 3, []float64{1, 2, 3})},
	}
	eta, err := Linear(d, nil)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(eta.Dense, d.AC.Err, 1e-12))

	sub, err := Linear(d, []int{1})
	require.NoError(t, err)
	assert.InDelta(t, 2, sub.Dense.At(0, 0), 1e-12)
}

func TestCARContribution(t *testing.T) {
	d := &Draws{
		S: 1, N: 2,
		Offset: []float64{1, 1},
		AC: &Autocor{CAR: &GroupEffect{
			Z: utils.Eye(2),
			R: mat.NewDense(1, 2, []float64{0.3, 0.7}),
		}},
	}
	eta, err := Linear(d, nil)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(eta.Dense, mat.NewDense(1, 2, []float64{1.3, 1.7}), 1e-12))
}

func TestARMAResponseLengthMismatch(t *testing.T) {
	d := armaBundle(
		mat.NewDense(1, 1, []float64{0.5}), nil,
		[]float64{1, 2}, nil,
	)
	d.N = 2
	d.AC.Y = []float64{1}
	_, err := Linear(d, nil)
	var me *MismatchError
	assert.ErrorAs(t, err, &me)
}
