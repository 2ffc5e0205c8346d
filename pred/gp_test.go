package pred

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/maj-tki/goeta/kern"
)

// TestGPExactOldMatchesCholesky reproduces the whitened-draw transform
// L zgp directly and compares against the evaluator.
func TestGPExactOldMatchesCholesky(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{0, 0.5, 1.3})
	zgp := []float64{0.3, -1.1, 0.55}
	d := &Draws{
		S: 1, N: 3,
		GP: []*GPTerm{{
			X:      x,
			SDGP:   []float64{1.2},
			LScale: []float64{0.7},
			ZGP:    mat.NewDense(1, 3, zgp),
		}},
	}
	eta, err := Linear(d, nil)
	require.NoError(t, err)

	k := kern.ExpQuad{SD: 1.2, LScale: 0.7}
	var chol mat.Cholesky
	require.True(t, chol.Factorize(k.Cov(x)))
	var lower mat.TriDense
	chol.LTo(&lower)
	want := mat.NewVecDense(3, nil)
	want.MulVec(&lower, mat.NewVecDense(3, zgp))
	for j := 0; j < 3; j++ {
		assert.InDelta(t, want.AtVec(j), eta.Dense.At(0, j), 1e-6)
	}
}

// TestGPApproxSpectralProjection checks the reduced-rank mode against the
// closed form for a single eigenfunction.
func TestGPApproxSpectralProjection(t *testing.T) {
	d := &Draws{
		S: 1, N: 2,
		GP: []*GPTerm{{
			X:       mat.NewDense(2, 1, []float64{0.5, -0.25}),
			SLambda: mat.NewDense(1, 1, []float64{0.8}),
			SDGP:    []float64{0.9},
			LScale:  []float64{1.1},
			ZGP:     mat.NewDense(1, 1, []float64{2}),
		}},
	}
	eta, err := Linear(d, nil)
	require.NoError(t, err)

	spd := 0.9 * 0.9 * math.Sqrt(2*math.Pi) * 1.1 * math.Exp(-0.5*1.1*1.1*0.64)
	coef := math.Sqrt(spd) * 2
	assert.InDelta(t, coef*0.5, eta.Dense.At(0, 0), 1e-12)
	assert.InDelta(t, coef*-0.25, eta.Dense.At(0, 1), 1e-12)
}

func TestGPPointwiseFails(t *testing.T) {
	d := &Draws{
		S: 1, N: 2,
		GP: []*GPTerm{{
			X:      mat.NewDense(2, 1, []float64{0, 1}),
			SDGP:   []float64{1},
			LScale: []float64{1},
			ZGP:    mat.NewDense(1, 2, []float64{0.5, -0.5}),
		}},
	}
	_, err := Linear(d, []int{0})
	assert.ErrorIs(t, err, ErrPointwiseGP)
}

func TestGPNewLocationsNeedRand(t *testing.T) {
	d := newLocationBundle()
	_, err := Linear(d, nil)
	assert.ErrorIs(t, err, ErrNoRandSource)
}

func newLocationBundle() *Draws {
	return &Draws{
		S: 1, N: 2,
		GP: []*GPTerm{{
			X:      mat.NewDense(2, 1, []float64{0, 1}),
			XNew:   mat.NewDense(2, 1, []float64{0, 1}),
			SDGP:   []float64{1},
			LScale: []float64{1},
			YL:     mat.NewDense(1, 2, []float64{0.4, -0.2}),
		}},
	}
}

// TestGPNewLocationsReproducible checks that the same seed gives the same
// conditional draws regardless of worker count.
func TestGPNewLocationsReproducible(t *testing.T) {
	d := newLocationBundle()
	one, err := Linear(d, nil, WithRand(rand.New(rand.NewSource(11))), WithWorkers(1))
	require.NoError(t, err)
	two, err := Linear(d, nil, WithRand(rand.New(rand.NewSource(11))), WithWorkers(4))
	require.NoError(t, err)
	assert.True(t, mat.Equal(one.Dense, two.Dense))
}

// TestGPNewAtFittedLocations conditions a GP on its own fitted locations:
// the conditional mean is the fitted value and the conditional variance is
// numerically zero, so the draw reproduces yL.
func TestGPNewAtFittedLocations(t *testing.T) {
	d := newLocationBundle()
	eta, err := Linear(d, nil, WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, err)

	assert.InDelta(t, 0.4, eta.Dense.At(0, 0), 1e-4)
	assert.InDelta(t, -0.2, eta.Dense.At(0, 1), 1e-4)
}

// TestGPByFactorScatter splits a GP over a factor: each sub-term only fills
// its owned observation columns, and uncovered columns stay zero.
func TestGPByFactorScatter(t *testing.T) {
	d := &Draws{
		S: 1, N: 4,
		GP: []*GPTerm{
			{
				X:      mat.NewDense(2, 1, []float64{0, 1}),
				SDGP:   []float64{1},
				LScale: []float64{1},
				ZGP:    mat.NewDense(1, 2, []float64{0.5, -0.5}),
				Obs:    []int{0, 2},
			},
			{
				X:      mat.NewDense(1, 1, []float64{0.5}),
				SDGP:   []float64{2},
				LScale: []float64{1},
				ZGP:    mat.NewDense(1, 1, []float64{1.7}),
				Obs:    []int{1},
			},
		},
	}
	eta, err := Linear(d, nil)
	require.NoError(t, err)

	// the single-location sub-term is sd * zgp
	assert.InDelta(t, 2*1.7, eta.Dense.At(0, 1), 1e-5)
	// uncovered column stays zero
	assert.Equal(t, 0.0, eta.Dense.At(0, 3))
	// the owned columns carry the sub-term's values in order
	first := &Draws{S: 1, N: 2, GP: []*GPTerm{{
		X:      mat.NewDense(2, 1, []float64{0, 1}),
		SDGP:   []float64{1},
		LScale: []float64{1},
		ZGP:    mat.NewDense(1, 2, []float64{0.5, -0.5}),
	}}}
	sub, err := Linear(first, nil)
	require.NoError(t, err)
	assert.InDelta(t, sub.Dense.At(0, 0), eta.Dense.At(0, 0), 1e-12)
	assert.InDelta(t, sub.Dense.At(0, 1), eta.Dense.At(0, 2), 1e-12)
}

// TestGPUniqueLocationExpansion evaluates a GP over unique covariate values
// and expands it back to the observation sequence, scaled by a numeric
// by-variable.
func TestGPUniqueLocationExpansion(t *testing.T) {
	base := &Draws{S: 1, N: 2, GP: []*GPTerm{{
		X:      mat.NewDense(2, 1, []float64{0, 1}),
		SDGP:   []float64{1.3},
		LScale: []float64{0.9},
		ZGP:    mat.NewDense(1, 2, []float64{0.7, -0.4}),
	}}}
	ref, err := Linear(base, nil)
	require.NoError(t, err)

	d := &Draws{S: 1, N: 3, GP: []*GPTerm{{
		X:      mat.NewDense(2, 1, []float64{0, 1}),
		SDGP:   []float64{1.3},
		LScale: []float64{0.9},
		ZGP:    mat.NewDense(1, 2, []float64{0.7, -0.4}),
		JGP:    []int{0, 1, 0},
		CGP:    []float64{1, 2, 3},
	}}}
	eta, err := Linear(d, nil)
	require.NoError(t, err)

	b0, b1 := ref.Dense.At(0, 0), ref.Dense.At(0, 1)
	assert.InDelta(t, b0, eta.Dense.At(0, 0), 1e-12)
	assert.InDelta(t, 2*b1, eta.Dense.At(0, 1), 1e-12)
	assert.InDelta(t, 3*b0, eta.Dense.At(0, 2), 1e-12)
}

// TestGPDuplicateLocations exercises the jitter escalation: duplicated
// covariate rows make the covariance singular, and the factorization must
// still succeed by inflating the diagonal.
func TestGPDuplicateLocations(t *testing.T) {
	d := &Draws{S: 1, N: 2, GP: []*GPTerm{{
		X:      mat.NewDense(2, 1, []float64{1, 1}),
		SDGP:   []float64{1},
		LScale: []float64{1},
		ZGP:    mat.NewDense(1, 2, []float64{0.3, 0.4}),
	}}}
	eta, err := Linear(d, nil)
	require.NoError(t, err)
	for j := 0; j < 2; j++ {
		assert.False(t, math.IsNaN(eta.Dense.At(0, j)))
	}
}

func TestGPDrawCountMismatch(t *testing.T) {
	d := &Draws{S: 2, N: 2, GP: []*GPTerm{{
		X:      mat.NewDense(2, 1, []float64{0, 1}),
		SDGP:   []float64{1},
		LScale: []float64{1, 1},
		ZGP:    mat.NewDense(2, 2, nil),
	}}}
	_, err := Linear(d, nil)
	var me *MismatchError
	assert.ErrorAs(t, err, &me)
}
