package pred

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/maj-tki/goeta/expr"
	"github.com/maj-tki/goeta/utils"
)

// mapProvider resolves nonlinear parameters from a fixed set of draw
// matrices.
type mapProvider map[string]*mat.Dense

func (p mapProvider) Param(name string, obs []int) (*mat.Dense, error) {
	m, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("no parameter %q", name)
	}
	return utils.Cols(m, obs), nil
}

func nlBundle(t *testing.T) (*Draws, mapProvider) {
	t.Helper()
	d := &Draws{
		S: 2, N: 2,
		NL: &NLForm{
			Formula: mustParse(t, "b1 * exp(b2 * x)"),
			Params:  []string{"b1", "b2"},
			C: map[string]*mat.Dense{
				"x": mat.NewDense(2, 2, []float64{1, 2, 1, 2}),
			},
		},
	}
	prov := mapProvider{
		"b1": mat.NewDense(2, 2, []float64{2, 2, 3, 3}),
		"b2": mat.NewDense(2, 2, []float64{0.5, 0.5, -1, -1}),
	}
	return d, prov
}

func TestNonlinearFormula(t *testing.T) {
	d, prov := nlBundle(t)
	out, err := Nonlinear(d, nil, prov)
	require.NoError(t, err)

	for s, b := range []struct{ b1, b2 float64 }{{2, 0.5}, {3, -1}} {
		for j, x := range []float64{1, 2} {
			want := b.b1 * math.Exp(b.b2*x)
			assert.InDelta(t, want, out.At(s, j), 1e-12, "draw %d observation %d", s, j)
		}
	}
}

func TestNonlinearSubset(t *testing.T) {
	d, prov := nlBundle(t)
	full, err := Nonlinear(d, nil, prov)
	require.NoError(t, err)
	sub, err := Nonlinear(d, []int{1}, prov)
	require.NoError(t, err)

	for s := 0; s < 2; s++ {
		assert.InDelta(t, full.At(s, 1), sub.At(s, 0), 1e-12)
	}
}

func TestNonlinearNoFormula(t *testing.T) {
	_, err := Nonlinear(&Draws{S: 1, N: 1}, nil, mapProvider{})
	assert.ErrorIs(t, err, ErrNoFormula)
}

func TestNonlinearNilProvider(t *testing.T) {
	d, _ := nlBundle(t)
	_, err := Nonlinear(d, nil, nil)
	assert.ErrorIs(t, err, ErrNilProvider)
}

func TestNonlinearProviderError(t *testing.T) {
	d, _ := nlBundle(t)
	_, err := Nonlinear(d, nil, mapProvider{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"b1"`)
}

func TestNonlinearUnknownFuncGuidance(t *testing.T) {
	d, prov := nlBundle(t)
	d.NL.Formula = mustParse(t, "gompertz(b1)")
	_, err := Nonlinear(d, nil, prov)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WithFunc")
	var uf *expr.UnknownFuncError
	assert.ErrorAs(t, err, &uf)
}

func TestNonlinearWithFunc(t *testing.T) {
	d, prov := nlBundle(t)
	d.NL.Formula = mustParse(t, "double(b1)")
	double := func(args []expr.Value) (expr.Value, error) {
		if len(args) != 1 {
			return expr.Value{}, fmt.Errorf("want 1 argument, got %d", len(args))
		}
		var out mat.Dense
		out.Scale(2, args[0].Mat)
		return expr.Matrix(&out), nil
	}
	out, err := Nonlinear(d, nil, prov, WithFunc("double", double))
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(out, mat.NewDense(2, 2, []float64{4, 4, 6, 6}), 1e-12))
}

func TestNonlinearShapeMismatch(t *testing.T) {
	d, prov := nlBundle(t)
	prov["b1"] = mat.NewDense(1, 2, []float64{2, 2})
	_, err := Nonlinear(d, nil, prov)
	var me *MismatchError
	assert.ErrorAs(t, err, &me)
}

// TestNonlinearScalarResultBroadcasts accepts formulas that collapse to a
// constant and replicates them across the draws-by-observations shape.
func TestNonlinearScalarResultBroadcasts(t *testing.T) {
	d, prov := nlBundle(t)
	d.NL.Formula = mustParse(t, "3")
	out, err := Nonlinear(d, nil, prov)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(out, mat.NewDense(2, 2, []float64{3, 3, 3, 3}), 1e-12))
}
