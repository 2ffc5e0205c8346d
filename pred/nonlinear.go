package pred

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/maj-tki/goeta/expr"
	"github.com/maj-tki/goeta/utils"
)

// ParamProvider resolves the nonlinear parameters of a formula: Param
// returns the S x n predictor draws of the named parameter at the requested
// observations (nil means all). Parameter predictors are models of their
// own, so evaluation stays with the caller.
type ParamProvider interface {
	Param(name string, obs []int) (*mat.Dense, error)
}

// Nonlinear evaluates the nonlinear-formula predictor of d at the requested
// observations. Every nonlinear parameter named by the formula is bound
// through prov and every covariate to its stored draws; the formula then
// evaluates over those bindings. All bindings must share one shape, which is
// also the shape of the result.
func Nonlinear(d *Draws, obs []int, prov ParamProvider, opts ...Option) (*mat.Dense, error) {
	ev, err := newEvaluator(d, obs, opts)
	if err != nil {
		return nil, err
	}
	if d.NL == nil || d.NL.Formula == nil {
		return nil, ErrNoFormula
	}
	if prov == nil {
		return nil, ErrNilProvider
	}

	env := expr.NewEnv(expr.StdFuncs)
	for name, fn := range ev.cfg.funcs {
		env.BindFunc(name, fn)
	}

	// every binding carries the bundle's draws-by-observations shape
	s, n := d.S, countObs(d.N, obs)
	bound := false
	bind := func(name string, m *mat.Dense) error {
		mr, mc := m.Dims()
		if mr != s || mc != n {
			return &MismatchError{Term: "nonlinear formula",
				Msg: fmt.Sprintf("%q is %dx%d, want %dx%d", name, mr, mc, s, n)}
		}
		env.Bind(name, expr.Matrix(m))
		bound = true
		return nil
	}
	for _, name := range d.NL.Params {
		pm, err := prov.Param(name, obs)
		if err != nil {
			return nil, fmt.Errorf("pred: nonlinear parameter %q: %w", name, err)
		}
		if pm == nil {
			return nil, fmt.Errorf("pred: nonlinear parameter %q: provider returned nil", name)
		}
		if err := bind(name, pm); err != nil {
			return nil, err
		}
	}
	for name, c := range d.NL.C {
		if err := bind(name, utils.Cols(c, obs)); err != nil {
			return nil, err
		}
	}
	if !bound {
		return nil, &MismatchError{Term: "nonlinear formula",
			Msg: "no parameters or covariates to bind"}
	}

	out, err := d.NL.Formula.Eval(env)
	if err != nil {
		return nil, wrapExprErr("nonlinear formula", err)
	}
	return toDraws(out, s, n, "nonlinear formula")
}
