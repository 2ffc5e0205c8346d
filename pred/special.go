package pred

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/maj-tki/goeta/expr"
	"github.com/maj-tki/goeta/utils"
)

// Monotonic computes the cumulative-simplex transform of a monotonic term:
// for a covariate value x the transform is D times the sum of the first x
// simplex weights, row-wise over the simplex draws (S x D). Covariate values
// must lie in 0..D.
func Monotonic(simo *mat.Dense, x []int) (*mat.Dense, error) {
	s, d := simo.Dims()
	if len(x) == 0 {
		return nil, fmt.Errorf("pred: monotonic covariate is empty")
	}
	for _, xi := range x {
		if xi < 0 || xi > d {
			return nil, fmt.Errorf("%w: value %d with %d simplex columns", ErrMonotonicRange, xi, d)
		}
	}
	out := mat.NewDense(s, len(x), nil)
	csum := make([]float64, d+1)
	for i := 0; i < s; i++ {
		// csum[j] = sum of the first j weights, csum[0] = 0
		floats.CumSum(csum[1:], simo.RawRowView(i))
		for j, xi := range x {
			out.Set(i, j, float64(d)*csum[xi])
		}
	}
	return out, nil
}

// moFunc adapts Monotonic to the formula function interface: the first
// argument is the simplex draw matrix, the second the covariate vector.
func moFunc(args []expr.Value) (expr.Value, error) {
	if len(args) != 2 {
		return expr.Value{}, fmt.Errorf("want 2 arguments, got %d", len(args))
	}
	if args[0].Kind != expr.KindMatrix || args[1].Kind != expr.KindVector {
		return expr.Value{}, fmt.Errorf("want a simplex matrix and a covariate vector, got %s and %s",
			args[0].Kind, args[1].Kind)
	}
	x := make([]int, len(args[1].Vec))
	for i, v := range args[1].Vec {
		x[i] = int(v)
	}
	out, err := Monotonic(args[0].Mat, x)
	if err != nil {
		return expr.Value{}, err
	}
	return expr.Matrix(out), nil
}

type binding struct {
	name string
	val  expr.Value
}

// bindings subsets the shared ingredients to the requested observations and
// names them the way formulas reference them.
func (sp *SpecialEffects) bindings(obs []int) []binding {
	var out []binding
	for i, simo := range sp.Simo {
		out = append(out, binding{fmt.Sprintf("simo%d", i+1), expr.Matrix(simo)})
	}
	for i, xmo := range sp.Xmo {
		sub := utils.Elems(xmo, obs)
		vec := make([]float64, len(sub))
		for j, v := range sub {
			vec[j] = float64(v)
		}
		out = append(out, binding{fmt.Sprintf("Xmo%d", i+1), expr.Vector(vec)})
	}
	for i, xme := range sp.Xme {
		out = append(out, binding{fmt.Sprintf("Xme%d", i+1), expr.Matrix(utils.Cols(xme, obs))})
	}
	for i, csp := range sp.Csp {
		out = append(out, binding{fmt.Sprintf("Csp%d", i+1), expr.Vector(utils.Elems(csp, obs))})
	}
	if sp.Y != nil {
		out = append(out, binding{"Y", expr.Matrix(utils.Cols(sp.Y, obs))})
	}
	return out
}

func (ev *evaluator) special(obs []int) (*mat.Dense, error) {
	sp := ev.d.SP
	if sp == nil || len(sp.Terms) == 0 {
		return nil, nil
	}
	d := ev.d
	n := countObs(d.N, obs)
	binds := sp.bindings(obs)
	eta := mat.NewDense(d.S, n, nil)
	for ti := range sp.Terms {
		term := &sp.Terms[ti]
		what := fmt.Sprintf("special term %d", ti+1)
		if term.Expr == nil {
			return nil, &MismatchError{Term: what, Msg: "has no expression"}
		}
		if len(term.B) != d.S {
			return nil, &MismatchError{Term: what,
				Msg: fmt.Sprintf("has %d coefficient draws, want %d", len(term.B), d.S)}
		}
		// each term evaluates in its own environment over the shared
		// ingredients
		env := expr.NewEnv(expr.StdFuncs)
		env.BindFunc("mo", moFunc)
		for name, fn := range ev.cfg.funcs {
			env.BindFunc(name, fn)
		}
		for _, b := range binds {
			env.Bind(b.name, b.val)
		}
		val, err := term.Expr.Eval(env)
		if err != nil {
			return nil, wrapExprErr(what, err)
		}
		out, err := toDraws(val, d.S, n, what)
		if err != nil {
			return nil, err
		}
		re, err := groupSum(term.RE, d.S, obs, what+" group effects")
		if err != nil {
			return nil, err
		}
		// the term's values are weighted by its coefficient draw plus the
		// observation's group-level deviation
		for s := 0; s < d.S; s++ {
			w := term.B[s]
			for c := 0; c < n; c++ {
				wc := w
				if re != nil {
					wc += re.At(s, c)
				}
				eta.Set(s, c, eta.At(s, c)+wc*out.At(s, c))
			}
		}
	}
	return eta, nil
}
