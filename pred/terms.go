package pred

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/maj-tki/goeta/utils"
)

// crossProd multiplies coefficient draws against a design matrix, i.e.,
//
//	out[s, i] = sum_k b[s, k] x[i, k],
//
// the workhorse behind the fixed, group-level, smooth, category-specific and
// CAR contributions.
func crossProd(b, x *mat.Dense, s int, term string) (*mat.Dense, error) {
	bs, bk := b.Dims()
	xn, xk := x.Dims()
	if bs != s {
		return nil, &MismatchError{Term: term,
			Msg: fmt.Sprintf("draws have %d rows, want %d", bs, s)}
	}
	if bk != xk {
		return nil, &MismatchError{Term: term,
			Msg: fmt.Sprintf("design matrix has %d columns, draws have %d", xk, bk)}
	}
	out := mat.NewDense(s, xn, nil)
	out.Mul(b, x.T())
	return out, nil
}

// groupSum accumulates the contributions of a list of group effects at the
// requested observations.
func groupSum(groups []GroupEffect, s int, obs []int, term string) (*mat.Dense, error) {
	var sum *mat.Dense
	for gi := range groups {
		g := &groups[gi]
		out, err := crossProd(g.R, utils.Rows(g.Z, obs), s, term)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = out
		} else {
			sum.Add(sum, out)
		}
	}
	return sum, nil
}

func (ev *evaluator) fixed(obs []int) (*mat.Dense, error) {
	fe := ev.d.FE
	if fe == nil || fe.X == nil || fe.B == nil {
		return nil, nil
	}
	return crossProd(fe.B, utils.Rows(fe.X, obs), ev.d.S, "fixed effects")
}

func (ev *evaluator) group(obs []int) (*mat.Dense, error) {
	if len(ev.d.RE) == 0 {
		return nil, nil
	}
	return groupSum(ev.d.RE, ev.d.S, obs, "group-level effects")
}

func (ev *evaluator) smooth(obs []int) (*mat.Dense, error) {
	sm := ev.d.SM
	if sm == nil {
		return nil, nil
	}
	var eta *mat.Dense
	add := func(m *mat.Dense) {
		if eta == nil {
			eta = m
		} else {
			eta.Add(eta, m)
		}
	}
	if sm.FE != nil && sm.FE.X != nil && sm.FE.B != nil {
		out, err := crossProd(sm.FE.B, utils.Rows(sm.FE.X, obs), ev.d.S, "smooth fixed basis")
		if err != nil {
			return nil, err
		}
		add(out)
	}
	for ti := range sm.Terms {
		term := &sm.Terms[ti]
		if len(term.Zs) != len(term.Bs) {
			return nil, &MismatchError{Term: "smooth terms",
				Msg: fmt.Sprintf("term %d has %d basis blocks and %d draw blocks", ti+1, len(term.Zs), len(term.Bs))}
		}
		for j := range term.Zs {
			out, err := crossProd(term.Bs[j], utils.Rows(term.Zs[j], obs), ev.d.S, "smooth terms")
			if err != nil {
				return nil, err
			}
			add(out)
		}
	}
	return eta, nil
}

func (ev *evaluator) offset(obs []int) (*mat.Dense, error) {
	d := ev.d
	if d.Offset == nil {
		return nil, nil
	}
	if len(d.Offset) != d.N {
		return nil, &MismatchError{Term: "offset",
			Msg: fmt.Sprintf("has %d values, want %d", len(d.Offset), d.N)}
	}
	// offsets carry no posterior uncertainty: the same row for every draw
	return utils.RepRow(utils.Elems(d.Offset, obs), d.S), nil
}
