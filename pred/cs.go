package pred

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/maj-tki/goeta/utils"
)

// catSpecific expands the accumulated predictor into one slice per response
// threshold. Every slice starts from the shared predictor; threshold k then
// adds its own coefficient columns (predictor j's draw for threshold k sits
// in column j*NThres+k of B) and its per-threshold group-level draws.
func (ev *evaluator) catSpecific(eta *mat.Dense, obs []int) (*Eta, error) {
	cs := ev.d.CS
	if cs == nil {
		return &Eta{Dense: eta}, nil
	}
	if (cs.X == nil) != (cs.B == nil) {
		return nil, &MismatchError{Term: "category-specific effects",
			Msg: "design matrix and coefficient draws must be jointly nil or jointly set"}
	}
	if cs.NThres < 1 {
		return nil, &MismatchError{Term: "category-specific effects",
			Msg: fmt.Sprintf("%d thresholds, want at least 1", cs.NThres)}
	}
	s, _ := eta.Dims()
	var x *mat.Dense
	var k int
	if cs.X != nil {
		x = utils.Rows(cs.X, obs)
		_, k = x.Dims()
		if br, bc := cs.B.Dims(); br != s || bc != k*cs.NThres {
			return nil, &MismatchError{Term: "category-specific effects",
				Msg: fmt.Sprintf("draws are %dx%d, want %dx%d", br, bc, s, k*cs.NThres)}
		}
	}
	slices := make([]*mat.Dense, cs.NThres)
	for thr := 0; thr < cs.NThres; thr++ {
		sl := mat.DenseCopyOf(eta)
		if x != nil {
			bk := mat.NewDense(s, k, nil)
			for j := 0; j < k; j++ {
				bk.SetCol(j, mat.Col(nil, j*cs.NThres+thr, cs.B))
			}
			out, err := crossProd(bk, x, s, "category-specific effects")
			if err != nil {
				return nil, err
			}
			sl.Add(sl, out)
		}
		for gi := range cs.RE {
			g := &cs.RE[gi]
			if len(g.R) != cs.NThres {
				return nil, &MismatchError{Term: "category-specific group effects",
					Msg: fmt.Sprintf("group %d has draws for %d thresholds, want %d", gi+1, len(g.R), cs.NThres)}
			}
			out, err := crossProd(g.R[thr], utils.Rows(g.Z, obs), s, "category-specific group effects")
			if err != nil {
				return nil, err
			}
			sl.Add(sl, out)
		}
		slices[thr] = sl
	}
	return &Eta{Thres: slices}, nil
}
