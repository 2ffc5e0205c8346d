package pred

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/maj-tki/goeta/expr"
	"github.com/maj-tki/goeta/utils"
)

// Eta is an evaluated predictor: a dense draws-by-observations matrix, or,
// once category-specific effects expand it, one such slice per threshold
// with Dense left nil.
type Eta struct {
	Dense *mat.Dense
	Thres []*mat.Dense
}

type evaluator struct {
	d   *Draws
	cfg *config
}

// Linear evaluates the additive predictor of d at the requested observations
// (nil means all). The fixed, group-level, special, smooth, Gaussian-process
// and offset contributions are computed independently and summed in that
// order; autocorrelation structures then apply to the accumulated predictor,
// and category-specific effects expand it per threshold last.
func Linear(d *Draws, obs []int, opts ...Option) (*Eta, error) {
	ev, err := newEvaluator(d, obs, opts)
	if err != nil {
		return nil, err
	}

	names := []string{
		"fixed effects",
		"group-level effects",
		"special effects",
		"smooth terms",
		"Gaussian process terms",
		"offset",
	}
	evals := []func([]int) (*mat.Dense, error){
		ev.fixed,
		ev.group,
		ev.special,
		ev.smooth,
		ev.gaussproc,
		ev.offset,
	}

	// terms are independent of each other: evaluate them concurrently, each
	// into its own slot
	bufs := make([]*mat.Dense, len(evals))
	g := new(errgroup.Group)
	g.SetLimit(ev.cfg.workers)
	for i, eval := range evals {
		g.Go(func() error {
			out, err := eval(obs)
			bufs[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// reduce sequentially in the fixed term order so results do not depend
	// on scheduling
	n := countObs(d.N, obs)
	eta := mat.NewDense(d.S, n, nil)
	for i, buf := range bufs {
		if buf == nil {
			continue
		}
		if br, bc := buf.Dims(); br != d.S || bc != n {
			return nil, &MismatchError{Term: names[i],
				Msg: fmt.Sprintf("contribution is %dx%d, want %dx%d", br, bc, d.S, n)}
		}
		eta.Add(eta, buf)
	}

	if err := ev.autocor(eta, obs); err != nil {
		return nil, err
	}
	return ev.catSpecific(eta, obs)
}

func newEvaluator(d *Draws, obs []int, opts []Option) (*evaluator, error) {
	if d == nil {
		return nil, ErrNilDraws
	}
	if d.S < 1 || d.N < 1 {
		return nil, &MismatchError{Term: "draws bundle",
			Msg: fmt.Sprintf("S=%d and N=%d must be positive", d.S, d.N)}
	}
	if obs != nil && len(obs) == 0 {
		return nil, errors.New("pred: empty observation subset")
	}
	for _, i := range obs {
		if i < 0 || i >= d.N {
			return nil, &MismatchError{Term: "observation subset",
				Msg: fmt.Sprintf("index %d out of range for %d observations", i, d.N)}
		}
	}
	return &evaluator{d: d, cfg: newConfig(opts)}, nil
}

// wrapExprErr translates a formula evaluation failure into the caller-facing
// taxonomy: an unknown function points at WithFunc, anything else is
// reported with context.
func wrapExprErr(what string, err error) error {
	var uf *expr.UnknownFuncError
	if errors.As(err, &uf) {
		return fmt.Errorf("pred: %s calls %q, which is not available; expose user-defined functions with WithFunc: %w",
			what, uf.Name, err)
	}
	return fmt.Errorf("pred: evaluating %s: %w", what, err)
}

// toDraws coerces a formula value to an s-by-n draws matrix, replicating a
// scalar everywhere and a vector across draws.
func toDraws(v expr.Value, s, n int, term string) (*mat.Dense, error) {
	switch v.Kind {
	case expr.KindScalar:
		out := mat.NewDense(s, n, nil)
		for i := 0; i < s; i++ {
			for j := 0; j < n; j++ {
				out.Set(i, j, v.Scalar)
			}
		}
		return out, nil
	case expr.KindVector:
		if len(v.Vec) != n {
			return nil, &MismatchError{Term: term,
				Msg: fmt.Sprintf("formula value has %d elements, want %d", len(v.Vec), n)}
		}
		return utils.RepRow(v.Vec, s), nil
	default:
		r, c := v.Mat.Dims()
		if r != s || c != n {
			return nil, &MismatchError{Term: term,
				Msg: fmt.Sprintf("formula value is %dx%d, want %dx%d", r, c, s, n)}
		}
		return v.Mat, nil
	}
}
