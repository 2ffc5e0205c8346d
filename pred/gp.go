package pred

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/maj-tki/goeta/kern"
	"github.com/maj-tki/goeta/utils"
)

func (ev *evaluator) gaussproc(obs []int) (*mat.Dense, error) {
	d := ev.d
	if len(d.GP) == 0 {
		return nil, nil
	}
	if obs != nil {
		return nil, ErrPointwiseGP
	}

	// draw the conditional-GP normals serially, in term order, before any
	// parallel work: the random source is not safe to share and the results
	// must not depend on scheduling
	zs := make([]*mat.Dense, len(d.GP))
	for gi, term := range d.GP {
		if term.SLambda != nil || term.XNew == nil {
			continue
		}
		if ev.cfg.rng == nil {
			return nil, ErrNoRandSource
		}
		nNew, _ := term.XNew.Dims()
		z := mat.NewDense(d.S, nNew, nil)
		for i := 0; i < d.S; i++ {
			for j := 0; j < nNew; j++ {
				z.Set(i, j, ev.cfg.rng.NormFloat64())
			}
		}
		zs[gi] = z
	}

	// terms are independent: factor-heavy sub-terms of a by-factor GP run
	// concurrently, each into its own slot
	bufs := make([]*mat.Dense, len(d.GP))
	g := new(errgroup.Group)
	g.SetLimit(ev.cfg.workers)
	for gi, term := range d.GP {
		g.Go(func() error {
			out, err := ev.gpTerm(term, zs[gi], fmt.Sprintf("GP term %d", gi+1))
			bufs[gi] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	eta := mat.NewDense(d.S, d.N, nil)
	for gi, out := range bufs {
		what := fmt.Sprintf("GP term %d", gi+1)
		term := d.GP[gi]
		_, c := out.Dims()
		if term.Obs != nil {
			// a by-factor sub-term owns a subset of the observations;
			// scatter its columns into place
			if c != len(term.Obs) {
				return nil, &MismatchError{Term: what,
					Msg: fmt.Sprintf("evaluates to %d columns for %d owned observations", c, len(term.Obs))}
			}
			for j, col := range term.Obs {
				if col < 0 || col >= d.N {
					return nil, &MismatchError{Term: what,
						Msg: fmt.Sprintf("owned observation %d out of range for %d observations", col, d.N)}
				}
				for s := 0; s < d.S; s++ {
					eta.Set(s, col, eta.At(s, col)+out.At(s, j))
				}
			}
		} else {
			if c != d.N {
				return nil, &MismatchError{Term: what,
					Msg: fmt.Sprintf("evaluates to %d columns, want %d", c, d.N)}
			}
			eta.Add(eta, out)
		}
	}
	return eta, nil
}

func (ev *evaluator) gpTerm(t *GPTerm, z *mat.Dense, what string) (*mat.Dense, error) {
	s := ev.d.S
	if len(t.SDGP) != s || len(t.LScale) != s {
		return nil, &MismatchError{Term: what,
			Msg: fmt.Sprintf("has %d sd and %d length-scale draws, want %d", len(t.SDGP), len(t.LScale), s)}
	}
	var out *mat.Dense
	var err error
	switch {
	case t.SLambda != nil:
		out, err = ev.gpApprox(t, what)
	case t.XNew != nil:
		out, err = ev.gpExactNew(t, z, what)
	default:
		out, err = ev.gpExactOld(t, what)
	}
	if err != nil {
		return nil, err
	}
	if t.JGP != nil {
		// expand the unique covariate locations back to the observation
		// sequence
		_, c := out.Dims()
		for _, j := range t.JGP {
			if j < 0 || j >= c {
				return nil, &MismatchError{Term: what,
					Msg: fmt.Sprintf("location index %d out of range for %d unique locations", j, c)}
			}
		}
		out = utils.Cols(out, t.JGP)
	}
	if t.CGP != nil {
		_, c := out.Dims()
		if len(t.CGP) != c {
			return nil, &MismatchError{Term: what,
				Msg: fmt.Sprintf("has %d scaling values for %d observations", len(t.CGP), c)}
		}
		for i := 0; i < s; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, j, out.At(i, j)*t.CGP[j])
			}
		}
	}
	return out, nil
}

// gpExactOld evaluates an exact GP at its fitted locations, one
// factorization per posterior draw:
//
//	out[s, ] = L_s zgp[s, ],   L_s L_s' = K_s(x, x) + nug I
func (ev *evaluator) gpExactOld(t *GPTerm, what string) (*mat.Dense, error) {
	s := ev.d.S
	if t.X == nil || t.ZGP == nil {
		return nil, &MismatchError{Term: what, Msg: "needs locations and whitened draws"}
	}
	n, _ := t.X.Dims()
	if zr, zc := t.ZGP.Dims(); zr != s || zc != n {
		return nil, &MismatchError{Term: what,
			Msg: fmt.Sprintf("whitened draws are %dx%d, want %dx%d", zr, zc, s, n)}
	}
	out := mat.NewDense(s, n, nil)
	g := new(errgroup.Group)
	g.SetLimit(ev.cfg.workers)
	for i := 0; i < s; i++ {
		g.Go(func() error {
			k := kern.ExpQuad{SD: t.SDGP[i], LScale: t.LScale[i]}
			chol, _, err := kern.Factor(k.Cov(t.X), t.Nug)
			if err != nil {
				return fmt.Errorf("pred: %s, draw %d: %w", what, i, err)
			}
			var lower mat.TriDense
			chol.LTo(&lower)
			y := mat.NewVecDense(n, nil)
			y.MulVec(&lower, mat.NewVecDense(n, t.ZGP.RawRowView(i)))
			out.SetRow(i, y.RawVector().Data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// gpExactNew draws from the GP posterior at new locations, conditioning each
// draw on its fitted-data values. z holds the pre-drawn standard normals,
// one row per posterior draw.
//
//	w       = K(x, x)^-1 K(x, xnew)
//	mu_s    = w' yl[s, ]
//	Sigma_s = K(xnew, xnew) - K(x, xnew)' w + nug I
//	out[s, ] ~ N(mu_s, Sigma_s)
func (ev *evaluator) gpExactNew(t *GPTerm, z *mat.Dense, what string) (*mat.Dense, error) {
	s := ev.d.S
	if t.X == nil || t.YL == nil {
		return nil, &MismatchError{Term: what, Msg: "needs fitted locations and fitted-data values"}
	}
	nOld, xd := t.X.Dims()
	nNew, nd := t.XNew.Dims()
	if xd != nd {
		return nil, &MismatchError{Term: what,
			Msg: fmt.Sprintf("fitted locations have %d dimensions, new locations %d", xd, nd)}
	}
	if yr, yc := t.YL.Dims(); yr != s || yc != nOld {
		return nil, &MismatchError{Term: what,
			Msg: fmt.Sprintf("fitted-data values are %dx%d, want %dx%d", yr, yc, s, nOld)}
	}
	out := mat.NewDense(s, nNew, nil)
	g := new(errgroup.Group)
	g.SetLimit(ev.cfg.workers)
	for i := 0; i < s; i++ {
		g.Go(func() error {
			k := kern.ExpQuad{SD: t.SDGP[i], LScale: t.LScale[i]}
			chol, _, err := kern.Factor(k.Cov(t.X), t.Nug)
			if err != nil {
				return fmt.Errorf("pred: %s, draw %d: %w", what, i, err)
			}
			cross := k.CrossCov(t.X, t.XNew)
			var w mat.Dense
			if err := chol.SolveTo(&w, cross); err != nil {
				return fmt.Errorf("pred: %s, draw %d: solving for the conditional mean: %w", what, i, err)
			}
			mu := mat.NewVecDense(nNew, nil)
			mu.MulVec(w.T(), mat.NewVecDense(nOld, t.YL.RawRowView(i)))
			var red mat.Dense
			red.Mul(cross.T(), &w)
			knew := k.Cov(t.XNew)
			cond := mat.NewSymDense(nNew, nil)
			for a := 0; a < nNew; a++ {
				for b := a; b < nNew; b++ {
					// symmetrize against round-off before factorizing
					cond.SetSym(a, b, knew.At(a, b)-0.5*(red.At(a, b)+red.At(b, a)))
				}
			}
			cholNew, _, err := kern.Factor(cond, t.Nug)
			if err != nil {
				return fmt.Errorf("pred: %s, draw %d: conditional covariance: %w", what, i, err)
			}
			var lower mat.TriDense
			cholNew.LTo(&lower)
			noise := mat.NewVecDense(nNew, nil)
			noise.MulVec(&lower, z.RowView(i))
			row := make([]float64, nNew)
			for j := range row {
				row[j] = mu.AtVec(j) + noise.AtVec(j)
			}
			out.SetRow(i, row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// gpApprox evaluates a reduced-rank GP: the whitened draws are scaled by the
// square root of the kernel's spectral density at each eigenfrequency, then
// projected through the precomputed eigenfunctions:
//
//	out[s, ] = (sqrt(spd_s) zgp[s, ]) x'
func (ev *evaluator) gpApprox(t *GPTerm, what string) (*mat.Dense, error) {
	s := ev.d.S
	if t.X == nil || t.ZGP == nil {
		return nil, &MismatchError{Term: what, Msg: "needs eigenfunctions and whitened draws"}
	}
	nb, _ := t.SLambda.Dims()
	n, xc := t.X.Dims()
	if xc != nb {
		return nil, &MismatchError{Term: what,
			Msg: fmt.Sprintf("eigenfunction matrix has %d columns for %d eigenfrequencies", xc, nb)}
	}
	if zr, zc := t.ZGP.Dims(); zr != s || zc != nb {
		return nil, &MismatchError{Term: what,
			Msg: fmt.Sprintf("whitened draws are %dx%d, want %dx%d", zr, zc, s, nb)}
	}
	scaled := mat.NewDense(s, nb, nil)
	for i := 0; i < s; i++ {
		k := kern.ExpQuad{SD: t.SDGP[i], LScale: t.LScale[i]}
		for b := 0; b < nb; b++ {
			spd := math.Sqrt(k.SpectralDensity(t.SLambda.RawRowView(b)))
			scaled.Set(i, b, spd*t.ZGP.At(i, b))
		}
	}
	out := mat.NewDense(s, n, nil)
	out.Mul(scaled, t.X.T())
	return out, nil
}
