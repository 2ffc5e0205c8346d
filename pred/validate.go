package pred

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Validate checks the bundle's structural consistency: every draw matrix
// must have S rows, every design matrix N rows, and every term's pieces must
// conform to each other. Evaluation reports the same mismatches lazily;
// Validate lets callers fail fast while assembling a bundle.
func (d *Draws) Validate() error {
	if d == nil {
		return ErrNilDraws
	}
	if d.S < 1 || d.N < 1 {
		return &MismatchError{Term: "draws bundle",
			Msg: fmt.Sprintf("S=%d and N=%d must be positive", d.S, d.N)}
	}
	if err := d.validateFE(d.FE, "fixed effects"); err != nil {
		return err
	}
	if err := d.validateRE(d.RE, "group-level effects"); err != nil {
		return err
	}
	if err := d.validateSP(); err != nil {
		return err
	}
	if err := d.validateSM(); err != nil {
		return err
	}
	for gi, t := range d.GP {
		if err := d.validateGP(t, fmt.Sprintf("GP term %d", gi+1)); err != nil {
			return err
		}
	}
	if d.Offset != nil && len(d.Offset) != d.N {
		return &MismatchError{Term: "offset",
			Msg: fmt.Sprintf("has %d values, want %d", len(d.Offset), d.N)}
	}
	if err := d.validateAC(); err != nil {
		return err
	}
	if err := d.validateCS(); err != nil {
		return err
	}
	if d.NL != nil {
		if d.NL.Formula == nil {
			return &MismatchError{Term: "nonlinear formula", Msg: "is nil"}
		}
		for name, c := range d.NL.C {
			if err := d.drawsByObs(c, "nonlinear formula", fmt.Sprintf("covariate %q", name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// drawsByObs requires m to be S x N.
func (d *Draws) drawsByObs(m *mat.Dense, term, what string) error {
	r, c := m.Dims()
	if r != d.S || c != d.N {
		return &MismatchError{Term: term,
			Msg: fmt.Sprintf("%s is %dx%d, want %dx%d", what, r, c, d.S, d.N)}
	}
	return nil
}

func (d *Draws) validateFE(fe *FixedEffects, term string) error {
	if fe == nil || fe.X == nil || fe.B == nil {
		return nil
	}
	xn, xk := fe.X.Dims()
	if xn != d.N {
		return &MismatchError{Term: term,
			Msg: fmt.Sprintf("design matrix has %d rows, want %d", xn, d.N)}
	}
	br, bk := fe.B.Dims()
	if br != d.S {
		return &MismatchError{Term: term,
			Msg: fmt.Sprintf("draws have %d rows, want %d", br, d.S)}
	}
	if bk != xk {
		return &MismatchError{Term: term,
			Msg: fmt.Sprintf("design matrix has %d columns, draws have %d", xk, bk)}
	}
	return nil
}

func (d *Draws) validateRE(groups []GroupEffect, term string) error {
	for gi := range groups {
		g := &groups[gi]
		if g.Z == nil || g.R == nil {
			return &MismatchError{Term: term,
				Msg: fmt.Sprintf("group %d needs both an indicator design and level draws", gi+1)}
		}
		zn, zl := g.Z.Dims()
		if zn != d.N {
			return &MismatchError{Term: term,
				Msg: fmt.Sprintf("group %d's design has %d rows, want %d", gi+1, zn, d.N)}
		}
		rr, rl := g.R.Dims()
		if rr != d.S || rl != zl {
			return &MismatchError{Term: term,
				Msg: fmt.Sprintf("group %d's draws are %dx%d, want %dx%d", gi+1, rr, rl, d.S, zl)}
		}
	}
	return nil
}

func (d *Draws) validateSP() error {
	sp := d.SP
	if sp == nil {
		return nil
	}
	const term = "special effects"
	if len(sp.Simo) != len(sp.Xmo) {
		return &MismatchError{Term: term,
			Msg: fmt.Sprintf("%d simplex draws for %d monotonic covariates", len(sp.Simo), len(sp.Xmo))}
	}
	for i, simo := range sp.Simo {
		if r, _ := simo.Dims(); r != d.S {
			return &MismatchError{Term: term,
				Msg: fmt.Sprintf("simo%d has %d rows, want %d", i+1, r, d.S)}
		}
	}
	for i, xmo := range sp.Xmo {
		if len(xmo) != d.N {
			return &MismatchError{Term: term,
				Msg: fmt.Sprintf("Xmo%d has %d values, want %d", i+1, len(xmo), d.N)}
		}
	}
	for i, xme := range sp.Xme {
		if err := d.drawsByObs(xme, term, fmt.Sprintf("Xme%d", i+1)); err != nil {
			return err
		}
	}
	for i, csp := range sp.Csp {
		if len(csp) != d.N {
			return &MismatchError{Term: term,
				Msg: fmt.Sprintf("Csp%d has %d values, want %d", i+1, len(csp), d.N)}
		}
	}
	if sp.Y != nil {
		if err := d.drawsByObs(sp.Y, term, "response draws"); err != nil {
			return err
		}
	}
	for ti := range sp.Terms {
		t := &sp.Terms[ti]
		what := fmt.Sprintf("special term %d", ti+1)
		if t.Expr == nil {
			return &MismatchError{Term: what, Msg: "has no expression"}
		}
		if len(t.B) != d.S {
			return &MismatchError{Term: what,
				Msg: fmt.Sprintf("has %d coefficient draws, want %d", len(t.B), d.S)}
		}
		if err := d.validateRE(t.RE, what+" group effects"); err != nil {
			return err
		}
	}
	return nil
}

func (d *Draws) validateSM() error {
	sm := d.SM
	if sm == nil {
		return nil
	}
	if err := d.validateFE(sm.FE, "smooth fixed basis"); err != nil {
		return err
	}
	for ti := range sm.Terms {
		t := &sm.Terms[ti]
		what := fmt.Sprintf("smooth term %d", ti+1)
		if len(t.Zs) != len(t.Bs) {
			return &MismatchError{Term: what,
				Msg: fmt.Sprintf("has %d basis blocks and %d draw blocks", len(t.Zs), len(t.Bs))}
		}
		for j := range t.Zs {
			zn, zl := t.Zs[j].Dims()
			if zn != d.N {
				return &MismatchError{Term: what,
					Msg: fmt.Sprintf("basis %d has %d rows, want %d", j+1, zn, d.N)}
			}
			br, bl := t.Bs[j].Dims()
			if br != d.S || bl != zl {
				return &MismatchError{Term: what,
					Msg: fmt.Sprintf("draws %d are %dx%d, want %dx%d", j+1, br, bl, d.S, zl)}
			}
		}
	}
	return nil
}

func (d *Draws) validateGP(t *GPTerm, what string) error {
	if t == nil {
		return &MismatchError{Term: what, Msg: "is nil"}
	}
	if len(t.SDGP) != d.S || len(t.LScale) != d.S {
		return &MismatchError{Term: what,
			Msg: fmt.Sprintf("has %d sd and %d length-scale draws, want %d", len(t.SDGP), len(t.LScale), d.S)}
	}
	if t.X == nil {
		return &MismatchError{Term: what, Msg: "has no covariate locations"}
	}
	xr, xc := t.X.Dims()
	var base int
	switch {
	case t.SLambda != nil:
		nb, _ := t.SLambda.Dims()
		if xc != nb {
			return &MismatchError{Term: what,
				Msg: fmt.Sprintf("eigenfunction matrix has %d columns for %d eigenfrequencies", xc, nb)}
		}
		if t.ZGP == nil {
			return &MismatchError{Term: what, Msg: "has no whitened draws"}
		}
		if zr, zc := t.ZGP.Dims(); zr != d.S || zc != nb {
			return &MismatchError{Term: what,
				Msg: fmt.Sprintf("whitened draws are %dx%d, want %dx%d", zr, zc, d.S, nb)}
		}
		base = xr
	case t.XNew != nil:
		nr, nc := t.XNew.Dims()
		if nc != xc {
			return &MismatchError{Term: what,
				Msg: fmt.Sprintf("fitted locations have %d dimensions, new locations %d", xc, nc)}
		}
		if t.YL == nil {
			return &MismatchError{Term: what, Msg: "has no fitted-data values to condition on"}
		}
		if yr, yc := t.YL.Dims(); yr != d.S || yc != xr {
			return &MismatchError{Term: what,
				Msg: fmt.Sprintf("fitted-data values are %dx%d, want %dx%d", yr, yc, d.S, xr)}
		}
		base = nr
	default:
		if t.ZGP == nil {
			return &MismatchError{Term: what, Msg: "has no whitened draws"}
		}
		if zr, zc := t.ZGP.Dims(); zr != d.S || zc != xr {
			return &MismatchError{Term: what,
				Msg: fmt.Sprintf("whitened draws are %dx%d, want %dx%d", zr, zc, d.S, xr)}
		}
		base = xr
	}
	cols := base
	if t.JGP != nil {
		for _, j := range t.JGP {
			if j < 0 || j >= base {
				return &MismatchError{Term: what,
					Msg: fmt.Sprintf("location index %d out of range for %d unique locations", j, base)}
			}
		}
		cols = len(t.JGP)
	}
	if t.CGP != nil && len(t.CGP) != cols {
		return &MismatchError{Term: what,
			Msg: fmt.Sprintf("has %d scaling values for %d observations", len(t.CGP), cols)}
	}
	if t.Obs != nil {
		if len(t.Obs) != cols {
			return &MismatchError{Term: what,
				Msg: fmt.Sprintf("evaluates to %d columns for %d owned observations", cols, len(t.Obs))}
		}
		for _, o := range t.Obs {
			if o < 0 || o >= d.N {
				return &MismatchError{Term: what,
					Msg: fmt.Sprintf("owned observation %d out of range for %d observations", o, d.N)}
			}
		}
	} else if cols != d.N {
		return &MismatchError{Term: what,
			Msg: fmt.Sprintf("evaluates to %d columns, want %d", cols, d.N)}
	}
	return nil
}

func (d *Draws) validateAC() error {
	ac := d.AC
	if ac == nil {
		return nil
	}
	const term = "ARMA structure"
	if ac.Err != nil {
		if err := d.drawsByObs(ac.Err, "latent residuals", "draws"); err != nil {
			return err
		}
	}
	for _, m := range []*mat.Dense{ac.AR, ac.MA} {
		if m == nil {
			continue
		}
		if r, _ := m.Dims(); r != d.S {
			return &MismatchError{Term: term,
				Msg: fmt.Sprintf("coefficient draws have %d rows, want %d", r, d.S)}
		}
	}
	if ac.AR != nil || ac.MA != nil {
		if len(ac.Y) != d.N {
			return &MismatchError{Term: term,
				Msg: fmt.Sprintf("response has %d observations, want %d", len(ac.Y), d.N)}
		}
		if ac.Lag != nil {
			if len(ac.Lag) != d.N {
				return &MismatchError{Term: term,
					Msg: fmt.Sprintf("lag counts cover %d observations, want %d", len(ac.Lag), d.N)}
			}
			for n, l := range ac.Lag {
				if l < 0 {
					return &MismatchError{Term: term,
						Msg: fmt.Sprintf("negative lag count at observation %d", n)}
				}
			}
		}
	}
	if ac.CAR != nil {
		if err := d.validateRE([]GroupEffect{*ac.CAR}, "CAR structure"); err != nil {
			return err
		}
	}
	return nil
}

func (d *Draws) validateCS() error {
	cs := d.CS
	if cs == nil {
		return nil
	}
	const term = "category-specific effects"
	if cs.NThres < 1 {
		return &MismatchError{Term: term,
			Msg: fmt.Sprintf("%d thresholds, want at least 1", cs.NThres)}
	}
	if (cs.X == nil) != (cs.B == nil) {
		return &MismatchError{Term: term,
			Msg: "design matrix and coefficient draws must be jointly nil or jointly set"}
	}
	if cs.X != nil {
		xn, xk := cs.X.Dims()
		if xn != d.N {
			return &MismatchError{Term: term,
				Msg: fmt.Sprintf("design matrix has %d rows, want %d", xn, d.N)}
		}
		if br, bc := cs.B.Dims(); br != d.S || bc != xk*cs.NThres {
			return &MismatchError{Term: term,
				Msg: fmt.Sprintf("draws are %dx%d, want %dx%d", br, bc, d.S, xk*cs.NThres)}
		}
	}
	for gi := range cs.RE {
		g := &cs.RE[gi]
		what := "category-specific group effects"
		if g.Z == nil {
			return &MismatchError{Term: what,
				Msg: fmt.Sprintf("group %d has no indicator design", gi+1)}
		}
		zn, zl := g.Z.Dims()
		if zn != d.N {
			return &MismatchError{Term: what,
				Msg: fmt.Sprintf("group %d's design has %d rows, want %d", gi+1, zn, d.N)}
		}
		if len(g.R) != cs.NThres {
			return &MismatchError{Term: what,
				Msg: fmt.Sprintf("group %d has draws for %d thresholds, want %d", gi+1, len(g.R), cs.NThres)}
		}
		for k, r := range g.R {
			if rr, rl := r.Dims(); rr != d.S || rl != zl {
				return &MismatchError{Term: what,
					Msg: fmt.Sprintf("group %d, threshold %d: draws are %dx%d, want %dx%d", gi+1, k+1, rr, rl, d.S, zl)}
			}
		}
	}
	return nil
}
