package pred

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/maj-tki/goeta/utils"
)

// ResponseSampler draws from the posterior predictive distribution of one
// observation's response. The ARMA recursion invokes it whenever the
// observed response is missing: n is the observation's index and eta holds
// the predictor accumulated so far for observations 0..n. The sampler
// returns one response value per posterior draw.
type ResponseSampler interface {
	SampleResponse(n int, eta *mat.Dense) ([]float64, error)
}

func (ev *evaluator) autocor(eta *mat.Dense, obs []int) error {
	ac := ev.d.AC
	if ac == nil {
		return nil
	}
	d := ev.d
	if ac.Err != nil {
		er, ec := ac.Err.Dims()
		if er != d.S || ec != d.N {
			return &MismatchError{Term: "latent residuals",
				Msg: fmt.Sprintf("draws are %dx%d, want %dx%d", er, ec, d.S, d.N)}
		}
		eta.Add(eta, utils.Cols(ac.Err, obs))
	}
	if ac.AR != nil || ac.MA != nil {
		if obs != nil {
			return ErrPointwiseARMA
		}
		if err := ev.arma(eta); err != nil {
			return err
		}
	}
	if ac.CAR != nil {
		out, err := crossProd(ac.CAR.R, utils.Rows(ac.CAR.Z, obs), d.S, "CAR structure")
		if err != nil {
			return err
		}
		eta.Add(eta, out)
	}
	return nil
}

// arma applies the AR and MA terms to eta in observation order. Each step
// adds the moving-average sum over past residuals, snapshots the predictor
// before its autoregressive part, adds the autoregressive sum, resolves the
// observation's response (observed, or sampled when missing) and pushes the
// residual against the pre-AR predictor into the lag window.
func (ev *evaluator) arma(eta *mat.Dense) error {
	ac := ev.d.AC
	s, nobs := eta.Dims()
	var kar, kma int
	if ac.AR != nil {
		if ar, _ := ac.AR.Dims(); ar != s {
			return &MismatchError{Term: "ARMA structure",
				Msg: fmt.Sprintf("AR draws have %d rows, want %d", ar, s)}
		}
		_, kar = ac.AR.Dims()
	}
	if ac.MA != nil {
		if mr, _ := ac.MA.Dims(); mr != s {
			return &MismatchError{Term: "ARMA structure",
				Msg: fmt.Sprintf("MA draws have %d rows, want %d", mr, s)}
		}
		_, kma = ac.MA.Dims()
	}
	if len(ac.Y) != nobs {
		return &MismatchError{Term: "ARMA structure",
			Msg: fmt.Sprintf("response has %d observations, want %d", len(ac.Y), nobs)}
	}
	if ac.Lag != nil && len(ac.Lag) != nobs {
		return &MismatchError{Term: "ARMA structure",
			Msg: fmt.Sprintf("lag counts cover %d observations, want %d", len(ac.Lag), nobs)}
	}

	// the window must span every coefficient lag
	maxLag := max(1, kar, kma)
	for _, l := range ac.Lag {
		maxLag = max(maxLag, l)
	}
	win := newLagWindow(s, maxLag)
	preAR := make([]float64, s)
	resid := make([]float64, s)
	for n := 0; n < nobs; n++ {
		for j := 0; j < kma; j++ {
			rj := win.at(j)
			for i := 0; i < s; i++ {
				eta.Set(i, n, eta.At(i, n)+ac.MA.At(i, j)*rj[i])
			}
		}
		// the observation's residual is defined against the predictor
		// before its own AR terms
		for i := 0; i < s; i++ {
			preAR[i] = eta.At(i, n)
		}
		for j := 0; j < kar; j++ {
			rj := win.at(j)
			for i := 0; i < s; i++ {
				eta.Set(i, n, eta.At(i, n)+ac.AR.At(i, j)*rj[i])
			}
		}
		if math.IsNaN(ac.Y[n]) {
			if ev.cfg.sampler == nil {
				return ErrNoSampler
			}
			state := mat.DenseCopyOf(eta.Slice(0, s, 0, n+1))
			y, err := ev.cfg.sampler.SampleResponse(n, state)
			if err != nil {
				return fmt.Errorf("pred: sampling missing response %d: %w", n, err)
			}
			if len(y) != s {
				return &MismatchError{Term: "response sampler",
					Msg: fmt.Sprintf("returned %d draws, want %d", len(y), s)}
			}
			for i := 0; i < s; i++ {
				resid[i] = y[i] - preAR[i]
			}
		} else {
			for i := 0; i < s; i++ {
				resid[i] = ac.Y[n] - preAR[i]
			}
		}
		lag := maxLag
		if ac.Lag != nil {
			if ac.Lag[n] < 0 {
				return &MismatchError{Term: "ARMA structure",
					Msg: fmt.Sprintf("negative lag count at observation %d", n)}
			}
			lag = ac.Lag[n]
		}
		win.push(resid, lag)
	}
	return nil
}

// lagWindow is a fixed-capacity ring buffer over the residual vectors of the
// most recent observations, most recent first.
type lagWindow struct {
	buf  [][]float64
	head int
}

func newLagWindow(s, maxLag int) *lagWindow {
	buf := make([][]float64, maxLag)
	for i := range buf {
		buf[i] = make([]float64, s)
	}
	return &lagWindow{buf: buf}
}

// at returns the residuals of the j-th most recent observation.
func (w *lagWindow) at(j int) []float64 {
	return w.buf[(w.head+j)%len(w.buf)]
}

// push slides the window forward with the newest residuals e, keeping only
// the lag most recent slots valid and zeroing the rest. A lag of zero clears
// the whole window, which is what separates independent series.
func (w *lagWindow) push(e []float64, lag int) {
	w.head = (w.head + len(w.buf) - 1) % len(w.buf)
	copy(w.buf[w.head], e)
	for j := lag; j < len(w.buf); j++ {
		clear(w.buf[(w.head+j)%len(w.buf)])
	}
}
