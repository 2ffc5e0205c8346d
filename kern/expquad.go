package kern

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ExpQuad implements the exponentiated-quadratic covariance kernel, i.e.,
//
//	k(x, x') = sd^2 exp(-||x - x'||^2 / (2 l^2)),
//
// parameterized by one posterior draw of the marginal standard deviation sd
// and the isotropic length-scale l.
type ExpQuad struct {
	SD     float64
	LScale float64
}

// Cov computes the covariance matrix over the rows of x.
func (k ExpQuad) Cov(x *mat.Dense) *mat.SymDense {
	n, _ := x.Dims()
	sd2 := k.SD * k.SD
	c := -0.5 / (k.LScale * k.LScale)
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, sd2)
		for j := i + 1; j < n; j++ {
			d := floats.Distance(x.RawRowView(i), x.RawRowView(j), 2)
			out.SetSym(i, j, sd2*math.Exp(c*d*d))
		}
	}
	return out
}

// CrossCov computes the covariance matrix between the rows of x and the rows
// of y.
func (k ExpQuad) CrossCov(x, y *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	m, _ := y.Dims()
	sd2 := k.SD * k.SD
	c := -0.5 / (k.LScale * k.LScale)
	out := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			d := floats.Distance(x.RawRowView(i), y.RawRowView(j), 2)
			out.Set(i, j, sd2*math.Exp(c*d*d))
		}
	}
	return out
}

// SpectralDensity evaluates the kernel's spectral density at a frequency
// vector w, i.e.,
//
//	s(w) = sd^2 (sqrt(2 pi) l)^D exp(-l^2 ||w||^2 / 2),
//
// where D is the dimensionality of the input space.
func (k ExpQuad) SpectralDensity(freq []float64) float64 {
	d := float64(len(freq))
	c := k.SD * k.SD * math.Pow(math.Sqrt2*math.SqrtPi*k.LScale, d)
	return c * math.Exp(-0.5*k.LScale*k.LScale*floats.Dot(freq, freq))
}
