package pred

import (
	"gonum.org/v1/gonum/mat"

	"github.com/maj-tki/goeta/expr"
)

// Draws bundles everything needed to evaluate the predictor of one model
// parameter: the posterior draws of every term's coefficients together with
// the prediction data those terms act on. Draw matrices are S-by-something,
// design matrices N-by-something. Absent terms are nil and contribute
// nothing.
type Draws struct {
	// Number of posterior draws.
	S int
	// Number of observations in the prediction data.
	N int

	// Population-level effects.
	FE *FixedEffects
	// Group-level effects, one entry per grouping term.
	RE []GroupEffect
	// Monotonic, measurement-error and missing-value terms.
	SP *SpecialEffects
	// Smooth terms.
	SM *Smooth
	// Gaussian-process terms.
	GP []*GPTerm
	// Per-observation offset, identical across draws.
	Offset []float64
	// Autocorrelation structures, applied to the accumulated predictor.
	AC *Autocor
	// Category-specific effects, expanding the predictor per threshold.
	CS *CatSpecific
	// Nonlinear formula, evaluated by Nonlinear instead of the additive sum.
	NL *NLForm
}

// FixedEffects holds a design matrix X (N x K) and the matching coefficient
// draws B (S x K). The term contributes B X'.
type FixedEffects struct {
	X *mat.Dense
	B *mat.Dense
}

// GroupEffect holds a sparse-in-spirit indicator design Z (N x L) over the
// L group levels and the level draws R (S x L). The term contributes R Z'.
type GroupEffect struct {
	Z *mat.Dense
	R *mat.Dense
}

// SpecialEffects carries the shared ingredients of all special terms in a
// formula. Each ingredient is bound into the evaluation environment under a
// generated name indexed from one: simplex draws as simo1, simo2, ...,
// monotonic covariates as Xmo1, ..., latent covariate draws as Xme1, ...,
// per-observation weights as Csp1, ..., and the response draws as Y.
type SpecialEffects struct {
	// Simplex draws of the monotonic terms, each S x D.
	Simo []*mat.Dense
	// Monotonic covariate values in 0..D, each of length N.
	Xmo [][]int
	// Draws of noisy covariates' latent values, each S x N.
	Xme []*mat.Dense
	// Per-observation covariate vectors, each of length N.
	Csp [][]float64
	// Draws of the imputed response, S x N.
	Y *mat.Dense

	// The terms themselves.
	Terms []SpecialTerm
}

// SpecialTerm is one special effect: an expression over the bundle's
// ingredients, scaled by its coefficient draws plus any term-specific
// group-level deviations.
type SpecialTerm struct {
	// Expr computes the term's covariate values, shaped S x n (or
	// broadcastable to it).
	Expr expr.Expr
	// B holds one coefficient draw per posterior draw.
	B []float64
	// RE holds group-level deviations of the coefficient, added to B
	// observation-wise.
	RE []GroupEffect
}

// Smooth holds the penalized spline terms: an unpenalized basis treated like
// fixed effects plus, per term, one penalized basis block and its draws per
// penalty.
type Smooth struct {
	FE    *FixedEffects
	Terms []SmoothTerm
}

// SmoothTerm pairs each penalized basis Zs[j] (N x L_j) with its coefficient
// draws Bs[j] (S x L_j).
type SmoothTerm struct {
	Zs []*mat.Dense
	Bs []*mat.Dense
}

// GPTerm is one Gaussian-process term. Three mutually exclusive modes:
//
//   - exact at the fitted locations: only X and ZGP are set, and the term
//     evaluates L_s zgp_s per draw with L_s the Cholesky factor of the
//     kernel over X;
//   - exact at new locations: XNew and YL are set too, and the term draws
//     from the GP conditioned on the fitted-data values YL;
//   - approximate (reduced-rank): SLambda holds the spectral eigenfrequencies,
//     X the precomputed eigenfunctions (N x NB), and the term evaluates
//     (sqrt(spd_s) zgp_s) X' without any factorization.
type GPTerm struct {
	// Covariate locations: N x D exact, or the N x NB eigenfunction matrix
	// in the approximate mode.
	X *mat.Dense
	// New covariate locations to predict at, NNew x D.
	XNew *mat.Dense
	// Marginal standard deviation draws, length S.
	SDGP []float64
	// Length-scale draws, length S.
	LScale []float64
	// Whitened coefficient draws: S x N exact, S x NB approximate.
	ZGP *mat.Dense
	// Fitted-data GP values to condition on, S x N; only with XNew.
	YL *mat.Dense
	// Spectral eigenfrequencies, NB x D; selects the approximate mode.
	SLambda *mat.Dense
	// Numeric covariate the GP is multiplied with, one weight per output
	// observation.
	CGP []float64
	// Maps output observations to unique covariate rows, so X need only
	// carry the distinct locations.
	JGP []int
	// Diagonal jitter added before factorizing; zero means the default.
	Nug float64
	// Observation indices owned by this term when the GP is split by a
	// factor; nil means the term covers all observations.
	Obs []int
}

// Autocor bundles the autocorrelation structures. Latent residuals apply
// first, then the ARMA recursion, then the CAR term.
type Autocor struct {
	// Draws of latent residuals, S x N.
	Err *mat.Dense
	// Autoregressive coefficient draws, S x Kar.
	AR *mat.Dense
	// Moving-average coefficient draws, S x Kma.
	MA *mat.Dense
	// Observed response in observation order; NaN marks a missing value to
	// be imputed through the response sampler. Required with AR or MA.
	Y []float64
	// Lag[n] is how many preceding residuals remain valid at observation n:
	// 0 starts a new series, and nil keeps the full window everywhere.
	Lag []int
	// Conditional autoregressive term, evaluated like a group effect.
	CAR *GroupEffect
}

// CatSpecific holds effects that differ per response threshold. The
// coefficient draws B (S x K*NThres) interleave thresholds within predictor:
// predictor j's draw for threshold k sits in column j*NThres + k.
type CatSpecific struct {
	X      *mat.Dense
	B      *mat.Dense
	RE     []CSGroupEffect
	NThres int
}

// CSGroupEffect is a category-specific group effect: one shared indicator
// design and per-threshold level draws.
type CSGroupEffect struct {
	Z *mat.Dense
	// R[k] holds the S x L draws of threshold k; len(R) must be NThres.
	R []*mat.Dense
}

// NLForm is a nonlinear model formula together with the names of its
// nonlinear parameters and its per-observation covariates.
type NLForm struct {
	Formula expr.Expr
	// Params lists the nonlinear parameter names, resolved through the
	// ParamProvider in declaration order.
	Params []string
	// C maps covariate names to their S x N value matrices.
	C map[string]*mat.Dense
}

func countObs(n int, obs []int) int {
	if obs == nil {
		return n
	}
	return len(obs)
}
