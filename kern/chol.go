package kern

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrNotPositiveDefinite is returned when a covariance matrix cannot be
// factorized even after the jitter escalation is exhausted.
var ErrNotPositiveDefinite = errors.New("kern: covariance matrix is not positive definite")

// DefaultNug is the diagonal jitter applied when the caller does not request
// a specific one.
const DefaultNug = 1e-11

// maxFactorAttempts bounds the jitter escalation in Factor.
const maxFactorAttempts = 6

// Factor computes the Cholesky factorization of cov + jitter*I. A jitter of
// zero (or less) starts from DefaultNug. When the factorization fails it is
// retried with ten times the jitter, at most maxFactorAttempts times in
// total; the jitter that succeeded is returned alongside the factor.
func Factor(cov mat.Symmetric, jitter float64) (*mat.Cholesky, float64, error) {
	if jitter <= 0 {
		jitter = DefaultNug
	}
	n := cov.SymmetricDim()
	work := mat.NewSymDense(n, nil)
	var chol mat.Cholesky
	for attempt := 1; ; attempt++ {
		work.CopySym(cov)
		for i := 0; i < n; i++ {
			work.SetSym(i, i, work.At(i, i)+jitter)
		}
		if chol.Factorize(work) {
			return &chol, jitter, nil
		}
		if attempt == maxFactorAttempts {
			return nil, jitter, fmt.Errorf("%w after %d attempts, last jitter %g",
				ErrNotPositiveDefinite, maxFactorAttempts, jitter)
		}
		jitter *= 10
	}
}
