package pred

import (
	"errors"
	"fmt"
)

var (
	// ErrNilDraws is returned when evaluation is attempted on a nil bundle.
	ErrNilDraws = errors.New("pred: nil draws bundle")

	// ErrNilProvider is returned by Nonlinear when no parameter provider is
	// given.
	ErrNilProvider = errors.New("pred: nil parameter provider")

	// ErrPointwiseGP is returned when a Gaussian-process term is evaluated
	// on an observation subset: the covariance couples all observations, so
	// only full-data evaluation is possible.
	ErrPointwiseGP = errors.New("pred: pointwise evaluation is not supported for Gaussian process terms")

	// ErrPointwiseARMA is the ARMA counterpart of ErrPointwiseGP: the
	// recursion needs every preceding observation.
	ErrPointwiseARMA = errors.New("pred: pointwise evaluation is not supported for ARMA terms")

	// ErrNoRandSource is returned when predicting a Gaussian process at new
	// locations, which draws from the conditional distribution, without a
	// WithRand source.
	ErrNoRandSource = errors.New("pred: drawing from a Gaussian process at new locations requires WithRand")

	// ErrNoSampler is returned when the ARMA recursion meets a missing
	// response and no WithResponseSampler collaborator is set.
	ErrNoSampler = errors.New("pred: imputing a missing response requires WithResponseSampler")

	// ErrNoFormula is returned by Nonlinear on a bundle without a nonlinear
	// formula.
	ErrNoFormula = errors.New("pred: draws bundle carries no nonlinear formula")

	// ErrMonotonicRange is returned when a monotonic covariate lies outside
	// 0..D for a simplex with D columns.
	ErrMonotonicRange = errors.New("pred: monotonic covariate outside the simplex range")
)

// MismatchError reports a term whose pieces do not conform, typically a
// design matrix at odds with its coefficient draws. The usual cause is a
// covariate that changed between the fitting and the prediction data.
type MismatchError struct {
	Term string
	Msg  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("pred: %s: %s (was a covariate converted between numeric and factor, or dropped, after fitting?)", e.Term, e.Msg)
}
