package pred

import (
	"math/rand"
	"runtime"

	"github.com/maj-tki/goeta/expr"
)

// Option adjusts one evaluation call.
type Option func(*config)

type config struct {
	workers int
	rng     *rand.Rand
	sampler ResponseSampler
	funcs   map[string]expr.Func
}

func newConfig(opts []Option) *config {
	cfg := &config{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithWorkers caps the goroutines used for the data-parallel regions. The
// default is runtime.NumCPU. Panics if n < 1.
func WithWorkers(n int) Option {
	if n < 1 {
		panic("pred: WithWorkers requires n >= 1")
	}
	return func(c *config) { c.workers = n }
}

// WithRand supplies the source of randomness for Gaussian-process draws at
// new locations. Seeding, and with it reproducibility, stays with the
// caller. Panics on nil.
func WithRand(r *rand.Rand) Option {
	if r == nil {
		panic("pred: WithRand requires a non-nil source")
	}
	return func(c *config) { c.rng = r }
}

// WithResponseSampler supplies the posterior-predictive sampler invoked when
// an ARMA structure meets a missing response. Panics on nil.
func WithResponseSampler(s ResponseSampler) Option {
	if s == nil {
		panic("pred: WithResponseSampler requires a non-nil sampler")
	}
	return func(c *config) { c.sampler = s }
}

// WithFunc exposes fn to special-term and nonlinear formulas under name,
// alongside the standard math functions. Panics on an empty name or nil fn.
func WithFunc(name string, fn expr.Func) Option {
	if name == "" || fn == nil {
		panic("pred: WithFunc requires a name and a non-nil function")
	}
	return func(c *config) {
		if c.funcs == nil {
			c.funcs = make(map[string]expr.Func)
		}
		c.funcs[name] = fn
	}
}
