package expr

import (
	"fmt"
	"math"
)

// Func is a function callable from a formula.
type Func func(args []Value) (Value, error)

// StdFuncs holds the elementwise math functions available to every formula
// by default.
var StdFuncs = map[string]Func{
	"exp":       unary(math.Exp),
	"log":       unary(math.Log),
	"log1p":     unary(math.Log1p),
	"expm1":     unary(math.Expm1),
	"sqrt":      unary(math.Sqrt),
	"abs":       unary(math.Abs),
	"fabs":      unary(math.Abs),
	"floor":     unary(math.Floor),
	"ceil":      unary(math.Ceil),
	"sin":       unary(math.Sin),
	"cos":       unary(math.Cos),
	"tan":       unary(math.Tan),
	"tanh":      unary(math.Tanh),
	"inv_logit": unary(invLogit),
	"logit":     unary(logit),
}

// unary lifts an elementwise float function into a Func.
func unary(fn func(float64) float64) Func {
	return func(args []Value) (Value, error) {
		if len(args) != 1 {
			return Value{}, fmt.Errorf("want 1 argument, got %d", len(args))
		}
		return mapValue(args[0], fn), nil
	}
}

func invLogit(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
