// Package expr evaluates the arithmetic formulas attached to draws bundles:
// nonlinear model formulas and special-term expressions. Formulas combine
// scalars, per-observation vectors and draws-by-observations matrices with
// elementwise operators, broadcasting the smaller shape over the larger one.
package expr

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Expr is a node of a parsed formula.
type Expr interface {
	// Eval computes the node's value in env.
	Eval(env *Env) (Value, error)
}

// Num is a numeric literal.
type Num float64

// Var references a variable bound in the environment.
type Var string

// Call applies a function bound in the environment.
type Call struct {
	Name string
	Args []Expr
}

// Neg negates its operand elementwise.
type Neg struct {
	X Expr
}

// Binary combines two operands with an elementwise arithmetic operator, one
// of + - * / ^.
type Binary struct {
	Op   byte
	L, R Expr
}

var (
	_ Expr = Num(0)
	_ Expr = Var("")
	_ Expr = (*Call)(nil)
	_ Expr = (*Neg)(nil)
	_ Expr = (*Binary)(nil)
)

func (n Num) Eval(*Env) (Value, error) {
	return Scalar(float64(n)), nil
}

func (v Var) Eval(env *Env) (Value, error) {
	val, ok := env.Var(string(v))
	if !ok {
		return Value{}, &UnknownVarError{Name: string(v)}
	}
	return val, nil
}

func (c *Call) Eval(env *Env) (Value, error) {
	fn, ok := env.Func(c.Name)
	if !ok {
		return Value{}, &UnknownFuncError{Name: c.Name}
	}
	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		v, err := a.Eval(env)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	out, err := fn(args)
	if err != nil {
		return Value{}, fmt.Errorf("expr: %s: %w", c.Name, err)
	}
	return out, nil
}

func (n *Neg) Eval(env *Env) (Value, error) {
	v, err := n.X.Eval(env)
	if err != nil {
		return Value{}, err
	}
	return mapValue(v, func(x float64) float64 { return -x }), nil
}

func (b *Binary) Eval(env *Env) (Value, error) {
	l, err := b.L.Eval(env)
	if err != nil {
		return Value{}, err
	}
	r, err := b.R.Eval(env)
	if err != nil {
		return Value{}, err
	}
	return combine(b.Op, l, r)
}

// combine applies an elementwise operator to two values. Scalars broadcast
// over everything; a vector broadcasts over the rows of a matrix and must
// have one element per matrix column; two vectors or two matrices must have
// identical shapes.
func combine(op byte, l, r Value) (Value, error) {
	fn := opFunc(op)
	switch {
	case l.Kind == KindScalar && r.Kind == KindScalar:
		return Scalar(fn(l.Scalar, r.Scalar)), nil

	case l.Kind == KindScalar:
		return mapValue(r, func(x float64) float64 { return fn(l.Scalar, x) }), nil

	case r.Kind == KindScalar:
		return mapValue(l, func(x float64) float64 { return fn(x, r.Scalar) }), nil

	case l.Kind == KindVector && r.Kind == KindVector:
		if len(l.Vec) != len(r.Vec) {
			return Value{}, &ShapeError{Op: op, L: l.shape(), R: r.shape()}
		}
		out := make([]float64, len(l.Vec))
		for i := range out {
			out[i] = fn(l.Vec[i], r.Vec[i])
		}
		return Vector(out), nil

	case l.Kind == KindVector:
		rows, cols := r.Mat.Dims()
		if len(l.Vec) != cols {
			return Value{}, &ShapeError{Op: op, L: l.shape(), R: r.shape()}
		}
		out := mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out.Set(i, j, fn(l.Vec[j], r.Mat.At(i, j)))
			}
		}
		return Matrix(out), nil

	case r.Kind == KindVector:
		rows, cols := l.Mat.Dims()
		if len(r.Vec) != cols {
			return Value{}, &ShapeError{Op: op, L: l.shape(), R: r.shape()}
		}
		out := mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out.Set(i, j, fn(l.Mat.At(i, j), r.Vec[j]))
			}
		}
		return Matrix(out), nil

	default:
		lr, lc := l.Mat.Dims()
		rr, rc := r.Mat.Dims()
		if lr != rr || lc != rc {
			return Value{}, &ShapeError{Op: op, L: l.shape(), R: r.shape()}
		}
		out := mat.NewDense(lr, lc, nil)
		for i := 0; i < lr; i++ {
			for j := 0; j < lc; j++ {
				out.Set(i, j, fn(l.Mat.At(i, j), r.Mat.At(i, j)))
			}
		}
		return Matrix(out), nil
	}
}

func opFunc(op byte) func(a, b float64) float64 {
	switch op {
	case '+':
		return func(a, b float64) float64 { return a + b }
	case '-':
		return func(a, b float64) float64 { return a - b }
	case '*':
		return func(a, b float64) float64 { return a * b }
	case '/':
		return func(a, b float64) float64 { return a / b }
	case '^':
		return math.Pow
	}
	panic(fmt.Sprintf("expr: invalid operator %q", op))
}
