package expr

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Kind discriminates the shapes a formula value can take.
type Kind uint8

const (
	KindScalar Kind = iota
	KindVector
	KindMatrix
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindVector:
		return "vector"
	case KindMatrix:
		return "matrix"
	}
	return "unknown"
}

// Value is the result of evaluating an expression: a scalar constant, a
// per-observation vector, or a draws-by-observations matrix.
type Value struct {
	Kind   Kind
	Scalar float64
	Vec    []float64
	Mat    *mat.Dense
}

func Scalar(v float64) Value { return Value{Kind: KindScalar, Scalar: v} }

func Vector(v []float64) Value { return Value{Kind: KindVector, Vec: v} }

func Matrix(m *mat.Dense) Value { return Value{Kind: KindMatrix, Mat: m} }

func (v Value) shape() string {
	switch v.Kind {
	case KindScalar:
		return "scalar"
	case KindVector:
		return fmt.Sprintf("length-%d vector", len(v.Vec))
	case KindMatrix:
		r, c := v.Mat.Dims()
		return fmt.Sprintf("%dx%d matrix", r, c)
	}
	return "unknown"
}

// mapValue applies fn to every element of v.
func mapValue(v Value, fn func(float64) float64) Value {
	switch v.Kind {
	case KindScalar:
		return Scalar(fn(v.Scalar))
	case KindVector:
		out := make([]float64, len(v.Vec))
		for i, x := range v.Vec {
			out[i] = fn(x)
		}
		return Vector(out)
	default:
		var out mat.Dense
		out.Apply(func(_, _ int, x float64) float64 { return fn(x) }, v.Mat)
		return Matrix(&out)
	}
}
