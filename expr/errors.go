package expr

import "fmt"

// UnknownFuncError reports a formula calling a function that is not bound in
// the evaluation environment.
type UnknownFuncError struct {
	Name string
}

func (e *UnknownFuncError) Error() string {
	return fmt.Sprintf("expr: unknown function %q", e.Name)
}

// UnknownVarError reports a formula referencing a variable that is not bound
// in the evaluation environment.
type UnknownVarError struct {
	Name string
}

func (e *UnknownVarError) Error() string {
	return fmt.Sprintf("expr: unknown variable %q", e.Name)
}

// ShapeError reports two operands whose shapes do not conform under
// elementwise broadcasting.
type ShapeError struct {
	Op   byte
	L, R string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("expr: operands of %q do not conform: %s vs %s", e.Op, e.L, e.R)
}
