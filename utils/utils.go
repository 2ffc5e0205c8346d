package utils

import (
	"gonum.org/v1/gonum/mat"
)

// Select rows of a matrix. A nil index selects all rows.
func Rows(m *mat.Dense, idx []int) *mat.Dense {
	if idx == nil {
		return m
	}
	_, c := m.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		out.SetRow(i, m.RawRowView(r))
	}
	return out
}

// Select columns of a matrix. A nil index selects all columns.
func Cols(m *mat.Dense, idx []int) *mat.Dense {
	if idx == nil {
		return m
	}
	r, _ := m.Dims()
	out := mat.NewDense(r, len(idx), nil)
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j, c := range idx {
			out.Set(i, j, row[c])
		}
	}
	return out
}

// Select elements of a slice. A nil index selects all elements.
func Elems[T any](v []T, idx []int) []T {
	if idx == nil {
		return v
	}
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}

// Replicate a row vector s times.
func RepRow(row []float64, s int) *mat.Dense {
	out := mat.NewDense(s, len(row), nil)
	for i := 0; i < s; i++ {
		out.SetRow(i, row)
	}
	return out
}

// Identity matrix.
func Eye(n int) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out
}
