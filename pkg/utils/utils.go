// Package utils is a small set of generic helpers for slices and pointers.
package utils

// Map applies mapper to each element of sli, keeping order.
func Map[T any, R any](sli []T, mapper func(T) R) []R {
	ret := make([]R, len(sli))
	for i, v := range sli {
		ret[i] = mapper(v)
	}
	return ret
}

// IfNotNil maps t when it is not nil. Otherwise, it returns nil.
func IfNotNil[T any, U any](t *T, mapper func(*T) *U) *U {
	if t == nil {
		return nil
	}
	return mapper(t)
}

// Ref returns a pointer to a copy of v.
func Ref[T any](v T) *T {
	return &v
}
