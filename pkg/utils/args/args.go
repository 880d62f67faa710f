// Package args adapts parser functions to flag.Value.
package args

import "flag"

// Adapter is flag.Value for T, parsed by a function.
type Adapter[T interface{ String() string }] struct {
	value  T
	parser func(string) (T, error)
	isSet  bool
}

var _ flag.Value = &Adapter[interface{ String() string }]{}

func (a *Adapter[T]) String() string {
	if !a.isSet {
		return ""
	}
	return a.value.String()
}

// Set parses s. On error, the value stays as it was.
func (a *Adapter[T]) Set(s string) error {
	v, err := a.parser(s)
	if err != nil {
		return err
	}
	a.value, a.isSet = v, true
	return nil
}

// Value is the parsed value, or zero-value if not set.
func (a *Adapter[T]) Value() T {
	return a.value
}

func (a *Adapter[T]) IsSet() bool {
	return a.isSet
}

func Parser[T interface{ String() string }](parser func(string) (T, error)) *Adapter[T] {
	return &Adapter[T]{parser: parser}
}
