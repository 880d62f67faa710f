package domain

import "time"

type OutputKind string

const (
	// value is a path of a file or directory
	FileOutput OutputKind = "file"

	// value is used as is
	ValueOutput OutputKind = "value"
)

// Output is a value produced by a task, on its way to be recorded.
type Output struct {
	TaskId string
	Name   string
	Kind   OutputKind
	Value  string
}

// Product is an earth-observation product produced by a task.
type Product struct {
	Name string

	// Where the product is. Path or URI.
	Location string

	// zero when unknown
	AcquisitionDate time.Time
}
