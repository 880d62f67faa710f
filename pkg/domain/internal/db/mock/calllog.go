package mocks

// CallLog is arguments passed to a mocked method, oldest first.
type CallLog[T any] []T

// Times is how many times the method has been called.
func (l CallLog[T]) Times() uint {
	return uint(len(l))
}

// Last is arguments of the latest call.
//
// When never called, it returns zero value.
func (l CallLog[T]) Last() T {
	if len(l) == 0 {
		return *new(T)
	}
	return l[len(l)-1]
}
