// Package try turns (value, error) pairs into values, or fatal errors.
//
//	conf := try.To(configs.LoadBackendConfig(path)).OrFatal(logger)
package try

// Fataler is something having `Fatal`, like *testing.T, *log.Logger or *logrus.Logger.
type Fataler interface {
	Fatal(...any)
}

// Either wraps a pair of (T, error).
//
// It is "ok" when the error is nil. Otherwise the T value is not valid.
type Either[T any] interface {
	// Get returns (value, nil) if ok, or (zero-value, error).
	Get() (T, error)

	// OrFatal returns the value if ok.
	//
	// Otherwise, it calls ftl.Fatal(err).
	// When ftl has "Helper()" (like *testing.T), that is called before `Fatal`.
	OrFatal(ftl Fataler) T
}

func To[T any](value T, err error) Either[T] {
	return either[T]{value: value, err: err}
}

type either[T any] struct {
	value T
	err   error
}

func (e either[T]) Get() (T, error) {
	if e.err != nil {
		return *new(T), e.err
	}
	return e.value, nil
}

func (e either[T]) OrFatal(ftl Fataler) T {
	if e.err == nil {
		return e.value
	}
	if h, ok := ftl.(interface{ Helper() }); ok {
		h.Helper()
	}
	ftl.Fatal(e.err)
	return *new(T)
}
