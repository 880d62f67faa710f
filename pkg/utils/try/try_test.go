package try_test

import (
	"errors"
	"testing"

	"github.com/opst/eoflow/pkg/utils/try"
)

type fataler struct {
	helped bool
	fatals []any
}

func (f *fataler) Helper() {
	f.helped = true
}

func (f *fataler) Fatal(v ...any) {
	f.fatals = append(f.fatals, v...)
}

func TestTo(t *testing.T) {
	t.Run("ok: it returns the value", func(t *testing.T) {
		f := &fataler{}
		if v := try.To(42, nil).OrFatal(f); v != 42 {
			t.Errorf("value: %d", v)
		}
		if len(f.fatals) != 0 || f.helped {
			t.Errorf("fatal is called: %+v", f)
		}

		v, err := try.To("x", nil).Get()
		if v != "x" || err != nil {
			t.Errorf("(value, err) = (%s, %v)", v, err)
		}
	})

	t.Run("ng: it calls Fatal with the error", func(t *testing.T) {
		cause := errors.New("fake error")
		f := &fataler{}
		if v := try.To(42, cause).OrFatal(f); v != 0 {
			t.Errorf("value should be zero: %d", v)
		}
		if !f.helped {
			t.Error("Helper is not called")
		}
		if len(f.fatals) != 1 || f.fatals[0] != cause {
			t.Errorf("fatals: %v", f.fatals)
		}

		v, err := try.To(42, cause).Get()
		if v != 0 || !errors.Is(err, cause) {
			t.Errorf("(value, err) = (%d, %v)", v, err)
		}
	})
}
