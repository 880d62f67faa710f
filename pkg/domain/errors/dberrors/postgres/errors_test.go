package postgres_test

import (
	"errors"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/opst/eoflow/pkg/domain"
	pgerrors "github.com/opst/eoflow/pkg/domain/errors/dberrors/postgres"
)

func TestClassify(t *testing.T) {
	type When struct {
		err error
	}
	type Then struct {
		is error
	}

	theory := func(when When, then Then) func(*testing.T) {
		return func(t *testing.T) {
			actual := pgerrors.Classify(when.err)
			if !errors.Is(actual, then.is) {
				t.Errorf("unexpected error: %v (expected to be %v)", actual, then.is)
			}
		}
	}

	t.Run("unique violation is conflict", theory(
		When{err: &pgconn.PgError{Code: pgerrcode.UniqueViolation, TableName: "task"}},
		Then{is: domain.ErrConflict},
	))

	t.Run("foreign key violation is missing", theory(
		When{err: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, TableName: "task"}},
		Then{is: domain.ErrMissing},
	))

	other := errors.New("other")
	t.Run("other errors are kept", theory(
		When{err: other},
		Then{is: other},
	))

	t.Run("Missing is ErrMissing", func(t *testing.T) {
		if !errors.Is(pgerrors.Missing{Table: "job", Identity: "id = x"}, domain.ErrMissing) {
			t.Error("not ErrMissing")
		}
	})
}
