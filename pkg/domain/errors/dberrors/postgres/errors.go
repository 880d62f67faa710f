package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/opst/eoflow/pkg/domain"
)

// requested row is missing.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s", m.Identity, m.Table)
}

func (m Missing) Unwrap() error {
	return domain.ErrMissing
}

// requested row conflicts with an existing one.
type Conflict struct {
	Table      string
	Constraint string
}

var _ error = Conflict{}

func (c Conflict) Error() string {
	return fmt.Sprintf("conflicts in %s (%s)", c.Table, c.Constraint)
}

func (c Conflict) Unwrap() error {
	return domain.ErrConflict
}

// Classify converts integrity violations reported by postgres into domain errors.
//
// Other errors are returned as they are.
func Classify(err error) error {
	pgerr := new(pgconn.PgError)
	if !errors.As(err, &pgerr) {
		return err
	}

	switch pgerr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", Conflict{Table: pgerr.TableName, Constraint: pgerr.ConstraintName}, pgerr.Message)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s", Missing{Table: pgerr.TableName, Identity: pgerr.ConstraintName}, pgerr.Message)
	default:
		return err
	}
}
