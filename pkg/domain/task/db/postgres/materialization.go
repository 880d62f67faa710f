package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	kpool "github.com/opst/eoflow/pkg/conn/db/postgres/pool"
	kpgerr "github.com/opst/eoflow/pkg/domain/errors/dberrors/postgres"
	kdb "github.com/opst/eoflow/pkg/domain/task/db"
	xe "github.com/opst/eoflow/pkg/errors"
)

type materializationPG struct {
	pool kpool.Pool
}

func NewMaterialization(pool kpool.Pool) kdb.MaterializationInterface {
	return &materializationPG{pool: pool}
}

// lockLink blocks until no other transaction works on the link.
func lockLink(ctx context.Context, tx kpool.Queryer, link string) error {
	_, err := tx.Exec(ctx, `select pg_advisory_xact_lock(hashtext($1))`, link)
	return xe.Wrap(err)
}

func (m *materializationPG) Hold(
	ctx context.Context, taskId string, link string,
	materialize func() (string, error),
) (bool, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return false, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	if err := lockLink(ctx, tx, link); err != nil {
		return false, err
	}

	var target string
	if err := tx.QueryRow(
		ctx, `select "target" from "materialized_link" where "link" = $1 limit 1`, link,
	).Scan(&target); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, xe.Wrap(err)
		}
		target, err = materialize()
		if err != nil {
			return false, err
		}
		if target == "" {
			return false, nil
		}
	}

	if _, err := tx.Exec(
		ctx,
		`
		insert into "materialized_link" ("task_id", "link", "target")
		values ($1::text::uuid, $2, $3)
		on conflict do nothing
		`,
		taskId, link, target,
	); err != nil {
		return false, xe.Wrap(kpgerr.Classify(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return false, xe.Wrap(err)
	}
	return true, nil
}

func (m *materializationPG) Release(
	ctx context.Context, taskId string,
	restore func(link string, target string) error,
) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	type held struct {
		link   string
		target string
	}
	rows, err := tx.Query(
		ctx,
		`select "link", "target" from "materialized_link" where "task_id"::text = $1 order by "link"`,
		taskId,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	helds := []held{}
	for rows.Next() {
		var h held
		if err := rows.Scan(&h.link, &h.target); err != nil {
			rows.Close()
			return xe.Wrap(err)
		}
		helds = append(helds, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return xe.Wrap(err)
	}

	errs := []error{}
	// links are locked in order, so releasing tasks do not deadlock each other.
	for _, h := range helds {
		if err := lockLink(ctx, tx, h.link); err != nil {
			return err
		}
		if _, err := tx.Exec(
			ctx,
			`delete from "materialized_link" where "task_id"::text = $1 and "link" = $2`,
			taskId, h.link,
		); err != nil {
			return xe.Wrap(err)
		}

		var others int
		if err := tx.QueryRow(
			ctx, `select count(*) from "materialized_link" where "link" = $1`, h.link,
		).Scan(&others); err != nil {
			return xe.Wrap(err)
		}
		if others != 0 {
			continue
		}
		if err := restore(h.link, h.target); err != nil {
			errs = append(errs, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		errs = append(errs, xe.Wrap(err))
	}
	return errors.Join(errs...)
}
