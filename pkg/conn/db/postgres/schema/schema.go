package schema

import (
	"cmp"
	"context"
	"embed"
	"errors"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/opst/eoflow/pkg/conn/db/postgres/pool"
	"github.com/sirupsen/logrus"
)

//go:embed sql
var repository embed.FS

type version struct {
	Version int
	Root    string
}

func (v version) Apply(ctx context.Context, repo fs.FS, conn pool.Queryer) error {
	return fs.WalkDir(repo, v.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".sql") {
			return nil
		}

		query, err := fs.ReadFile(repo, p)
		if err != nil {
			return err
		}
		if _, err := conn.Exec(ctx, string(query)); err != nil {
			return err
		}
		return nil
	})
}

type Schema struct {
	pool   pool.Pool
	repo   fs.FS
	logger logrus.FieldLogger
}

type Option func(*Schema)

// WithRepository replaces the embedded schema repository.
//
// repo should have the directory "sql", containing a directory per version.
func WithRepository(repo fs.FS) Option {
	return func(s *Schema) {
		s.repo = repo
	}
}

// New creates Schema with the embedded schema repository.
func New(p pool.Pool, logger logrus.FieldLogger, options ...Option) *Schema {
	s := &Schema{pool: p, repo: repository, logger: logger}
	for _, o := range options {
		o(s)
	}
	return s
}

// Version returns the schema version in database.
//
// When the database is empty, it returns 0.
func (s *Schema) Version(ctx context.Context) (int, error) {
	var version *int
	if err := s.pool.QueryRow(
		ctx, `select max("version") from "schema_version"`,
	).Scan(&version); err != nil {
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UndefinedTable {
			return 0, nil
		}
		return -1, err
	}
	if version == nil {
		return 0, nil
	}
	return *version, nil
}

// Latest returns the newest schema version known.
func (s *Schema) Latest() (int, error) {
	vs, err := s.versions()
	if err != nil {
		return -1, err
	}
	if len(vs) == 0 {
		return 0, nil
	}
	return vs[len(vs)-1].Version, nil
}

// Upgrade applies schema versions newer than the database has, in a transaction.
func (s *Schema) Upgrade(ctx context.Context) error {
	versions, err := s.versions()
	if err != nil {
		return err
	}

	current, err := s.Version(ctx)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, v := range versions {
		if v.Version <= current {
			continue
		}
		s.logger.WithField("version", v.Version).Info("applying schema")
		if err := v.Apply(ctx, s.repo, tx); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `delete from "schema_version"`); err != nil {
			return err
		}
		if _, err := tx.Exec(
			ctx, `insert into "schema_version" ("version") values ($1)`, v.Version,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// versions lists schema versions in the repository, sorted by version number.
func (s *Schema) versions() ([]version, error) {
	entries, err := fs.ReadDir(s.repo, "sql")
	if err != nil {
		return nil, err
	}

	versions := make([]version, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		versions = append(versions, version{Version: v, Root: path.Join("sql", e.Name())})
	}
	slices.SortFunc(versions, func(a, b version) int { return cmp.Compare(a.Version, b.Version) })
	return versions, nil
}
