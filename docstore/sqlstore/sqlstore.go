// Package sqlstore is a docstore.Backend over a SQL database through bun.
//
// Documents live in one table keyed by (collection, id) with their fields
// encoded as msgpack. Queries load the collection and evaluate constraints
// in process, so the table works unchanged on sqlite and postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/logging"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var _ docstore.Backend = (*Store)(nil)

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	Collection string    `bun:"collection,pk"`
	ID         string    `bun:"id,pk"`
	Data       []byte    `bun:"data,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

// Store implements docstore.Backend on a bun database.
type Store struct {
	db     *bun.DB
	now    func() time.Time
	newID  func() string
	logger logging.Logger
}

// Option configures a Store.
type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func WithLogger(logger logging.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNoOp(logger) }
}

// Dialect returns the bun dialect for a database/sql driver name.
func Dialect(driver string) (schema.Dialect, error) {
	switch driver {
	case DriverSQLite, "sqlite":
		return sqlitedialect.New(), nil
	case DriverPostgres, "pg", "postgresql":
		return pgdialect.New(), nil
	}
	return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
}

// Open connects to dsn with driver and creates the documents table.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	dialect, err := Dialect(driver)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		driver = DriverSQLite
	}
	if driver == "pg" || driver == "postgresql" {
		driver = DriverPostgres
	}

	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		sqldb.SetMaxOpenConns(1)
	}

	s := New(bun.NewDB(sqldb, dialect), opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing bun database. Call Migrate before first use.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		now:    time.Now,
		newID:  docstore.NewID,
		logger: logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the documents table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*documentRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: create documents table: %w", err)
	}
	return nil
}

func (s *Store) DB() *bun.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Query(ctx context.Context, collection string, constraints ...docstore.Constraint) ([]*docstore.DocumentSnapshot, error) {
	var rows []documentRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("collection = ?", collection).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, s.wrap("query", collection, err)
	}

	docs := make([]*docstore.DocumentSnapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := row.snapshot()
		if err != nil {
			return nil, err
		}
		docs = append(docs, snap)
	}
	return docstore.Evaluate(docs, constraints...)
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.DocumentSnapshot, error) {
	row, err := s.load(ctx, s.db, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.MissingSnapshot(collection, id), nil
	}
	if err != nil {
		return nil, s.wrap("get", collection, err)
	}
	return row.snapshot()
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (*docstore.DocumentSnapshot, error) {
	now := s.now().UTC()
	stored := docstore.ResolveServerTimestamps(data, now)
	if stored == nil {
		stored = map[string]any{}
	}
	payload, err := encodePayload(stored)
	if err != nil {
		return nil, err
	}

	row := &documentRow{
		Collection: collection,
		ID:         s.newID(),
		Data:       payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, s.wrap("create", collection, err)
	}
	return row.snapshot()
}

func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) (*docstore.DocumentSnapshot, error) {
	now := s.now().UTC()
	patch := docstore.ResolveServerTimestamps(data, now)

	var updated *documentRow
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, err := s.load(ctx, tx, collection, id)
		if err != nil {
			return err
		}
		current, err := decodePayload(row.Data)
		if err != nil {
			return err
		}
		for k, v := range patch {
			current[k] = v
		}
		if row.Data, err = encodePayload(current); err != nil {
			return err
		}
		row.UpdatedAt = now

		_, err = tx.NewUpdate().
			Model(row).
			Column("data", "updated_at").
			WherePK().
			Exec(ctx)
		updated = row
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, s.wrap("update", collection, err)
	}
	return updated.snapshot()
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.NewDelete().
		Model((*documentRow)(nil)).
		Where("collection = ?", collection).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return s.wrap("delete", collection, err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, db bun.IDB, collection, id string) (*documentRow, error) {
	row := new(documentRow)
	err := db.NewSelect().
		Model(row).
		Where("collection = ?", collection).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// wrap reports connection level failures as docstore.ErrUnavailable so the
// client can fall back to its mirror.
func (s *Store) wrap(op, collection string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, sql.ErrConnDone) {
		s.logger.Warn("sqlstore: connection closed", "op", op, "collection", collection, "error", err)
		return fmt.Errorf("%w: %s %s: %v", docstore.ErrUnavailable, op, collection, err)
	}
	return fmt.Errorf("sqlstore: %s %s: %w", op, collection, err)
}

func (r *documentRow) snapshot() (*docstore.DocumentSnapshot, error) {
	data, err := decodePayload(r.Data)
	if err != nil {
		return nil, err
	}
	return docstore.NewDocumentSnapshot(r.Collection, r.ID, data), nil
}
