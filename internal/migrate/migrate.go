// Package migrate applies the embedded SQL schema for the plan catalogue,
// comparison runs and job history.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed migrations
var embedMigrations embed.FS

// VersionTable records applied schema versions.
const VersionTable = "schema_migrations"

// DefaultSQLiteDSN is used when the sqlite driver is given no DSN.
const DefaultSQLiteDSN = "eratecompare.db"

// State describes one schema version.
type State struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt time.Time
	Duration  time.Duration
}

// Migrator applies schema versions to one database.
type Migrator struct {
	provider *goose.Provider
}

type backend struct {
	dialect   database.Dialect
	sqlDriver string
	dir       string
}

func backendFor(driver string) (backend, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		return backend{dialect: database.DialectSQLite3, sqlDriver: "sqlite", dir: "migrations/sqlite"}, nil
	case "postgres", "pgx":
		return backend{dialect: database.DialectPostgres, sqlDriver: "pgx", dir: "migrations/postgres"}, nil
	}
	return backend{}, fmt.Errorf("migrate: unsupported driver %q", driver)
}

// Open connects to the database named by driver and dsn. The Migrator owns
// the connection; Close releases it.
func Open(driver, dsn string) (*Migrator, error) {
	b, err := backendFor(driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" && b.sqlDriver == "sqlite" {
		dsn = DefaultSQLiteDSN
	}
	db, err := sql.Open(b.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate: open %s: %w", driver, err)
	}
	fsys, err := fs.Sub(embedMigrations, b.dir)
	if err != nil {
		db.Close()
		return nil, err
	}
	store, err := database.NewStore(b.dialect, VersionTable)
	if err != nil {
		db.Close()
		return nil, err
	}
	p, err := goose.NewProvider("", db, fsys, goose.WithStore(store))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Migrator{provider: p}, nil
}

// Close releases the database connection.
func (m *Migrator) Close() error { return m.provider.Close() }

// Up applies every pending version and returns the ones it applied.
func (m *Migrator) Up(ctx context.Context) ([]State, error) {
	results, err := m.provider.Up(ctx)
	out := make([]State, 0, len(results))
	now := time.Now().UTC()
	for _, r := range results {
		out = append(out, State{
			Version:   r.Source.Version,
			Name:      path.Base(r.Source.Path),
			Applied:   r.Error == nil,
			AppliedAt: now,
			Duration:  r.Duration,
		})
	}
	if err != nil {
		return out, fmt.Errorf("migrate up: %w", err)
	}
	return out, nil
}

// Down rolls back the most recent version and returns it.
func (m *Migrator) Down(ctx context.Context) (State, error) {
	r, err := m.provider.Down(ctx)
	if err != nil {
		return State{}, fmt.Errorf("migrate down: %w", err)
	}
	return State{
		Version:  r.Source.Version,
		Name:     path.Base(r.Source.Path),
		Duration: r.Duration,
	}, nil
}

// Status lists every known version, oldest first, with whether it has been
// applied.
func (m *Migrator) Status(ctx context.Context) ([]State, error) {
	list, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	out := make([]State, 0, len(list))
	for _, s := range list {
		out = append(out, State{
			Version:   s.Source.Version,
			Name:      path.Base(s.Source.Path),
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

// Version returns the highest applied version, 0 for an empty database.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// Pending reports how many versions have not been applied yet.
func (m *Migrator) Pending(ctx context.Context) (int, error) {
	list, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range list {
		if !s.Applied {
			n++
		}
	}
	return n, nil
}

// Up opens driver/dsn, applies pending versions and closes the connection.
func Up(ctx context.Context, driver, dsn string) ([]State, error) {
	m, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	defer m.Close()
	return m.Up(ctx)
}
