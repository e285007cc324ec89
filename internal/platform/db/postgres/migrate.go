package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationAction は Migrate が受け付ける操作です。
type MigrationAction string

const (
	MigrateUp      MigrationAction = "up"
	MigrateDown    MigrationAction = "down"
	MigrateDrop    MigrationAction = "drop"
	MigrateVersion MigrationAction = "version"
)

// MigrationStatus はマイグレーション実行後のバージョン情報です。
type MigrationStatus struct {
	Version uint
	Dirty   bool
	// None はマイグレーションが一度も適用されていないことを示します。
	None bool
}

// NewMigrator はバイナリに埋め込まれたマイグレーションを参照する migrate.Migrate を生成します。
func NewMigrator(dsn string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("postgres: load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create migrate instance: %w", err)
	}
	return m, nil
}

// Migrate は指定された操作を実行し、実行後のバージョンを返します。
func Migrate(dsn string, action MigrationAction) (MigrationStatus, error) {
	m, err := NewMigrator(dsn)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer m.Close()

	return runMigration(m, action)
}

type migrator interface {
	Up() error
	Down() error
	Drop() error
	Version() (uint, bool, error)
}

func runMigration(m migrator, action MigrationAction) (MigrationStatus, error) {
	switch action {
	case MigrateUp:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return MigrationStatus{}, fmt.Errorf("postgres: migrate up: %w", err)
		}
	case MigrateDown:
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return MigrationStatus{}, fmt.Errorf("postgres: migrate down: %w", err)
		}
	case MigrateDrop:
		if err := m.Drop(); err != nil {
			return MigrationStatus{}, fmt.Errorf("postgres: migrate drop: %w", err)
		}
		return MigrationStatus{None: true}, nil
	case MigrateVersion:
	default:
		return MigrationStatus{}, fmt.Errorf("postgres: unsupported migration action %q", action)
	}

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return MigrationStatus{None: true}, nil
		}
		return MigrationStatus{}, fmt.Errorf("postgres: migration version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty}, nil
}
