package collections

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Postgres stores each tenant collection as a jsonb document table.
type Postgres struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
}

func NewPostgres(pool *pgxpool.Pool, log *zap.SugaredLogger) *Postgres {
	return &Postgres{pool: pool, log: log}
}

func ident(name string) string { return pgx.Identifier{name}.Sanitize() }

// isCreateRace reports errors raised when two sessions run CREATE TABLE IF NOT EXISTS
// for the same name at once.
func isCreateRace(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// unique_violation on pg_type, duplicate_table
	return pgErr.Code == "23505" || pgErr.Code == "42P07"
}

func (p *Postgres) EnsureCollection(ctx context.Context, name string) error {
	_, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+ident(name)+` (
  id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
  doc jsonb NOT NULL,
  created_at timestamptz NOT NULL DEFAULT NOW()
)`)
	if err != nil && !isCreateRace(err) {
		return fmt.Errorf("create table %q: %w", name, err)
	}
	return nil
}

func (p *Postgres) DropCollection(ctx context.Context, name string) error {
	if _, err := p.pool.Exec(ctx, `DROP TABLE IF EXISTS `+ident(name)); err != nil {
		return fmt.Errorf("drop table %q: %w", name, err)
	}
	return nil
}

func (p *Postgres) CopyAndRetarget(ctx context.Context, oldName, newName string) error {
	exists, err := p.Exists(ctx, oldName)
	if err != nil {
		return err
	}
	if !exists {
		p.log.Infow("nothing to migrate", "from", oldName, "to", newName)
		return nil
	}
	if err := p.copy(ctx, oldName, newName); err != nil {
		return fmt.Errorf("copy %q to %q: %w", oldName, newName, err)
	}
	return p.DropCollection(ctx, oldName)
}

// copy replaces newName with the contents of oldName in one transaction.
func (p *Postgres) copy(ctx context.Context, oldName, newName string) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	src, dst := ident(oldName), ident(newName)
	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS `+dst); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `CREATE TABLE `+dst+` (LIKE `+src+` INCLUDING ALL)`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO `+dst+` SELECT * FROM `+src); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Exists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (
  SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1
)`, name).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("lookup table %q: %w", name, err)
	}
	return ok, nil
}
