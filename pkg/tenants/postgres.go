// pkg/tenants/postgres.go
package tenants

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore implements Registry, AdminStore and Journal backed by PostgreSQL.
type PostgresStore struct {
	dbPool *pgxpool.Pool      // Connection pool to PostgreSQL
	log    *zap.SugaredLogger // Logger for diagnostic output
}

// NewPostgresStore constructs a PostgreSQL-backed tenant store.
func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) *PostgresStore {
	return &PostgresStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates the registry tables if they do not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS organizations (
  id text PRIMARY KEY,
  organization_name text NOT NULL UNIQUE,
  collection_name text NOT NULL,
  admin_id text NOT NULL,
  created_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS organizations_admin_id_idx ON organizations(admin_id);
CREATE TABLE IF NOT EXISTS admins (
  id text PRIMARY KEY,
  email text NOT NULL,
  password text NOT NULL,
  role text NOT NULL DEFAULT 'admin',
  organization text NOT NULL
);
CREATE INDEX IF NOT EXISTS admins_email_idx ON admins(email);
CREATE TABLE IF NOT EXISTS tenant_operations (
  id text PRIMARY KEY,
  kind text NOT NULL,
  tenant_id text NOT NULL,
  tenant text NOT NULL,
  target text NOT NULL DEFAULT '',
  stage text NOT NULL,
  started_at timestamptz NOT NULL DEFAULT NOW()
);
`)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const organizationColumns = `id, organization_name, collection_name, admin_id, created_at`

func scanTenant(row pgx.Row) (Tenant, error) {
	var t Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.CollectionName, &t.AdminID, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrNotFound
		}
		return Tenant{}, err
	}
	return t, nil
}

// Lookup fetches a tenant by its normalized name.
func (p *PostgresStore) Lookup(ctx context.Context, name string) (Tenant, error) {
	return scanTenant(p.dbPool.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE organization_name=$1`, name))
}

// LookupID fetches a tenant by its stable ID.
func (p *PostgresStore) LookupID(ctx context.Context, id string) (Tenant, error) {
	return scanTenant(p.dbPool.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id=$1`, id))
}

// FindByAdmin fetches the tenant owned by an admin.
func (p *PostgresStore) FindByAdmin(ctx context.Context, adminID string) (Tenant, error) {
	return scanTenant(p.dbPool.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE admin_id=$1 LIMIT 1`, adminID))
}

// Insert adds a tenant; the UNIQUE constraint on organization_name rejects duplicates.
func (p *PostgresStore) Insert(ctx context.Context, t Tenant) error {
	_, err := p.dbPool.Exec(ctx, `INSERT INTO organizations(`+organizationColumns+`) VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.Name, t.CollectionName, t.AdminID, t.CreatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

// Rename updates name and collection name of the existing row in one statement.
func (p *PostgresStore) Rename(ctx context.Context, oldName, newName, newCollection string) (Tenant, error) {
	t, err := scanTenant(p.dbPool.QueryRow(ctx, `UPDATE organizations SET organization_name=$2, collection_name=$3
		WHERE organization_name=$1 RETURNING `+organizationColumns, oldName, newName, newCollection))
	if isUniqueViolation(err) {
		return Tenant{}, ErrAlreadyExists
	}
	return t, err
}

// Remove deletes a tenant row.
func (p *PostgresStore) Remove(ctx context.Context, name string) error {
	tag, err := p.dbPool.Exec(ctx, `DELETE FROM organizations WHERE organization_name=$1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Create(ctx context.Context, a Admin) error {
	_, err := p.dbPool.Exec(ctx, `INSERT INTO admins(id,email,password,role,organization) VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.Email, a.PasswordHash, a.Role, a.TenantName)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (Admin, error) {
	return scanAdmin(p.dbPool.QueryRow(ctx, `SELECT id,email,password,role,organization FROM admins WHERE id=$1`, id))
}

func (p *PostgresStore) ListByEmail(ctx context.Context, email string) ([]Admin, error) {
	rows, err := p.dbPool.Query(ctx, `SELECT id,email,password,role,organization FROM admins WHERE email=$1 ORDER BY id`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAdmin(row pgx.Row) (Admin, error) {
	var a Admin
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.TenantName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Admin{}, ErrNotFound
		}
		return Admin{}, err
	}
	return a, nil
}

func (p *PostgresStore) SetTenantLink(ctx context.Context, id, tenant string) error {
	return p.execOne(ctx, `UPDATE admins SET organization=$2 WHERE id=$1`, id, tenant)
}

// UpdateCredentials keeps the stored value for nil arguments.
func (p *PostgresStore) UpdateCredentials(ctx context.Context, id string, email, passwordHash *string) error {
	if email == nil && passwordHash == nil {
		return nil
	}
	return p.execOne(ctx, `UPDATE admins SET email=COALESCE($2,email), password=COALESCE($3,password) WHERE id=$1`,
		id, email, passwordHash)
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	return p.execOne(ctx, `DELETE FROM admins WHERE id=$1`, id)
}

func (p *PostgresStore) Begin(ctx context.Context, op Operation) (Operation, error) {
	op = prepareOperation(op)
	_, err := p.dbPool.Exec(ctx, `INSERT INTO tenant_operations(id,kind,tenant_id,tenant,target,stage,started_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		op.ID, op.Kind, op.TenantID, op.Tenant, op.Target, op.Stage, op.StartedAt)
	if err != nil {
		return Operation{}, err
	}
	return op, nil
}

func (p *PostgresStore) Advance(ctx context.Context, id, stage string) error {
	return p.execOne(ctx, `UPDATE tenant_operations SET stage=$2 WHERE id=$1`, id, stage)
}

func (p *PostgresStore) Finish(ctx context.Context, id string) error {
	_, err := p.dbPool.Exec(ctx, `DELETE FROM tenant_operations WHERE id=$1`, id)
	return err
}

func (p *PostgresStore) Pending(ctx context.Context) ([]Operation, error) {
	rows, err := p.dbPool.Query(ctx, `SELECT id,kind,tenant_id,tenant,target,stage,started_at FROM tenant_operations ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ops []Operation
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.ID, &op.Kind, &op.TenantID, &op.Tenant, &op.Target, &op.Stage, &op.StartedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// execOne runs a statement expected to touch exactly one row.
func (p *PostgresStore) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := p.dbPool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
