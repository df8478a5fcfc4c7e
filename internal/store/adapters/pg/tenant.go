package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
)

// ─── TenantRepository ───

type tenantRepo struct{ pool *pgxpool.Pool }

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	const query = `SELECT id, name, subdomain, created_at FROM tenant WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

func (r *tenantRepo) GetBySubdomain(ctx context.Context, subdomain string) (*repository.Tenant, error) {
	const query = `SELECT id, name, subdomain, created_at FROM tenant WHERE subdomain = $1`
	return r.scanOne(ctx, query, subdomain)
}

func (r *tenantRepo) scanOne(ctx context.Context, query string, arg any) (*repository.Tenant, error) {
	var t repository.Tenant
	err := r.pool.QueryRow(ctx, query, arg).Scan(&t.ID, &t.Name, &t.Subdomain, &t.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get tenant: %w", err)
	}
	return &t, nil
}

func (r *tenantRepo) Create(ctx context.Context, t *repository.Tenant) error {
	const query = `
		INSERT INTO tenant (name, subdomain, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx, query, t.Name, t.Subdomain, t.CreatedAt).Scan(&t.ID)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("pg: insert tenant: %w", err)
	}
	return nil
}

func (r *tenantRepo) List(ctx context.Context) ([]*repository.Tenant, error) {
	const query = `SELECT id, name, subdomain, created_at FROM tenant ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pg: list tenants: %w", err)
	}
	defer rows.Close()

	var out []*repository.Tenant
	for rows.Next() {
		var t repository.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Subdomain, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("pg: scan tenant: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// ─── ApplicationRepository ───

type appRepo struct{ pool *pgxpool.Pool }

func (r *appRepo) GetByClientID(ctx context.Context, clientID string) (*repository.Application, error) {
	const query = `
		SELECT id, client_id, tenant_id, name, type, created_at
		FROM application WHERE client_id = $1
	`
	var a repository.Application
	err := r.pool.QueryRow(ctx, query, clientID).Scan(
		&a.ID, &a.ClientID, &a.TenantID, &a.Name, &a.Type, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get application: %w", err)
	}
	return &a, nil
}

func (r *appRepo) Create(ctx context.Context, a *repository.Application) error {
	const query = `
		INSERT INTO application (client_id, tenant_id, name, type, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx, query, a.ClientID, a.TenantID, a.Name, a.Type, a.CreatedAt).Scan(&a.ID)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("pg: insert application: %w", err)
	}
	return nil
}

func (r *appRepo) ListByTenant(ctx context.Context, tenantID string) ([]*repository.Application, error) {
	const query = `
		SELECT id, client_id, tenant_id, name, type, created_at
		FROM application WHERE tenant_id = $1 ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("pg: list applications: %w", err)
	}
	defer rows.Close()

	var out []*repository.Application
	for rows.Next() {
		var a repository.Application
		if err := rows.Scan(&a.ID, &a.ClientID, &a.TenantID, &a.Name, &a.Type, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("pg: scan application: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
