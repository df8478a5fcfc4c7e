package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
)

// ─── ProviderRepository ───

type providerRepo struct{ pool *pgxpool.Pool }

const providerColumns = `id, tenant_id, name, kind, properties, enabled`

func (r *providerRepo) GetByID(ctx context.Context, id string) (*repository.ExternalProvider, error) {
	query := `SELECT ` + providerColumns + ` FROM external_provider WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

func (r *providerRepo) GetByName(ctx context.Context, tenantID, name string) (*repository.ExternalProvider, error) {
	query := `SELECT ` + providerColumns + ` FROM external_provider WHERE tenant_id = $1 AND name = $2`
	return r.scanOne(ctx, query, tenantID, name)
}

func (r *providerRepo) scanOne(ctx context.Context, query string, args ...any) (*repository.ExternalProvider, error) {
	var p repository.ExternalProvider
	var kind string
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.TenantID, &p.Name, &kind, &p.Properties, &p.Enabled,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get provider: %w", err)
	}
	p.Kind = repository.ProviderKind(kind)
	return &p, nil
}

func (r *providerRepo) ListByTenant(ctx context.Context, tenantID string) ([]*repository.ExternalProvider, error) {
	query := `SELECT ` + providerColumns + ` FROM external_provider WHERE tenant_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("pg: list providers: %w", err)
	}
	defer rows.Close()

	var out []*repository.ExternalProvider
	for rows.Next() {
		var p repository.ExternalProvider
		var kind string
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &kind, &p.Properties, &p.Enabled); err != nil {
			return nil, fmt.Errorf("pg: scan provider: %w", err)
		}
		p.Kind = repository.ProviderKind(kind)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *providerRepo) Create(ctx context.Context, p *repository.ExternalProvider) error {
	const query = `
		INSERT INTO external_provider (tenant_id, name, kind, properties, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	props := p.Properties
	if props == nil {
		props = map[string]string{}
	}
	err := r.pool.QueryRow(ctx, query, p.TenantID, p.Name, string(p.Kind), props, p.Enabled).Scan(&p.ID)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("pg: insert provider: %w", err)
	}
	return nil
}
