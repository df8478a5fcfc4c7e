// Package pg implementa el adapter PostgreSQL usando pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// isUniqueViolation reporta si err es una violación de constraint UNIQUE (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	return &pgConnection{pool: pool}, nil
}

// pgConnection representa una conexión activa a PostgreSQL.
type pgConnection struct {
	pool *pgxpool.Pool
}

func (c *pgConnection) Name() string { return "postgres" }

func (c *pgConnection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *pgConnection) Close() error {
	c.pool.Close()
	return nil
}

// Migrate implementa store.MigratableConnection aplicando el schema
// idempotente (CREATE TABLE IF NOT EXISTS).
func (c *pgConnection) Migrate(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("pg: migrate: %w", err)
	}
	return nil
}

// ─── Repositorios ───

func (c *pgConnection) Tenants() repository.TenantRepository           { return &tenantRepo{pool: c.pool} }
func (c *pgConnection) Applications() repository.ApplicationRepository { return &appRepo{pool: c.pool} }
func (c *pgConnection) Identities() repository.IdentityRepository      { return &identityRepo{pool: c.pool} }
func (c *pgConnection) AccessTokens() repository.AccessTokenRepository {
	return &accessTokenRepo{pool: c.pool}
}
func (c *pgConnection) PasswordResetTokens() repository.PasswordResetTokenRepository {
	return &resetTokenRepo{pool: c.pool}
}
func (c *pgConnection) EmailVerificationTokens() repository.EmailVerificationTokenRepository {
	return &verifyTokenRepo{pool: c.pool}
}
func (c *pgConnection) Providers() repository.ProviderRepository { return &providerRepo{pool: c.pool} }
