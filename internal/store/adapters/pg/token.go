package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
)

// ─── AccessTokenRepository ───

type accessTokenRepo struct{ pool *pgxpool.Pool }

func (r *accessTokenRepo) Create(ctx context.Context, t *repository.AccessToken) error {
	const query = `
		INSERT INTO access_token (token, identity_id, expiration, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, query, t.Token, t.IdentityID, t.Expiration, t.CreatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("pg: insert access token: %w", err)
	}
	return nil
}

func (r *accessTokenRepo) GetActive(ctx context.Context, token string, now time.Time) (*repository.AccessToken, error) {
	// Expirado y ausente son lo mismo hacia afuera.
	const query = `
		SELECT token, identity_id, expiration, created_at
		FROM access_token WHERE token = $1 AND expiration > $2
	`
	var t repository.AccessToken
	err := r.pool.QueryRow(ctx, query, token, now).Scan(&t.Token, &t.IdentityID, &t.Expiration, &t.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get access token: %w", err)
	}
	return &t, nil
}

func (r *accessTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM access_token WHERE expiration <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("pg: delete expired tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ─── PasswordResetTokenRepository ───

type resetTokenRepo struct{ pool *pgxpool.Pool }

func (r *resetTokenRepo) Replace(ctx context.Context, t *repository.PasswordResetToken) error {
	// UPSERT por identity: a lo sumo un reset token vivo por cuenta.
	const query = `
		INSERT INTO password_reset_token (identity_id, token, expiration)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity_id) DO UPDATE SET token = $2, expiration = $3
	`
	_, err := r.pool.Exec(ctx, query, t.IdentityID, t.Token, t.Expiration)
	if err != nil {
		return fmt.Errorf("pg: replace reset token: %w", err)
	}
	return nil
}

func (r *resetTokenRepo) GetActive(ctx context.Context, token string, now time.Time) (*repository.PasswordResetToken, error) {
	const query = `
		SELECT identity_id, token, expiration
		FROM password_reset_token WHERE token = $1 AND expiration > $2
	`
	var t repository.PasswordResetToken
	err := r.pool.QueryRow(ctx, query, token, now).Scan(&t.IdentityID, &t.Token, &t.Expiration)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get reset token: %w", err)
	}
	return &t, nil
}

func (r *resetTokenRepo) Delete(ctx context.Context, identityID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM password_reset_token WHERE identity_id = $1`, identityID)
	if err != nil {
		return fmt.Errorf("pg: delete reset token: %w", err)
	}
	return nil
}

// ─── EmailVerificationTokenRepository ───

type verifyTokenRepo struct{ pool *pgxpool.Pool }

func (r *verifyTokenRepo) Create(ctx context.Context, t *repository.EmailVerificationToken) error {
	const query = `
		INSERT INTO email_verification_token (email_id, token, identity_id, expiration)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email_id) DO UPDATE SET token = $2, expiration = $4
	`
	_, err := r.pool.Exec(ctx, query, t.EmailID, t.Token, t.IdentityID, t.Expiration)
	if err != nil {
		return fmt.Errorf("pg: create verification token: %w", err)
	}
	return nil
}

func (r *verifyTokenRepo) GetActive(ctx context.Context, token string, now time.Time) (*repository.EmailVerificationToken, error) {
	const query = `
		SELECT email_id, token, identity_id, expiration
		FROM email_verification_token WHERE token = $1 AND expiration > $2
	`
	var t repository.EmailVerificationToken
	err := r.pool.QueryRow(ctx, query, token, now).Scan(&t.EmailID, &t.Token, &t.IdentityID, &t.Expiration)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get verification token: %w", err)
	}
	return &t, nil
}

func (r *verifyTokenRepo) Delete(ctx context.Context, emailID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM email_verification_token WHERE email_id = $1`, emailID)
	if err != nil {
		return fmt.Errorf("pg: delete verification token: %w", err)
	}
	return nil
}
