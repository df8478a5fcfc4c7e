package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
)

// ─── IdentityRepository ───

type identityRepo struct{ pool *pgxpool.Pool }

const identityColumns = `
	id, tenant_id, encoded_password, external_id, provider_id,
	failed_login_attempts, locked, requires_password_change,
	last_successful_login, created_at
`

func (r *identityRepo) GetByID(ctx context.Context, id string) (*repository.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identity WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *identityRepo) GetByEmail(ctx context.Context, tenantID, address string) (*repository.Identity, error) {
	query := `
		SELECT ` + identityColumns + `
		FROM identity
		WHERE id = (
			SELECT identity_id FROM identity_email
			WHERE tenant_id = $1 AND address = $2
		)
	`
	return r.getOne(ctx, query, tenantID, address)
}

func (r *identityRepo) GetByExternalID(ctx context.Context, providerID, externalID string) (*repository.Identity, error) {
	query := `
		SELECT ` + identityColumns + `
		FROM identity WHERE provider_id = $1 AND external_id = $2
	`
	return r.getOne(ctx, query, providerID, externalID)
}

func (r *identityRepo) getOne(ctx context.Context, query string, args ...any) (*repository.Identity, error) {
	var id repository.Identity
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&id.ID, &id.ParentTenantID, &id.EncodedPassword, &id.ExternalID, &id.ProviderID,
		&id.FailedLoginAttempts, &id.Locked, &id.RequiresPasswordChange,
		&id.LastSuccessfulLogin, &id.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get identity: %w", err)
	}
	if err := r.loadChildren(ctx, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *identityRepo) loadChildren(ctx context.Context, id *repository.Identity) error {
	const emailsQuery = `
		SELECT id, identity_id, address, is_primary, verified
		FROM identity_email WHERE identity_id = $1 ORDER BY is_primary DESC, address
	`
	rows, err := r.pool.Query(ctx, emailsQuery, id.ID)
	if err != nil {
		return fmt.Errorf("pg: load emails: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e repository.IdentityEmail
		if err := rows.Scan(&e.ID, &e.IdentityID, &e.Address, &e.Primary, &e.Verified); err != nil {
			return fmt.Errorf("pg: scan email: %w", err)
		}
		id.Emails = append(id.Emails, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	const propsQuery = `
		SELECT name, value FROM identity_property WHERE identity_id = $1 ORDER BY name
	`
	prows, err := r.pool.Query(ctx, propsQuery, id.ID)
	if err != nil {
		return fmt.Errorf("pg: load properties: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var p repository.IdentityProperty
		if err := prows.Scan(&p.Name, &p.Value); err != nil {
			return fmt.Errorf("pg: scan property: %w", err)
		}
		id.Properties = append(id.Properties, p)
	}
	return prows.Err()
}

func (r *identityRepo) Create(ctx context.Context, input repository.CreateIdentityInput) (*repository.Identity, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id := &repository.Identity{
		ParentTenantID:  input.ParentTenantID,
		EncodedPassword: input.EncodedPassword,
		ExternalID:      input.ExternalID,
		ProviderID:      input.ProviderID,
		CreatedAt:       time.Now().UTC(),
	}

	const insertIdentity = `
		INSERT INTO identity (tenant_id, encoded_password, external_id, provider_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = tx.QueryRow(ctx, insertIdentity,
		input.ParentTenantID, input.EncodedPassword, input.ExternalID, input.ProviderID, id.CreatedAt,
	).Scan(&id.ID)
	if isUniqueViolation(err) {
		return nil, repository.ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("pg: insert identity: %w", err)
	}

	// El constraint (tenant_id, address) es la última línea de defensa
	// contra creaciones concurrentes con el mismo email.
	email := repository.IdentityEmail{
		IdentityID: id.ID,
		Address:    input.EmailAddress,
		Primary:    true,
	}
	const insertEmail = `
		INSERT INTO identity_email (identity_id, tenant_id, address, is_primary, verified)
		VALUES ($1, $2, $3, true, false)
		RETURNING id
	`
	err = tx.QueryRow(ctx, insertEmail, id.ID, input.ParentTenantID, input.EmailAddress).Scan(&email.ID)
	if isUniqueViolation(err) {
		return nil, repository.ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("pg: insert email: %w", err)
	}
	id.Emails = append(id.Emails, email)

	const insertProp = `
		INSERT INTO identity_property (identity_id, name, value) VALUES ($1, $2, $3)
	`
	for _, p := range input.Properties {
		if _, err := tx.Exec(ctx, insertProp, id.ID, p.Name, p.Value); err != nil {
			return nil, fmt.Errorf("pg: insert property: %w", err)
		}
	}
	id.Properties = input.Properties

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("pg: commit tx: %w", err)
	}
	return id, nil
}

func (r *identityRepo) RecordFailedAttempt(ctx context.Context, identityID string, lockThreshold int) (*repository.LoginState, error) {
	// Incremento y decisión de lock en un solo statement para que dos
	// requests concurrentes nunca pierdan un incremento.
	const query = `
		UPDATE identity SET
			failed_login_attempts = failed_login_attempts + 1,
			locked = CASE
				WHEN $2 > 0 AND failed_login_attempts + 1 >= $2 THEN TRUE
				ELSE locked
			END
		WHERE id = $1
		RETURNING failed_login_attempts, locked
	`
	var st repository.LoginState
	err := r.pool.QueryRow(ctx, query, identityID, lockThreshold).Scan(&st.FailedLoginAttempts, &st.Locked)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: record failed attempt: %w", err)
	}
	return &st, nil
}

func (r *identityRepo) RecordSuccess(ctx context.Context, identityID string, at time.Time) error {
	const query = `
		UPDATE identity SET failed_login_attempts = 0, last_successful_login = $2
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, identityID, at)
	if err != nil {
		return fmt.Errorf("pg: record success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *identityRepo) Unlock(ctx context.Context, identityID string) error {
	const query = `
		UPDATE identity SET locked = FALSE, failed_login_attempts = 0 WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, identityID)
	if err != nil {
		return fmt.Errorf("pg: unlock identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *identityRepo) UpdatePassword(ctx context.Context, identityID, encodedPassword string) error {
	const query = `
		UPDATE identity SET encoded_password = $2, requires_password_change = FALSE
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, identityID, encodedPassword)
	if err != nil {
		return fmt.Errorf("pg: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *identityRepo) SetEmailVerified(ctx context.Context, emailID string) error {
	const query = `UPDATE identity_email SET verified = TRUE WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, emailID)
	if err != nil {
		return fmt.Errorf("pg: set email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *identityRepo) Delete(ctx context.Context, identityID string) error {
	// Emails, properties y tokens caen por FK ON DELETE CASCADE.
	tag, err := r.pool.Exec(ctx, `DELETE FROM identity WHERE id = $1`, identityID)
	if err != nil {
		return fmt.Errorf("pg: delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
