package repository

import (
	"context"
	"time"
)

// AccessToken es la credencial bearer opaca de una sesión autenticada.
// Referencia a la identity por ID (no ownership); nunca se muta después
// de creado y queda lógicamente muerto cuando Expiration <= now; la
// expiración se evalúa al leer, no hay sweeper de fondo.
type AccessToken struct {
	Token      string
	IdentityID string
	Expiration time.Time
	CreatedAt  time.Time
}

// PasswordResetToken es el token temporal de recuperación de password.
// A lo sumo uno por identity: emitir uno nuevo reemplaza al anterior.
type PasswordResetToken struct {
	Token      string
	IdentityID string
	Expiration time.Time
}

// EmailVerificationToken verifica un IdentityEmail específico.
type EmailVerificationToken struct {
	Token      string
	EmailID    string
	IdentityID string
	Expiration time.Time
}

// AccessTokenRepository define la persistencia de access tokens.
type AccessTokenRepository interface {
	// Create persiste un token nuevo.
	// Retorna ErrDuplicate si el valor ya existe (colisión, astronómicamente
	// rara); el caller debe reintentar con un valor nuevo.
	Create(ctx context.Context, t *AccessToken) error

	// GetActive busca un token por valor exacto con expiration > now.
	// Retorna ErrNotFound tanto si no existe como si expiró: ambos son
	// indistinguibles para evitar oracle leakage.
	GetActive(ctx context.Context, token string, now time.Time) (*AccessToken, error)

	// DeleteExpired elimina tokens expirados (limpieza operacional,
	// no requerida para corrección). Retorna cuántos eliminó.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// PasswordResetTokenRepository define la persistencia de reset tokens.
type PasswordResetTokenRepository interface {
	// Replace persiste el token, invalidando cualquier token previo
	// de la misma identity (replace-on-reissue).
	Replace(ctx context.Context, t *PasswordResetToken) error

	// GetActive busca un token no expirado por valor exacto.
	// Retorna ErrNotFound si no existe o expiró.
	GetActive(ctx context.Context, token string, now time.Time) (*PasswordResetToken, error)

	// Delete consume el token de una identity.
	Delete(ctx context.Context, identityID string) error
}

// EmailVerificationTokenRepository define la persistencia de tokens
// de verificación de email.
type EmailVerificationTokenRepository interface {
	// Create persiste un token nuevo, reemplazando el anterior del
	// mismo email si existe.
	Create(ctx context.Context, t *EmailVerificationToken) error

	// GetActive busca un token no expirado por valor exacto.
	GetActive(ctx context.Context, token string, now time.Time) (*EmailVerificationToken, error)

	// Delete consume el token de un email.
	Delete(ctx context.Context, emailID string) error
}
