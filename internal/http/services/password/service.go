// Package password implementa el flujo de recuperación de password:
// inicio por email y consumo del token de reset.
package password

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/events"
	"github.com/dropDatabas3/iridium/internal/http/helpers"
	"github.com/dropDatabas3/iridium/internal/http/services/tenancy"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
	pw "github.com/dropDatabas3/iridium/internal/security/password"
	tokens "github.com/dropDatabas3/iridium/internal/security/tokens"
	"github.com/dropDatabas3/iridium/internal/store"
	"github.com/dropDatabas3/iridium/internal/validation"
)

// Errores del service.
var (
	ErrWeakPassword = fmt.Errorf("weak password: %w", repository.ErrInvalidArgument)
	ErrBadToken     = fmt.Errorf("reset token unknown or expired: %w", repository.ErrNotAuthorized)
)

// Service gestiona el ciclo de recuperación de password.
type Service interface {
	// InitiateReset arranca un reset para el email dado dentro del
	// tenant de la application. Retorna (false, nil) si el email no
	// existe en el tenant o pertenece a una cuenta externa: sin
	// escrituras, sin eventos, sin filtrar existencia. La application
	// inexistente sí es un error (ErrNotFound).
	InitiateReset(ctx context.Context, clientID, username string) (bool, error)

	// CompleteReset consume un token de reset válido y fija el password
	// nuevo. Resetea contadores de lockout y desbloquea la cuenta: el
	// dueño del mailbox acaba de probar control sobre ella.
	CompleteReset(ctx context.Context, token, newPassword string) error
}

// Deps contiene las dependencias del service.
type Deps struct {
	Store   store.AdapterConnection
	Tenancy tenancy.Resolver
	Events  events.Emitter

	HashParams pw.Params
	Policy     pw.Policy

	// ResetTokenTTL vida del token de reset.
	ResetTokenTTL time.Duration

	Links helpers.Links
}

type service struct {
	deps Deps
}

// NewService crea el service de password recovery.
func NewService(deps Deps) Service {
	if deps.Events == nil {
		deps.Events = events.NopEmitter{}
	}
	if deps.HashParams.KeyLen == 0 {
		deps.HashParams = pw.Default
	}
	if deps.Policy.MinLength == 0 {
		deps.Policy = pw.DefaultPolicy
	}
	if deps.ResetTokenTTL <= 0 {
		deps.ResetTokenTTL = time.Hour
	}
	return &service{deps: deps}
}

func (s *service) InitiateReset(ctx context.Context, clientID, username string) (bool, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("password"),
		logger.Op("InitiateReset"),
	)

	tenant, _, err := s.deps.Tenancy.ResolveClient(ctx, clientID)
	if err != nil {
		return false, err
	}
	log = log.With(logger.TenantID(tenant.ID))

	username = validation.NormalizeEmail(username)
	identity, err := s.deps.Store.Identities().GetByEmail(ctx, tenant.ID, username)
	if err != nil {
		if repository.IsNotFound(err) {
			// Email desconocido: respuesta idéntica al caso conocido
			// (el controller responde 200 {sent:false} sin detalle).
			log.Debug("reset for unknown email, no-op")
			return false, nil
		}
		return false, err
	}
	if identity.IsExternal() {
		// El password vive en el provider, no acá.
		log.Debug("reset for external identity, no-op")
		return false, nil
	}

	raw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return false, err
	}

	// Replace: a lo sumo un token de reset vivo por identity. Pedir un
	// reset nuevo invalida el mail anterior.
	err = s.deps.Store.PasswordResetTokens().Replace(ctx, &repository.PasswordResetToken{
		Token:      raw,
		IdentityID: identity.ID,
		Expiration: time.Now().Add(s.deps.ResetTokenTTL),
	})
	if err != nil {
		return false, err
	}

	s.deps.Events.Emit(events.Event{
		Type:       events.PasswordResetInitiated,
		TenantID:   tenant.ID,
		IdentityID: identity.ID,
		Meta: map[string]string{
			events.MetaClientID:   clientID,
			events.MetaEmail:      username,
			events.MetaLink:       s.deps.Links.ResetPassword(raw),
			events.MetaTenantName: tenant.Name,
		},
	})

	log.Info("password reset initiated", logger.IdentityID(identity.ID))
	return true, nil
}

func (s *service) CompleteReset(ctx context.Context, token, newPassword string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("password"),
		logger.Op("CompleteReset"),
	)

	if ok, reasons := s.deps.Policy.Validate(newPassword); !ok {
		return fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(reasons, "; "))
	}

	tok, err := s.deps.Store.PasswordResetTokens().GetActive(ctx, token, time.Now())
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrBadToken
		}
		return err
	}

	encoded, err := pw.Hash(s.deps.HashParams, newPassword)
	if err != nil {
		return err
	}
	if err := s.deps.Store.Identities().UpdatePassword(ctx, tok.IdentityID, encoded); err != nil {
		return err
	}

	// La posesión del mailbox vale como prueba: cuenta desbloqueada.
	if err := s.deps.Store.Identities().Unlock(ctx, tok.IdentityID); err != nil {
		log.Warn("unlock after reset failed", logger.Err(err))
	}

	// Token consumido: single use.
	if err := s.deps.Store.PasswordResetTokens().Delete(ctx, tok.IdentityID); err != nil {
		log.Warn("reset token cleanup failed", logger.Err(err))
	}

	s.deps.Events.Emit(events.Event{
		Type:       events.PasswordChanged,
		IdentityID: tok.IdentityID,
	})

	log.Info("password reset completed", logger.IdentityID(tok.IdentityID))
	return nil
}
