// Package auth implementa el engine de autenticación: login con
// credenciales locales, login externo y validación de access tokens.
//
// Toda falla de autenticación (email desconocido, password incorrecto,
// cuenta bloqueada, cuenta externa sin password) colapsa en el mismo
// ErrNotAuthorized. El caller nunca puede distinguir cuál fue.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/events"
	"github.com/dropDatabas3/iridium/internal/http/services/tenancy"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
	"github.com/dropDatabas3/iridium/internal/security/password"
	tokens "github.com/dropDatabas3/iridium/internal/security/tokens"
	"github.com/dropDatabas3/iridium/internal/store"
	"github.com/dropDatabas3/iridium/internal/validation"
)

// mintRetries: reintentos ante colisión de token (astronómicamente raro
// con 32 bytes de entropía, pero el constraint existe y hay que honrarlo).
const mintRetries = 3

// Service autentica identities y emite access tokens opacos.
type Service interface {
	// Authenticate valida credenciales locales dentro del tenant de la
	// application y, si son correctas, emite un access token.
	Authenticate(ctx context.Context, clientID, username, rawPassword string) (*repository.Identity, *repository.AccessToken, error)

	// MintToken emite un access token para una identity ya autenticada
	// (flujo externo: el provider ya validó al usuario).
	MintToken(ctx context.Context, identity *repository.Identity) (*repository.AccessToken, error)

	// ValidateToken resuelve un token opaco a su identity dueña.
	// Token desconocido y token expirado son indistinguibles: ambos
	// retornan ErrNotAuthorized. Side-effect free.
	ValidateToken(ctx context.Context, token string) (string, error)
}

// Deps contiene las dependencias del service.
type Deps struct {
	Store   store.AdapterConnection
	Tenancy tenancy.Resolver
	Events  events.Emitter

	// TokenTTL vida de los access tokens emitidos.
	TokenTTL time.Duration

	// LockThreshold fallos consecutivos que bloquean la cuenta.
	// 0 = lockout deshabilitado.
	LockThreshold int

	// HashParams se usa al re-hashear passwords heredados en login.
	HashParams password.Params
}

type service struct {
	deps Deps
}

// NewService crea el engine de autenticación.
func NewService(deps Deps) Service {
	if deps.Events == nil {
		deps.Events = events.NopEmitter{}
	}
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = time.Hour
	}
	if deps.HashParams.KeyLen == 0 {
		deps.HashParams = password.Default
	}
	return &service{deps: deps}
}

func (s *service) Authenticate(ctx context.Context, clientID, username, rawPassword string) (*repository.Identity, *repository.AccessToken, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Authenticate"),
	)

	username = validation.NormalizeEmail(username)
	if username == "" || strings.TrimSpace(rawPassword) == "" {
		return nil, nil, repository.ErrNotAuthorized
	}

	tenant, _, err := s.deps.Tenancy.ResolveClient(ctx, clientID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, repository.ErrNotAuthorized
		}
		return nil, nil, err
	}
	log = log.With(logger.TenantID(tenant.ID))

	identity, err := s.deps.Store.Identities().GetByEmail(ctx, tenant.ID, username)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Debug("unknown email")
			return nil, nil, repository.ErrNotAuthorized
		}
		return nil, nil, err
	}
	log = log.With(logger.IdentityID(identity.ID))

	if identity.Locked {
		log.Debug("account locked")
		return nil, nil, repository.ErrNotAuthorized
	}
	if identity.IsExternal() || identity.EncodedPassword == nil {
		// Cuenta creada por un provider: no tiene password local.
		log.Debug("external account, password login rejected")
		return nil, nil, repository.ErrNotAuthorized
	}

	if !password.Verify(rawPassword, *identity.EncodedPassword) {
		state, rerr := s.deps.Store.Identities().RecordFailedAttempt(ctx, identity.ID, s.deps.LockThreshold)
		if rerr != nil {
			log.Warn("failed attempt record failed", logger.Err(rerr))
		} else if state.Locked && !identity.Locked {
			log.Info("identity locked after failed attempts",
				logger.Count(state.FailedLoginAttempts),
			)
			s.deps.Events.Emit(events.Event{
				Type:       events.IdentityLocked,
				TenantID:   tenant.ID,
				IdentityID: identity.ID,
			})
		}
		return nil, nil, repository.ErrNotAuthorized
	}

	if password.NeedsRehash(*identity.EncodedPassword) {
		// Hash heredado (bcrypt de un import). Lo migramos ahora que
		// tenemos el plaintext verificado.
		if encoded, herr := password.Hash(s.deps.HashParams, rawPassword); herr != nil {
			log.Warn("rehash failed", logger.Err(herr))
		} else if uerr := s.deps.Store.Identities().UpdatePassword(ctx, identity.ID, encoded); uerr != nil {
			log.Warn("rehash persist failed", logger.Err(uerr))
		} else {
			log.Info("password rehashed to current format")
		}
	}

	if err := s.deps.Store.Identities().RecordSuccess(ctx, identity.ID, time.Now()); err != nil {
		log.Warn("success record failed", logger.Err(err))
	}

	token, err := s.MintToken(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	s.deps.Events.Emit(events.Event{
		Type:       events.IdentityAuthenticated,
		TenantID:   tenant.ID,
		IdentityID: identity.ID,
		Meta:       map[string]string{events.MetaClientID: clientID},
	})

	log.Info("authenticated")
	return identity, token, nil
}

func (s *service) MintToken(ctx context.Context, identity *repository.Identity) (*repository.AccessToken, error) {
	var lastErr error
	for i := 0; i < mintRetries; i++ {
		raw, err := tokens.GenerateOpaqueToken(32)
		if err != nil {
			return nil, err
		}
		tok := &repository.AccessToken{
			Token:      raw,
			IdentityID: identity.ID,
			Expiration: time.Now().Add(s.deps.TokenTTL),
		}
		err = s.deps.Store.AccessTokens().Create(ctx, tok)
		if err == nil {
			return tok, nil
		}
		if !repository.IsDuplicate(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *service) ValidateToken(ctx context.Context, token string) (string, error) {
	tok, err := s.deps.Store.AccessTokens().GetActive(ctx, token, time.Now())
	if err != nil {
		if repository.IsNotFound(err) {
			return "", repository.ErrNotAuthorized
		}
		return "", err
	}
	return tok.IdentityID, nil
}
