// Package identity implementa el ciclo de vida de identities: creación
// local, creación desde external providers, verificación de email y
// desbloqueo administrativo.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	"github.com/dropDatabas3/iridium/internal/events"
	"github.com/dropDatabas3/iridium/internal/http/helpers"
	"github.com/dropDatabas3/iridium/internal/http/services/tenancy"
	"github.com/dropDatabas3/iridium/internal/oauth"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
	"github.com/dropDatabas3/iridium/internal/security/password"
	tokens "github.com/dropDatabas3/iridium/internal/security/tokens"
	"github.com/dropDatabas3/iridium/internal/store"
	"github.com/dropDatabas3/iridium/internal/validation"
)

// Errores del service.
var (
	ErrInvalidEmail  = fmt.Errorf("invalid email: %w", repository.ErrInvalidArgument)
	ErrWeakPassword  = fmt.Errorf("weak password: %w", repository.ErrInvalidArgument)
	ErrEmailTaken    = fmt.Errorf("email already in use: %w", repository.ErrDuplicate)
	ErrTokenConsumed = fmt.Errorf("verification token unknown or expired: %w", repository.ErrNotAuthorized)
)

// Service gestiona el ciclo de vida de identities.
type Service interface {
	// CreateLocal registra una identity con email + password dentro del
	// tenant de la application identificada por clientID.
	CreateLocal(ctx context.Context, clientID, email, rawPassword string) (*repository.Identity, error)

	// CreateFromProvider crea (o retorna, si ya existe) la identity
	// vinculada a un perfil de external provider. Idempotente sobre
	// (providerID, externalID).
	CreateFromProvider(ctx context.Context, tenant *repository.Tenant, provider *repository.ExternalProvider, profile *oauth.Profile) (*repository.Identity, error)

	// Get busca una identity por ID.
	Get(ctx context.Context, identityID string) (*repository.Identity, error)

	// ConfirmEmail consume un token de verificación y marca el email
	// como verificado.
	ConfirmEmail(ctx context.Context, token string) error

	// Unlock desbloquea una identity (acción administrativa).
	Unlock(ctx context.Context, identityID string) error
}

// Deps contiene las dependencias del service.
type Deps struct {
	Store   store.AdapterConnection
	Tenancy tenancy.Resolver
	Events  events.Emitter

	HashParams password.Params
	Policy     password.Policy

	// VerifyTokenTTL vida del token de verificación de email.
	VerifyTokenTTL time.Duration

	// Links arma las URLs públicas que viajan en los emails.
	Links helpers.Links
}

type service struct {
	deps Deps
}

// NewService crea el service de identities.
func NewService(deps Deps) Service {
	if deps.Events == nil {
		deps.Events = events.NopEmitter{}
	}
	if deps.HashParams.KeyLen == 0 {
		deps.HashParams = password.Default
	}
	if deps.Policy.MinLength == 0 {
		deps.Policy = password.DefaultPolicy
	}
	if deps.VerifyTokenTTL <= 0 {
		deps.VerifyTokenTTL = 24 * time.Hour
	}
	return &service{deps: deps}
}

func (s *service) CreateLocal(ctx context.Context, clientID, email, rawPassword string) (*repository.Identity, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("identity"),
		logger.Op("CreateLocal"),
	)

	email = validation.NormalizeEmail(email)
	if !validation.ValidEmail(email) {
		return nil, fmt.Errorf("%w: email %q", ErrInvalidEmail, email)
	}
	if ok, reasons := s.deps.Policy.Validate(rawPassword); !ok {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(reasons, "; "))
	}

	tenant, _, err := s.deps.Tenancy.ResolveClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	log = log.With(logger.TenantID(tenant.ID))

	// Check previo para fallar temprano con un mensaje claro. Es racy:
	// el constraint del store es quien garantiza la unicidad real.
	if _, err := s.deps.Store.Identities().GetByEmail(ctx, tenant.ID, email); err == nil {
		return nil, ErrEmailTaken
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	encoded, err := password.Hash(s.deps.HashParams, rawPassword)
	if err != nil {
		return nil, err
	}

	created, err := s.deps.Store.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID:  tenant.ID,
		EmailAddress:    email,
		EncodedPassword: &encoded,
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			// Perdimos la carrera contra otra creación concurrente.
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	log.Info("identity created", logger.IdentityID(created.ID))

	meta := map[string]string{
		events.MetaClientID:   clientID,
		events.MetaTenantName: tenant.Name,
	}
	if link, err := s.issueVerification(ctx, created); err != nil {
		// La identity ya existe; el mail de verificación se puede
		// reenviar después. No abortamos el registro.
		log.Warn("verification token issue failed", logger.Err(err))
	} else {
		meta[events.MetaEmail] = email
		meta[events.MetaLink] = link
	}

	s.deps.Events.Emit(events.Event{
		Type:       events.IdentityCreated,
		TenantID:   tenant.ID,
		IdentityID: created.ID,
		Meta:       meta,
	})

	return created, nil
}

// issueVerification crea el token de verificación para el email primario
// y retorna el link a incluir en el mail.
func (s *service) issueVerification(ctx context.Context, id *repository.Identity) (string, error) {
	if len(id.Emails) == 0 {
		return "", fmt.Errorf("identity %s has no emails", id.ID)
	}
	raw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}
	tok := &repository.EmailVerificationToken{
		Token:      raw,
		EmailID:    id.Emails[0].ID,
		IdentityID: id.ID,
		Expiration: time.Now().Add(s.deps.VerifyTokenTTL),
	}
	if err := s.deps.Store.EmailVerificationTokens().Create(ctx, tok); err != nil {
		return "", err
	}
	return s.deps.Links.VerifyEmail(raw), nil
}

func (s *service) CreateFromProvider(ctx context.Context, tenant *repository.Tenant, provider *repository.ExternalProvider, profile *oauth.Profile) (*repository.Identity, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("identity"),
		logger.Op("CreateFromProvider"),
		logger.TenantID(tenant.ID),
		logger.Provider(provider.Name),
	)

	existing, err := s.deps.Store.Identities().GetByExternalID(ctx, provider.ID, profile.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	email := validation.NormalizeEmail(profile.Email)
	if !validation.ValidEmail(email) {
		return nil, fmt.Errorf("%w: provider profile email %q", ErrInvalidEmail, profile.Email)
	}

	var props []repository.IdentityProperty
	for name, value := range profile.Properties {
		props = append(props, repository.IdentityProperty{Name: name, Value: value})
	}

	externalID := profile.ExternalID
	providerID := provider.ID
	created, err := s.deps.Store.Identities().Create(ctx, repository.CreateIdentityInput{
		ParentTenantID: tenant.ID,
		EmailAddress:   email,
		ExternalID:     &externalID,
		ProviderID:     &providerID,
		Properties:     props,
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			// Dos requests con el mismo code/perfil en paralelo: el
			// perdedor relee la identity que ganó.
			if again, gerr := s.deps.Store.Identities().GetByExternalID(ctx, provider.ID, profile.ExternalID); gerr == nil {
				return again, nil
			}
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if profile.EmailVerified && len(created.Emails) > 0 {
		if err := s.deps.Store.Identities().SetEmailVerified(ctx, created.Emails[0].ID); err != nil {
			log.Warn("mark provider email verified failed", logger.Err(err))
		} else {
			created.Emails[0].Verified = true
		}
	}

	log.Info("identity created from provider", logger.IdentityID(created.ID))

	s.deps.Events.Emit(events.Event{
		Type:       events.ProviderLinked,
		TenantID:   tenant.ID,
		IdentityID: created.ID,
		Meta: map[string]string{
			events.MetaProvider: provider.Name,
		},
	})

	return created, nil
}

func (s *service) Get(ctx context.Context, identityID string) (*repository.Identity, error) {
	return s.deps.Store.Identities().GetByID(ctx, identityID)
}

func (s *service) ConfirmEmail(ctx context.Context, token string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("identity"),
		logger.Op("ConfirmEmail"),
	)

	tok, err := s.deps.Store.EmailVerificationTokens().GetActive(ctx, token, time.Now())
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrTokenConsumed
		}
		return err
	}

	if err := s.deps.Store.Identities().SetEmailVerified(ctx, tok.EmailID); err != nil {
		return err
	}
	if err := s.deps.Store.EmailVerificationTokens().Delete(ctx, tok.EmailID); err != nil {
		log.Warn("verification token cleanup failed", logger.Err(err))
	}

	s.deps.Events.Emit(events.Event{
		Type:       events.EmailVerified,
		IdentityID: tok.IdentityID,
	})

	log.Info("email verified", logger.IdentityID(tok.IdentityID))
	return nil
}

func (s *service) Unlock(ctx context.Context, identityID string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("identity"),
		logger.Op("Unlock"),
	)

	if err := s.deps.Store.Identities().Unlock(ctx, identityID); err != nil {
		return err
	}
	log.Info("identity unlocked", logger.IdentityID(identityID))
	return nil
}
