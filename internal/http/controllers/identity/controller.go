// Package identity maneja los endpoints de identities: registro,
// consulta de la identity actual y verificación de email.
package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	identitydto "github.com/dropDatabas3/iridium/internal/http/dto/identity"
	httperrors "github.com/dropDatabas3/iridium/internal/http/errors"
	"github.com/dropDatabas3/iridium/internal/http/helpers"
	"github.com/dropDatabas3/iridium/internal/http/middlewares"
	authsvc "github.com/dropDatabas3/iridium/internal/http/services/auth"
	identitysvc "github.com/dropDatabas3/iridium/internal/http/services/identity"
	"github.com/dropDatabas3/iridium/internal/http/services/tenancy"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
)

// Controller maneja los endpoints de identities.
type Controller struct {
	identities identitysvc.Service
	auth       authsvc.Service
	tenancy    tenancy.Resolver
}

// NewController crea el controller de identities.
func NewController(identities identitysvc.Service, auth authsvc.Service, resolver tenancy.Resolver) *Controller {
	return &Controller{identities: identities, auth: auth, tenancy: resolver}
}

// Create maneja POST /identities: registro con auto-login.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("identity.Create"))

	var req identitydto.CreateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ClientID) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("client_id, email y password son requeridos"))
		return
	}

	created, err := c.identities.CreateLocal(ctx, req.ClientID, req.Email, req.Password)
	if err != nil {
		log.Debug("create identity failed", logger.Err(err))
		writeIdentityError(w, err)
		return
	}

	// Auto-login: el registro entrega la primera sesión.
	token, err := c.auth.MintToken(ctx, created)
	if err != nil {
		log.Error("auto-login mint failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.FromRepository(err))
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, identitydto.CreateResponse{
		Identity:   identitydto.FromRepository(created),
		Token:      token.Token,
		Expiration: token.Expiration,
	})
}

// Current maneja GET /identities: la identity dueña del bearer token.
// Requiere Token Gate + RequireAuthenticated en la cadena.
func (c *Controller) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middlewares.GetPrincipal(ctx)
	if principal == nil {
		httperrors.WriteError(w, httperrors.ErrNotAuthorized)
		return
	}

	id, err := c.identities.Get(ctx, principal.IdentityID)
	if err != nil {
		// El token era válido hace un instante; si la identity ya no
		// existe la sesión es inservible.
		httperrors.WriteError(w, httperrors.ErrNotAuthorized)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, identitydto.FromRepository(id))
}

// CurrentForTenant maneja GET /tenants/{subdomain}/identities: la
// variante federada. El token llega en X-IRIDIUM-AUTH-TOKEN y la
// identity debe pertenecer al tenant del subdominio.
func (c *Controller) CurrentForTenant(subdomainParam func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal := middlewares.GetPrincipal(ctx)
		if principal == nil {
			httperrors.WriteError(w, httperrors.ErrNotAuthorized)
			return
		}

		tenant, err := c.tenancy.ResolveSubdomain(ctx, subdomainParam(r))
		if err != nil {
			httperrors.WriteError(w, httperrors.ErrTenantNotFound.WithCause(err))
			return
		}

		id, err := c.identities.Get(ctx, principal.IdentityID)
		if err != nil || id.ParentTenantID != tenant.ID {
			// Token de otro tenant: indistinguible de un token inválido.
			httperrors.WriteError(w, httperrors.ErrNotAuthorized)
			return
		}

		helpers.WriteJSON(w, http.StatusOK, identitydto.FromRepository(id))
	}
}

// VerifyEmail maneja GET /emails/verify?token=...
func (c *Controller) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("token es requerido"))
		return
	}

	if err := c.identities.ConfirmEmail(ctx, token); err != nil {
		logger.From(ctx).Debug("email verification failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.FromRepository(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func writeIdentityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identitysvc.ErrInvalidEmail):
		httperrors.WriteError(w, httperrors.ErrInvalidEmail.WithCause(err))
	case errors.Is(err, identitysvc.ErrWeakPassword):
		httperrors.WriteError(w, httperrors.ErrPasswordTooWeak.WithCause(err))
	case errors.Is(err, identitysvc.ErrEmailTaken):
		httperrors.WriteError(w, httperrors.ErrEmailAlreadyInUse.WithCause(err))
	case repository.IsNotFound(err):
		httperrors.WriteError(w, httperrors.ErrApplicationNotFound.WithCause(err))
	default:
		httperrors.WriteError(w, httperrors.FromRepository(err))
	}
}
