// Package auth maneja los endpoints de autenticación: login local y
// login vía external provider.
package auth

import (
	"net/http"
	"strings"

	authdto "github.com/dropDatabas3/iridium/internal/http/dto/auth"
	identitydto "github.com/dropDatabas3/iridium/internal/http/dto/identity"
	httperrors "github.com/dropDatabas3/iridium/internal/http/errors"
	"github.com/dropDatabas3/iridium/internal/http/helpers"
	authsvc "github.com/dropDatabas3/iridium/internal/http/services/auth"
	providersvc "github.com/dropDatabas3/iridium/internal/http/services/provider"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
)

// Controller maneja login local y externo.
type Controller struct {
	auth     authsvc.Service
	provider providersvc.Service
}

// NewController crea el controller de autenticación.
func NewController(auth authsvc.Service, provider providersvc.Service) *Controller {
	return &Controller{auth: auth, provider: provider}
}

// Authenticate maneja POST /identities/authenticate.
func (c *Controller) Authenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.Authenticate"))

	var req authdto.AuthenticateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ClientID) == "" || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		// Campos faltantes colapsan en la misma respuesta opaca que una
		// credencial incorrecta.
		httperrors.WriteError(w, httperrors.ErrNotAuthorized)
		return
	}

	identity, token, err := c.auth.Authenticate(ctx, req.ClientID, req.Username, req.Password)
	if err != nil {
		log.Debug("authentication failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.FromRepository(err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, authdto.AuthenticateResponse{
		Token:      token.Token,
		Expiration: token.Expiration,
		Identity:   identitydto.FromRepository(identity),
	})
}

// External maneja POST /identities/external: login/vinculación vía
// GitHub o Google.
func (c *Controller) External(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.External"))

	var req authdto.ExternalRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ClientID) == "" || strings.TrimSpace(req.Provider) == "" || strings.TrimSpace(req.Code) == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("client_id, provider y code son requeridos"))
		return
	}

	identity, token, err := c.provider.Link(ctx, req.ClientID, req.Provider, req.Code)
	if err != nil {
		log.Debug("external login failed", logger.Err(err), logger.Provider(req.Provider))
		httperrors.WriteError(w, httperrors.FromRepository(err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, authdto.AuthenticateResponse{
		Token:      token.Token,
		Expiration: token.Expiration,
		Identity:   identitydto.FromRepository(identity),
	})
}
