// Package password maneja los endpoints del flujo de reset de password.
package password

import (
	"errors"
	"net/http"
	"strings"

	passworddto "github.com/dropDatabas3/iridium/internal/http/dto/password"
	httperrors "github.com/dropDatabas3/iridium/internal/http/errors"
	"github.com/dropDatabas3/iridium/internal/http/helpers"
	passwordsvc "github.com/dropDatabas3/iridium/internal/http/services/password"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
)

// Controller maneja inicio y consumo de password resets.
type Controller struct {
	service passwordsvc.Service
}

// NewController crea el controller de passwords.
func NewController(service passwordsvc.Service) *Controller {
	return &Controller{service: service}
}

// InitiateReset maneja POST /passwords/reset.
// Responde 200 tanto si el email existe como si no; solo el campo
// "sent" difiere y el tiempo de respuesta no revela nada adicional
// al cliente normal (el envío del mail es asíncrono).
func (c *Controller) InitiateReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("password.InitiateReset"))

	var req passworddto.InitiateResetRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ClientID) == "" || strings.TrimSpace(req.Username) == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("client_id y username son requeridos"))
		return
	}

	sent, err := c.service.InitiateReset(ctx, req.ClientID, req.Username)
	if err != nil {
		log.Debug("reset initiation failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.FromRepository(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, passworddto.InitiateResetResponse{Sent: sent})
}

// CompleteReset maneja POST /passwords.
func (c *Controller) CompleteReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("password.CompleteReset"))

	var req passworddto.CompleteResetRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Token) == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("token y password son requeridos"))
		return
	}

	if err := c.service.CompleteReset(ctx, req.Token, req.Password); err != nil {
		log.Debug("reset completion failed", logger.Err(err))
		if errors.Is(err, passwordsvc.ErrWeakPassword) {
			httperrors.WriteError(w, httperrors.ErrPasswordTooWeak.WithCause(err))
			return
		}
		httperrors.WriteError(w, httperrors.FromRepository(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
