// Package admin maneja los endpoints administrativos, protegidos por
// X-Admin-API-Key.
package admin

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
	admindto "github.com/dropDatabas3/iridium/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/iridium/internal/http/errors"
	"github.com/dropDatabas3/iridium/internal/http/helpers"
	identitysvc "github.com/dropDatabas3/iridium/internal/http/services/identity"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
	"github.com/dropDatabas3/iridium/internal/store"
)

// Controller maneja tenants, applications y acciones sobre identities.
type Controller struct {
	store      store.AdapterConnection
	identities identitysvc.Service
}

// NewController crea el controller admin.
func NewController(conn store.AdapterConnection, identities identitysvc.Service) *Controller {
	return &Controller{store: conn, identities: identities}
}

// CreateTenant maneja POST /admin/tenants.
func (c *Controller) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("admin.CreateTenant"))

	var req admindto.TenantCreateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Subdomain = strings.ToLower(strings.TrimSpace(req.Subdomain))
	if req.Name == "" || req.Subdomain == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("name y subdomain son requeridos"))
		return
	}

	tenant := &repository.Tenant{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Subdomain: req.Subdomain,
		CreatedAt: time.Now(),
	}
	if err := c.store.Tenants().Create(ctx, tenant); err != nil {
		log.Debug("tenant creation failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.FromRepository(err))
		return
	}

	log.Info("tenant created", logger.TenantID(tenant.ID))
	helpers.WriteJSON(w, http.StatusCreated, admindto.TenantResponse{
		ID:        tenant.ID,
		Name:      tenant.Name,
		Subdomain: tenant.Subdomain,
		CreatedAt: tenant.CreatedAt,
	})
}

// CreateApplication maneja POST /admin/applications.
// El clientId lo genera el servidor: es público pero no adivinable.
func (c *Controller) CreateApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("admin.CreateApplication"))

	var req admindto.ApplicationCreateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.TenantID = strings.TrimSpace(req.TenantID)
	req.Name = strings.TrimSpace(req.Name)
	if req.TenantID == "" || req.Name == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("tenant_id y name son requeridos"))
		return
	}

	if _, err := c.store.Tenants().GetByID(ctx, req.TenantID); err != nil {
		httperrors.WriteError(w, httperrors.ErrTenantNotFound.WithCause(err))
		return
	}

	app := &repository.Application{
		ID:        uuid.NewString(),
		ClientID:  uuid.NewString(),
		TenantID:  req.TenantID,
		Name:      req.Name,
		Type:      req.Type,
		CreatedAt: time.Now(),
	}
	if err := c.store.Applications().Create(ctx, app); err != nil {
		log.Debug("application creation failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.FromRepository(err))
		return
	}

	log.Info("application created",
		logger.TenantID(app.TenantID),
		logger.ClientID(app.ClientID),
	)
	helpers.WriteJSON(w, http.StatusCreated, admindto.ApplicationResponse{
		ID:        app.ID,
		ClientID:  app.ClientID,
		TenantID:  app.TenantID,
		Name:      app.Name,
		Type:      app.Type,
		CreatedAt: app.CreatedAt,
	})
}

// CreateProvider maneja POST /admin/providers: registra un proveedor
// externo (github, google) para un tenant. Sin esto el login externo
// no tiene contra qué resolverse.
func (c *Controller) CreateProvider(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("admin.CreateProvider"))

	var req admindto.ProviderCreateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.TenantID = strings.TrimSpace(req.TenantID)
	req.Name = strings.ToLower(strings.TrimSpace(req.Name))
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	if req.TenantID == "" || req.Name == "" || req.Kind == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("tenant_id, name y kind son requeridos"))
		return
	}

	kind := repository.ProviderKind(req.Kind)
	if kind != repository.ProviderGitHub && kind != repository.ProviderGoogle {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("kind desconocido: "+req.Kind))
		return
	}

	if _, err := c.store.Tenants().GetByID(ctx, req.TenantID); err != nil {
		httperrors.WriteError(w, httperrors.ErrTenantNotFound.WithCause(err))
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	prov := &repository.ExternalProvider{
		ID:         uuid.NewString(),
		TenantID:   req.TenantID,
		Name:       req.Name,
		Kind:       kind,
		Properties: req.Properties,
		Enabled:    enabled,
	}
	if err := c.store.Providers().Create(ctx, prov); err != nil {
		log.Debug("provider creation failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.FromRepository(err))
		return
	}

	log.Info("provider created",
		logger.TenantID(prov.TenantID),
		logger.String("provider", prov.Name),
	)
	helpers.WriteJSON(w, http.StatusCreated, admindto.ProviderResponse{
		ID:       prov.ID,
		TenantID: prov.TenantID,
		Name:     prov.Name,
		Kind:     string(prov.Kind),
		Enabled:  prov.Enabled,
	})
}

// UnlockIdentity maneja POST /admin/identities/{id}/unlock.
// El desbloqueo es siempre una decisión administrativa explícita.
func (c *Controller) UnlockIdentity(idParam func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		identityID := strings.TrimSpace(idParam(r))
		if identityID == "" {
			httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("identity id requerido"))
			return
		}

		if err := c.identities.Unlock(ctx, identityID); err != nil {
			httperrors.WriteError(w, httperrors.FromRepository(err))
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
