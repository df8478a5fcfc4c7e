// Package router arma el árbol de rutas y las cadenas de middlewares.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	ihttp "github.com/dropDatabas3/iridium/internal/http"
	admincontroller "github.com/dropDatabas3/iridium/internal/http/controllers/admin"
	authcontroller "github.com/dropDatabas3/iridium/internal/http/controllers/auth"
	healthcontroller "github.com/dropDatabas3/iridium/internal/http/controllers/health"
	identitycontroller "github.com/dropDatabas3/iridium/internal/http/controllers/identity"
	passwordcontroller "github.com/dropDatabas3/iridium/internal/http/controllers/password"
	httperrors "github.com/dropDatabas3/iridium/internal/http/errors"
	mw "github.com/dropDatabas3/iridium/internal/http/middlewares"
	authsvc "github.com/dropDatabas3/iridium/internal/http/services/auth"
	"github.com/dropDatabas3/iridium/internal/rate"
)

// Deps contiene controllers y middlewares ya construidos.
type Deps struct {
	Identity *identitycontroller.Controller
	Auth     *authcontroller.Controller
	Password *passwordcontroller.Controller
	Admin    *admincontroller.Controller
	Health   *healthcontroller.Controller

	// TokenValidator respalda el token gate (normalmente el auth service).
	TokenValidator authsvc.Service

	// LoginLimiter aplica a authenticate; ResetLimiter a reset-initiate.
	// nil = sin límite.
	LoginLimiter rate.Limiter
	ResetLimiter rate.Limiter

	// AdminAPIKey protege /admin. Vacía = admin deshabilitado.
	AdminAPIKey string

	// MetricsHandler sirve /metrics. nil = endpoint ausente.
	MetricsHandler http.Handler
}

// New construye el router HTTP completo.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Middlewares globales, de afuera hacia adentro.
	r.Use(mw.WithRequestID())
	r.Use(mw.WithLogging())
	r.Use(ihttp.WithMetrics)
	r.Use(mw.WithRecover())
	r.Use(mw.WithSecurityHeaders())

	gate := mw.WithTokenGate(deps.TokenValidator)

	// ─── Identities ───
	r.Post("/identities", deps.Identity.Create)
	r.With(gate, mw.RequireAuthenticated()).Get("/identities", deps.Identity.Current)
	r.With(gate, mw.RequireAuthenticated()).Get("/tenants/{subdomain}/identities",
		deps.Identity.CurrentForTenant(func(req *http.Request) string {
			return chi.URLParam(req, "subdomain")
		}))

	// ─── Autenticación ───
	r.With(mw.WithRateLimit(deps.LoginLimiter, "authn")).
		Post("/identities/authenticate", deps.Auth.Authenticate)
	r.Post("/identities/external", deps.Auth.External)

	// ─── Passwords ───
	r.With(mw.WithRateLimit(deps.ResetLimiter, "reset")).
		Post("/passwords/reset", deps.Password.InitiateReset)
	r.Post("/passwords", deps.Password.CompleteReset)

	// ─── Email verification ───
	r.Get("/emails/verify", deps.Identity.VerifyEmail)

	// ─── Admin ───
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(mw.RequireAdmin(mw.AdminConfig{APIKey: deps.AdminAPIKey}))
		ar.Post("/tenants", deps.Admin.CreateTenant)
		ar.Post("/applications", deps.Admin.CreateApplication)
		ar.Post("/providers", deps.Admin.CreateProvider)
		ar.Post("/identities/{id}/unlock", deps.Admin.UnlockIdentity(func(req *http.Request) string {
			return chi.URLParam(req, "id")
		}))
	})

	// ─── Operacional ───
	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	return r
}
