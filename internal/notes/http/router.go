package http

//go:generate go run github.com/swaggo/swag/cmd/swag@v1.16.6 init --generalInfo router.go --dir ./,../../../pkg/notesdk --output ../../../api/notes --outputTypes go --packageName docs

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/notes/api/notes" // Swagger docs
	"github.com/aussiebroadwan/notes/internal/notes/service"
	"github.com/aussiebroadwan/notes/internal/notes/store"
	"github.com/aussiebroadwan/notes/pkg/httpx"
	"github.com/aussiebroadwan/notes/pkg/jwtx"
	"github.com/aussiebroadwan/notes/pkg/slogx"
)

// Limits are the rate limit profiles applied per route group.
type Limits struct {
	Auth   httpx.RateLimitConfig // sign-up and sign-in, keyed by IP and email
	Notes  httpx.RateLimitConfig // authenticated routes, keyed by user
	Health httpx.RateLimitConfig // probes, keyed by IP
}

// DefaultLimits returns the stock profiles with any RATELIMIT_* overrides
// from the environment applied.
func DefaultLimits() Limits {
	return Limits{
		Auth:   httpx.ParseRateLimitFromEnv("STRICT", httpx.StrictLimit),
		Notes:  httpx.ParseRateLimitFromEnv("MODERATE", httpx.ModerateLimit),
		Health: httpx.ParseRateLimitFromEnv("LENIENT", httpx.LenientLimit),
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Limits     Limits
	GoogleKeys KeyReadiness // nil when Google sign-in is disabled

	OTPService           *service.OTPService
	FederatedService     *service.FederatedService
	UserService          *service.UserService
	NoteService          *service.NoteService
	AuthenticatorService *service.AuthenticatorService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	allowedOrigins []string,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       DefaultLimits(),
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r.middlewares = []httpx.Middleware{
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
			MaxAge:         300,
		}),
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerUsers()
	r.registerAuthenticator()
	r.registerNotes()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Notes API
//	@version					0.1.0
//	@description				Personal notes with passwordless sign-in: emailed one-time codes, Google ID tokens
//	@description				or an authenticator app. Sessions are HS256 bearer tokens valid for one hour.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/notes
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:5000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authenticated(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		OTP:       r.OTPService,
		Federated: r.FederatedService,
		Users:     r.UserService,
	}

	// Code issuance and verification: strict, keyed by IP + email so one
	// caller cannot cycle codes for an account.
	r.Mux.Handle("POST /api/users/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIPAndJSONField(r.Limits.Auth, "email"),
		),
	)
	r.Mux.Handle("POST /api/users/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.Limits.Auth, "email"),
		),
	)
	r.Mux.Handle("POST /api/users/verify-otp",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyOTP),
			httpx.RateLimitByIPAndJSONField(r.Limits.Auth, "email"),
		),
	)

	// Google: strict by IP, the token is verified offline
	r.Mux.Handle("POST /api/users/google",
		httpx.Chain(http.HandlerFunc(h.HandleGoogle),
			httpx.RateLimitByIP(r.Limits.Auth),
		),
	)

	r.Mux.Handle("GET /api/users/me", r.authenticated(h.HandleProfile, r.Limits.Notes))
}

func (r *Router) registerAuthenticator() {
	h := &AuthenticatorHandler{Authenticator: r.AuthenticatorService}

	r.Mux.Handle("POST /api/users/verify-authenticator",
		httpx.Chain(http.HandlerFunc(h.HandleSignIn),
			httpx.RateLimitByIPAndJSONField(r.Limits.Auth, "email"),
		),
	)

	// Confirm and remove take a code; limit them like sign-in
	r.Mux.Handle("POST /api/users/authenticator/enroll", r.authenticated(h.HandleEnroll, r.Limits.Notes))
	r.Mux.Handle("POST /api/users/authenticator/confirm", r.authenticated(h.HandleConfirm, r.Limits.Auth))
	r.Mux.Handle("DELETE /api/users/authenticator", r.authenticated(h.HandleRemove, r.Limits.Auth))
}

func (r *Router) registerNotes() {
	h := &NotesHandler{Notes: r.NoteService}

	r.Mux.Handle("GET /api/notes", r.authenticated(h.HandleList, r.Limits.Notes))
	r.Mux.Handle("POST /api/notes", r.authenticated(h.HandleCreate, r.Limits.Notes))
	r.Mux.Handle("PUT /api/notes/{id}", r.authenticated(h.HandleUpdate, r.Limits.Notes))
	r.Mux.Handle("DELETE /api/notes/{id}", r.authenticated(h.HandleDelete, r.Limits.Notes))
}

func (r *Router) registerSystem() {
	// Probes may be polled frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Health),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.GoogleKeys),
			httpx.RateLimitByIP(r.Limits.Health),
		),
	)
}
