package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/notes/internal/notes/http"
	"github.com/aussiebroadwan/notes/internal/notes/mail"
	"github.com/aussiebroadwan/notes/internal/notes/service"
	"github.com/aussiebroadwan/notes/internal/notes/store"
	"github.com/aussiebroadwan/notes/internal/notes/store/drivers/postgres"
	"github.com/aussiebroadwan/notes/internal/notes/store/drivers/sqlite"
	"github.com/aussiebroadwan/notes/pkg/cryptox"
	"github.com/aussiebroadwan/notes/pkg/googleid"
	"github.com/aussiebroadwan/notes/pkg/jwtx"
	"github.com/aussiebroadwan/notes/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// totpSealContext binds the derived sealing key to authenticator secrets.
const totpSealContext = "notes/totp-secret/v1"

// Application encapsulates the notes service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        store.Store
	google    *googleid.Verifier // nil when Google sign-in is disabled
	refresher *googleid.KeyRefresher

	otpService           *service.OTPService
	federatedService     *service.FederatedService
	userService          *service.UserService
	noteService          *service.NoteService
	authenticatorService *service.AuthenticatorService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "notes-api",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	if app.refresher != nil {
		app.refresher.Start()
	}

	app.logger.Info("notes service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops background work and closes the
// store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down notes service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.refresher != nil {
		app.refresher.Stop()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("notes service stopped")
	return nil
}

// initDatabase opens the configured store and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db     store.Store
		err    error
		driver string
	)
	if app.cfg.UsesPostgres() {
		driver = "postgres"
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	} else {
		driver = "sqlite"
		db, err = sqlite.NewStore(app.cfg.DatabaseURL)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", driver)
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() error {
	signer, err := jwtx.NewSignerHS256([]byte(app.cfg.JWTSecret))
	if err != nil {
		return fmt.Errorf("session signer: %w", err)
	}
	sessions := &service.SessionService{
		Signer: signer,
		Issuer: app.cfg.JWTIssuer,
		TTL:    app.cfg.TokenTTL,
	}

	mailer, err := app.newMailer()
	if err != nil {
		return err
	}

	sealer, err := cryptox.NewSealer([]byte(app.cfg.TOTPEncryptionKey), totpSealContext)
	if err != nil {
		return fmt.Errorf("totp sealer: %w", err)
	}

	app.otpService = &service.OTPService{
		Store:    app.db,
		Mailer:   mailer,
		Sessions: sessions,
	}
	app.federatedService = &service.FederatedService{
		Store:    app.db,
		Sessions: sessions,
	}
	app.userService = &service.UserService{Store: app.db}
	app.noteService = &service.NoteService{Store: app.db}
	app.authenticatorService = &service.AuthenticatorService{
		Store:    app.db,
		Sealer:   sealer,
		Issuer:   app.cfg.TOTPIssuer,
		Sessions: sessions,
	}

	if app.cfg.GoogleClientID != "" {
		app.google = googleid.NewVerifier(googleid.Config{
			ClientID: app.cfg.GoogleClientID,
			JWKSURL:  app.cfg.GoogleJWKSURL,
		})
		app.federatedService.Verifier = app.google
		app.refresher = googleid.NewKeyRefresher(app.google, app.logger, app.cfg.GoogleRefreshInterval)
		app.logger.Info("google sign-in enabled")
	} else {
		app.logger.Warn("GOOGLE_CLIENT_ID not set, google sign-in disabled")
	}

	return nil
}

func (app *Application) newMailer() (service.Mailer, error) {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("SMTP_HOST not set, sign-in codes are written to the debug log")
		return mail.LogMailer{Logger: app.logger}, nil
	}

	m, err := mail.NewSMTPMailer(mail.Config{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUser,
		Password: app.cfg.SMTPPass,
		From:     app.cfg.AppOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	return m, nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		jwtx.NewVerifierHS256([]byte(app.cfg.JWTSecret), app.cfg.JWTIssuer),
		BuildVersion,
		app.db,
		app.logger,
		app.cfg.AllowedOrigins,
	)

	router.OTPService = app.otpService
	router.FederatedService = app.federatedService
	router.UserService = app.userService
	router.NoteService = app.noteService
	router.AuthenticatorService = app.authenticatorService
	if app.google != nil {
		router.GoogleKeys = app.google
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
