package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/iridium/internal/cache"
	"github.com/dropDatabas3/iridium/internal/config"
	"github.com/dropDatabas3/iridium/internal/email"
	"github.com/dropDatabas3/iridium/internal/events"
	ihttp "github.com/dropDatabas3/iridium/internal/http"
	admincontroller "github.com/dropDatabas3/iridium/internal/http/controllers/admin"
	authcontroller "github.com/dropDatabas3/iridium/internal/http/controllers/auth"
	healthcontroller "github.com/dropDatabas3/iridium/internal/http/controllers/health"
	identitycontroller "github.com/dropDatabas3/iridium/internal/http/controllers/identity"
	passwordcontroller "github.com/dropDatabas3/iridium/internal/http/controllers/password"
	"github.com/dropDatabas3/iridium/internal/http/helpers"
	"github.com/dropDatabas3/iridium/internal/http/router"
	authsvc "github.com/dropDatabas3/iridium/internal/http/services/auth"
	identitysvc "github.com/dropDatabas3/iridium/internal/http/services/identity"
	passwordsvc "github.com/dropDatabas3/iridium/internal/http/services/password"
	providersvc "github.com/dropDatabas3/iridium/internal/http/services/provider"
	"github.com/dropDatabas3/iridium/internal/http/services/tenancy"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
	"github.com/dropDatabas3/iridium/internal/rate"
	"github.com/dropDatabas3/iridium/internal/security/password"
	"github.com/dropDatabas3/iridium/internal/store"

	// Adapters registrados vía init().
	_ "github.com/dropDatabas3/iridium/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/iridium/internal/store/adapters/pg"
)

var version = "dev"

func main() {
	// .env es opcional; en prod la config llega por entorno real.
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:   "iridium",
		Short: "Servidor de identidad multi-tenant",
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "ruta al config.yaml (opcional)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica el schema al storage configurado",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return migrate(cfg)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	root.AddCommand(serveCmd, migrateCmd, versionCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.AdapterConnection, error) {
	return store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
	})
}

func migrate(cfg *config.Config) error {
	logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "iridium", Version: version})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	conn, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := store.Migrate(ctx, conn); err != nil {
		return err
	}
	log.Info("schema up to date", logger.String("driver", cfg.Storage.Driver))
	return nil
}

func serve(cfg *config.Config) error {
	logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "iridium", Version: version})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Store ───
	conn, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer conn.Close()

	// ─── Cache ───
	cacheClient, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Driver,
		Host:     cfg.Cache.Redis.Host,
		Port:     cfg.Cache.Redis.Port,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Prefix,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheClient.Close()

	// ─── Events + email ───
	bus := events.NewBus(cfg.Events.Workers, cfg.Events.Buffer)
	defer bus.Close()

	var sender email.Sender = email.NopSender{}
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			From:               cfg.SMTP.From,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
	}
	notifier := &email.Notifier{Sender: sender}
	notifier.Register(bus)

	// ─── Services ───
	policy := password.Policy{
		MinLength:     cfg.Security.PasswordPolicy.MinLength,
		RequireUpper:  cfg.Security.PasswordPolicy.RequireUpper,
		RequireLower:  cfg.Security.PasswordPolicy.RequireLower,
		RequireDigit:  cfg.Security.PasswordPolicy.RequireDigit,
		RequireSymbol: cfg.Security.PasswordPolicy.RequireSymbol,
	}
	links := helpers.Links{BaseURL: cfg.Server.BaseURL}

	resolver := tenancy.NewResolver(tenancy.Deps{Store: conn, Cache: cacheClient})
	identities := identitysvc.NewService(identitysvc.Deps{
		Store:          conn,
		Tenancy:        resolver,
		Events:         bus,
		Policy:         policy,
		VerifyTokenTTL: cfg.Auth.Verify.TTL,
		Links:          links,
	})
	auth := authsvc.NewService(authsvc.Deps{
		Store:         conn,
		Tenancy:       resolver,
		Events:        bus,
		TokenTTL:      cfg.Auth.TokenTTL,
		LockThreshold: *cfg.Auth.LockoutThreshold,
	})
	passwords := passwordsvc.NewService(passwordsvc.Deps{
		Store:         conn,
		Tenancy:       resolver,
		Events:        bus,
		Policy:        policy,
		ResetTokenTTL: cfg.Auth.Reset.TTL,
		Links:         links,
	})
	providers := providersvc.NewService(providersvc.Deps{
		Store:    conn,
		Tenancy:  resolver,
		Identity: identities,
		Auth:     auth,
	})

	// ─── Rate limiting ───
	var loginLimiter, resetLimiter rate.Limiter
	if cfg.Rate.Enabled {
		if cfg.Cache.Driver == "redis" {
			client := rdb.NewClient(&rdb.Options{
				Addr:     fmt.Sprintf("%s:%d", cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
			})
			loginLimiter = rate.NewRedisLimiter(client, cfg.Cache.Prefix+"rl:", cfg.Rate.Login.Limit, cfg.LoginWindow())
			resetLimiter = rate.NewRedisLimiter(client, cfg.Cache.Prefix+"rl:", cfg.Rate.Forgot.Limit, cfg.ForgotWindow())
		} else {
			loginLimiter = rate.NewMemoryLimiter(cfg.Rate.Login.Limit, cfg.LoginWindow())
			resetLimiter = rate.NewMemoryLimiter(cfg.Rate.Forgot.Limit, cfg.ForgotWindow())
		}
	}

	// ─── Metrics ───
	metricsHandler, err := ihttp.RegisterMetrics(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	ihttp.SubscribeMetrics(bus)

	// ─── Router + server ───
	handler := router.New(router.Deps{
		Identity:       identitycontroller.NewController(identities, auth, resolver),
		Auth:           authcontroller.NewController(auth, providers),
		Password:       passwordcontroller.NewController(passwords),
		Admin:          admincontroller.NewController(conn, identities),
		Health:         healthcontroller.NewController(conn, cacheClient),
		TokenValidator: auth,
		LoginLimiter:   loginLimiter,
		ResetLimiter:   resetLimiter,
		AdminAPIKey:    cfg.Admin.APIKey,
		MetricsHandler: metricsHandler,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening",
			logger.String("addr", cfg.Server.Addr),
			logger.String("storage", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
