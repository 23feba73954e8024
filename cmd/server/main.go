// Copyright 2026 The Agency Edge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/finestafrica/agencyedge/internal/audit"
	"github.com/finestafrica/agencyedge/internal/config"
	"github.com/finestafrica/agencyedge/internal/identity"
	"github.com/finestafrica/agencyedge/internal/mail"
	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/observability/metrics"
	"github.com/finestafrica/agencyedge/internal/observability/tracing"
	"github.com/finestafrica/agencyedge/internal/passwordreset"
	"github.com/finestafrica/agencyedge/internal/session"
	"github.com/finestafrica/agencyedge/internal/store/postgres"
	"github.com/finestafrica/agencyedge/internal/tenant"
	"github.com/finestafrica/agencyedge/internal/token"
	transportHTTP "github.com/finestafrica/agencyedge/internal/transport/http"
)

const cleanupInterval = time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		OTELEnabled: cfg.Observability.OTELEnabled,
	})

	// CLI commands
	if len(os.Args) > 1 {
		var cmdErr error
		switch os.Args[1] {
		case "migrate":
			cmdErr = runMigrate(cfg, os.Args[2:])
		case "bootstrap":
			cmdErr = runBootstrap(cfg)
		case "cleanup":
			cmdErr = runCleanup(cfg)
		default:
			fmt.Printf("Unknown command %q (expected migrate, bootstrap or cleanup)\n", os.Args[1])
			os.Exit(2)
		}
		if cmdErr != nil {
			fmt.Printf("%s failed: %v\n", os.Args[1], cmdErr)
			os.Exit(1)
		}
		os.Exit(0)
	}

	slog.Info("starting agency edge", logger.String("root_domain", cfg.Tenancy.RootDomain))
	if err := serve(cfg); err != nil {
		slog.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

// app holds the wired services shared by the server and the CLI commands.
type app struct {
	repos      *repositories
	directory  *tenant.Directory
	tenants    *tenant.Service
	identity   *identity.Service
	sessions   *session.Service
	resets     *passwordreset.Service
	audit      audit.Logger
	closeCache func()
}

func (a *app) Close() {
	a.closeCache()
	a.repos.close()
}

func newApp(ctx context.Context, cfg *config.Config, instruments *metrics.Instruments) (*app, error) {
	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tenantCache, closeCache, err := openCache(ctx, cfg.Redis)
	if err != nil {
		repos.close()
		return nil, fmt.Errorf("failed to initialize tenant cache: %w", err)
	}

	hasher, err := token.NewHasher(cfg.Security.TokenHashSecret)
	if err != nil {
		closeCache()
		repos.close()
		return nil, err
	}

	auditLogger := audit.NewSlogLogger(slog.Default())
	passwordHasher := identity.NewPasswordHasher(cfg.Security.BcryptCost)

	sessionService := session.NewService(repos.sessions, hasher, cfg.Session.Lifetime,
		session.WithInstruments(instruments),
	)
	identityService := identity.NewService(repos.users, passwordHasher, sessionService, auditLogger)
	directory := tenant.NewDirectory(repos.tenants, tenantCache, cfg.Tenancy.CacheTTL,
		tenant.WithInstruments(instruments),
	)
	tenantService := tenant.NewService(repos.tenants, directory, auditLogger)

	var sender mail.Sender
	if cfg.Mail.Host != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			From:     cfg.Mail.From,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
		})
	} else {
		slog.Warn("SMTP_HOST not set; reset emails are logged instead of sent")
		sender = mail.NewLogSender(slog.Default())
	}

	resetService := passwordreset.NewService(repos.resets, hasher, identityService, sender, auditLogger,
		passwordreset.Config{
			Lifetime:   cfg.Security.ResetTokenLifetime,
			Scheme:     cfg.Tenancy.PublicScheme,
			RootDomain: cfg.Tenancy.RootDomain,
			PagePath:   cfg.Tenancy.ResetPagePath,
		},
	)

	return &app{
		repos:      repos,
		directory:  directory,
		tenants:    tenantService,
		identity:   identityService,
		sessions:   sessionService,
		resets:     resetService,
		audit:      auditLogger,
		closeCache: closeCache,
	}, nil
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   cfg.Observability.SamplingRate,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	} else {
		defer func() { _ = tracer.Shutdown(context.Background()) }()
	}

	// Initialize meter
	var instruments *metrics.Instruments
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	} else if instruments, err = metrics.NewInstruments(meter); err != nil {
		slog.Error("failed to register instruments", logger.Error(err))
		instruments = nil
	}

	a, err := newApp(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := identity.NewBootstrapService(a.identity, a.tenants, a.repos.tenants).Bootstrap(ctx); err != nil {
		slog.Error("bootstrap failed", logger.Error(err))
	}

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer rateLimiter.Stop()

	handler := transportHTTP.NewHandler(transportHTTP.Services{
		Directory:      a.directory,
		Tenants:        a.tenants,
		Users:          a.identity,
		Sessions:       a.sessions,
		PasswordResets: a.resets,
		Audit:          a.audit,
		HostParser:     tenant.NewHostParser(cfg.Tenancy.RootDomain),
		HealthCheck:    a.repos.ping,
	}, transportHTTP.SessionConfig{
		CookieName:     cfg.Session.CookieName,
		CookieDomain:   cfg.Session.CookieDomain,
		CookiePath:     cfg.Session.CookiePath,
		CookieSecure:   cfg.Session.CookieSecure,
		CookieHTTPOnly: cfg.Session.CookieHTTPOnly,
		CookieSameSite: transportHTTP.ParseSameSite(cfg.Session.CookieSameSite),
	})

	routerCfg := transportHTTP.RouterConfig{
		RateLimiter:    rateLimiter,
		AdminAPIKey:    cfg.Security.AdminAPIKey,
		RequestTimeout: cfg.Server.WriteTimeout,
	}
	if site := transportHTTP.NewSPAHandler(cfg.Server.SiteDir); site != nil {
		routerCfg.Site = site
	}
	if cfg.Security.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set; agency administration API is disabled")
	}
	router := transportHTTP.NewRouter(handler, routerCfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Expired session and reset token cleanup
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.cleanupExpired(ctx)
			}
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
	return nil
}

func (a *app) cleanupExpired(ctx context.Context) {
	if n, err := a.sessions.CleanupExpired(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to cleanup expired sessions", logger.Error(err))
	} else if n > 0 {
		slog.InfoContext(ctx, "removed expired sessions", logger.RowsAffected(n))
	}
	if n, err := a.resets.CleanupExpired(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to cleanup expired reset tokens", logger.Error(err))
	} else if n > 0 {
		slog.InfoContext(ctx, "removed expired reset tokens", logger.RowsAffected(n))
	}
}

func runBootstrap(cfg *config.Config) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return identity.NewBootstrapService(a.identity, a.tenants, a.repos.tenants).Bootstrap(ctx)
}

func runCleanup(cfg *config.Config) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	a.cleanupExpired(ctx)
	return nil
}

// runMigrate applies, rolls back or reports schema migrations:
//
//	server migrate [up]
//	server migrate down [steps]
//	server migrate version
func runMigrate(cfg *config.Config, args []string) error {
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations require DB_DRIVER=postgres, got %q", cfg.Database.Driver)
	}
	ctx := context.Background()
	dsn := cfg.Database.DSN()

	action := "up"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "up":
		if err := postgres.RunMigrations(ctx, dsn); err != nil {
			return err
		}
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		if err := postgres.RollbackMigrations(ctx, dsn, steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q", action)
	}

	version, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		return err
	}
	fmt.Printf("Schema version: %d\n", version)
	return nil
}
