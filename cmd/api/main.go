package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"caterly/internal/auth"
	"caterly/internal/bills"
	"caterly/internal/config"
	"caterly/internal/customers"
	"caterly/internal/db"
	"caterly/internal/documents"
	"caterly/internal/expenses"
	"caterly/internal/logging"
	"caterly/internal/menuitems"
	"caterly/internal/middleware"
	"caterly/internal/notify"
	"caterly/internal/orders"
	"caterly/internal/router"
	"caterly/internal/storage"
	"caterly/internal/workforce"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {
	// ───────────────────────── ENV ─────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ───────────────────────── DB ─────────────────────────
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// ───────────────────────── AUTH ─────────────────────────
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := auth.NewService(auth.NewPostgresUserRepository(pool), tokens)
	if cfg.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Error("bootstrap admin failed", "error", err)
			os.Exit(1)
		}
	}

	// ───────────────────────── SERVICES (ORDER MATTERS) ─────────────────────────
	customerService := customers.NewService(customers.NewPostgresRepository(pool))
	menuItemService := menuitems.NewService(menuitems.NewPostgresRepository(pool))
	workforceService := workforce.NewService(workforce.NewPostgresRepository(pool))
	orderService := orders.NewService(orders.NewPostgresRepository(pool))
	billService := bills.NewService(bills.NewPostgresRepository(pool), orderService)
	orderService.SetBillLinker(billService)
	expenseService := expenses.NewService(expenses.NewPostgresRepository(pool), orderService, cfg.AllocationFallbackWeight)

	docService := documents.NewService(documents.Sources{
		Bills:     billService,
		Orders:    orderService,
		Customers: customerService,
		Expenses:  expenseService,
		Workforce: workforceService,
	}, documents.CompanyFromConfig(cfg.CompanyConfig), documentOptions(ctx, cfg)...)

	// ───────────────────────── ROUTES ─────────────────────────
	r := router.NewRouter(router.Handlers{
		Auth:      auth.NewHandler(authService, cfg.CookieSecure),
		Customers: customers.NewHandler(customerService),
		MenuItems: menuitems.NewHandler(menuItemService),
		Workforce: workforce.NewHandler(workforceService),
		Orders:    orders.NewHandler(orderService),
		Bills:     bills.NewHandler(billService),
		Expenses:  expenses.NewHandler(expenseService),
		Documents: documents.NewHandler(docService),
	}, router.Options{
		Tokens:      tokens,
		CORSOrigins: cfg.CORSOrigins,
		AuthLimiter: middleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst),
	})

	// ───────────────────────── START ─────────────────────────
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("api listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

// documentOptions enables whatever document backends are configured. Each
// one is optional; the API still renders HTML without any of them.
func documentOptions(ctx context.Context, cfg *config.Config) []documents.Option {
	var opts []documents.Option

	if cfg.PDFConverterURL != "" {
		opts = append(opts, documents.WithConverter(documents.NewGotenbergConverter(cfg.PDFConverterURL)))
	} else {
		slog.Warn("PDF_CONVERTER_URL not set, documents are served as HTML only")
	}

	r2, err := storage.NewR2Client(ctx, cfg.R2Config)
	switch {
	case err != nil:
		slog.Error("r2 init failed, uploads disabled", "error", err)
	case r2 != nil:
		opts = append(opts, documents.WithStorage(r2))
	}

	if email, err := notify.NewEmailSender(cfg); err == nil {
		slog.Info("email delivery enabled", "provider", email.Name())
		opts = append(opts, documents.WithEmail(email))
	}
	if wa, err := notify.NewWhatsAppSender(cfg.WhatsAppConfig); err == nil {
		opts = append(opts, documents.WithWhatsApp(wa))
	}
	return opts
}
