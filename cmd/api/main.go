package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"cramdesk/internal/adapter/repo"
	"cramdesk/internal/billing"
	"cramdesk/internal/email"
	"cramdesk/internal/http/handlers"
	httpapi "cramdesk/internal/http/httpapi"
	"cramdesk/internal/infra"
	"cramdesk/internal/infra/geoip"
	"cramdesk/internal/infra/google"
	appmw "cramdesk/internal/middleware"
	"cramdesk/internal/providers/llm"
	"cramdesk/internal/quota"
	"cramdesk/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	accounts := repo.NewAccountRepository(runner)
	documents := repo.NewDocumentRepository(runner)
	studyAids := repo.NewStudyAidRepository(runner)

	ledger := quota.NewLedger(accounts, logger)

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	files, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	var provider llm.Provider
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY missing, serving deterministic study aids")
		provider = llm.NewStaticProvider()
	} else {
		provider, err = llm.NewOpenAIProvider(llm.OpenAIOptions{
			APIKey:       cfg.OpenAIAPIKey,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			Fallback:     llm.NewStaticProvider(),
			OnFallback: func(reason string, err error) {
				logger.Warn().Err(err).Str("reason", reason).Msg("openai fallback engaged")
			},
			OnWarning: func(reason, detail string) {
				logger.Warn().Str("reason", reason).Str("detail", detail).Msg("openai configuration warning")
			},
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure llm provider")
		}
	}

	var stripeBilling *billing.Billing
	if cfg.StripeSecretKey != "" {
		stripeBilling = billing.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		logger.Warn().Msg("STRIPE_SECRET_KEY missing, checkout disabled")
	}

	var countryLookup appmw.CountryLookup
	if cfg.GeoIPDBPath != "" {
		resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn().Err(err).Msg("geoip database unavailable, locale detection degraded")
		} else {
			countryLookup = resolver.CountryCode
		}
	}

	app := &handlers.App{
		Config:         cfg,
		Logger:         logger,
		SQL:            runner,
		Accounts:       accounts,
		Documents:      documents,
		StudyAids:      studyAids,
		Ledger:         ledger,
		Provider:       provider,
		Billing:        stripeBilling,
		Email:          email.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom),
		Files:          files,
		GoogleVerifier: google.NewVerifier(cfg.GoogleIssuer, cfg.GoogleClientID),
		JWTSecret:      cfg.JWTSecret,
	}

	router := httpapi.NewRouter(app, countryLookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
