package app

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahilchouksey/lessionprm-api/api"
	"github.com/sahilchouksey/lessionprm-api/config"
	"github.com/sahilchouksey/lessionprm-api/database"
	"github.com/sahilchouksey/lessionprm-api/router"
	"github.com/sahilchouksey/lessionprm-api/services"
	"github.com/sahilchouksey/lessionprm-api/services/cron"
	"github.com/sahilchouksey/lessionprm-api/services/momo"
	"github.com/sahilchouksey/lessionprm-api/services/storage"
	"github.com/sahilchouksey/lessionprm-api/utils/auth"
	"github.com/sahilchouksey/lessionprm-api/utils/cache"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/sahilchouksey/lessionprm-api/utils/middleware"
	"github.com/sahilchouksey/lessionprm-api/utils/ratelimit"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	env, err := config.Get()
	if err != nil {
		return err
	}

	logger.Init("lessionprm-api", !env.IsProduction())
	logger.SetLevel(env.LOG_LEVEL)

	if env.JWT_SECRET == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}

	// Initialize GORM database connection
	store, err := database.StartGORM(env)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("check whether PostgreSQL is running")
		return err
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis is optional: without it login lockout is off and rate limiting stays in memory
	redisCache, err := cache.NewRedisCache(env.REDIS_URL)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("redis unavailable, brute force protection disabled")
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	rateStore, stopRateStore := newRateLimitStore(env, redisCache)
	defer stopRateStore()

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        accessTokenTTL,
		RefreshExpiry: refreshTokenTTL,
		Issuer:        env.JWT_ISSUER,
	})

	mailer := services.NewEmailService(env)
	if !mailer.IsConfigured() {
		logger.Logger.Warn().Msg("SMTP credentials missing, emails will not be delivered")
	}

	gateway := momo.NewClient(momo.Config{
		PartnerCode: env.MOMO_PARTNER_CODE,
		AccessKey:   env.MOMO_ACCESS_KEY,
		SecretKey:   env.MOMO_SECRET_KEY,
		Endpoint:    env.MOMO_ENDPOINT,
		RedirectURL: env.MOMO_REDIRECT_URL,
		IPNURL:      env.MOMO_IPN_URL,
	})

	var uploader storage.Uploader
	if spacesCfg, ok := storage.ConfigFromEnv(env); ok {
		client, err := storage.NewSpacesClient(spacesCfg)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("receipt storage disabled")
		} else {
			uploader = client
		}
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	if env.CRON_ENABLED {
		db := store.DB()
		cronManager := cron.NewCronManager(db, cron.Jobs{
			Invoices: services.NewInvoiceService(db),
			Revenue:  services.NewRevenueService(db),
			Tokens:   auth.NewBlacklistService(db),
		})
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			logger.Logger.Warn().Err(err).Msg("failed to start cron jobs")
		} else {
			defer cronManager.Stop()
		}
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT))
	app := server.GetEngine()

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins: env.ALLOWED_ORIGINS,
		RateLimitStore: rateStore,
		TrustedProxies: env.RATE_LIMIT_TRUSTED_PROXIES,
	})

	if err := router.SetupRoutes(app, router.Dependencies{
		Store:    store,
		Cache:    redisCache,
		JWT:      jwtManager,
		Gateway:  gateway,
		Mailer:   mailer,
		Uploader: uploader,
	}); err != nil {
		return err
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Logger.Info().Msg("shutting down")
		if err := server.Shutdown(); err != nil {
			logger.Logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	return server.Run()
}

// newRateLimitStore picks the redis store when requested and reachable
func newRateLimitStore(env *config.EnvironmentVariable, redisCache *cache.RedisCache) (ratelimit.Store, func()) {
	window := time.Duration(env.RATE_LIMIT_WINDOW_SECONDS) * time.Second

	if env.RATE_LIMIT_STORE == "redis" && redisCache != nil {
		logger.Logger.Info().Msg("rate limiting backed by redis")
		return ratelimit.NewRedisStore(redisCache, env.RATE_LIMIT_REQUESTS, window), func() {}
	}

	store := ratelimit.NewMemoryStore(ratelimit.MemoryConfig{
		Limit:  env.RATE_LIMIT_REQUESTS,
		Window: window,
	})
	store.Start()
	return store, store.Stop
}
