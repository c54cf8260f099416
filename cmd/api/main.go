package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/petalcrumb/pos-engine/internal/attachments"
	"github.com/petalcrumb/pos-engine/internal/catalog"
	"github.com/petalcrumb/pos-engine/internal/checkout"
	"github.com/petalcrumb/pos-engine/internal/common"
	"github.com/petalcrumb/pos-engine/internal/config"
	"github.com/petalcrumb/pos-engine/internal/coupon"
	"github.com/petalcrumb/pos-engine/internal/customers"
	"github.com/petalcrumb/pos-engine/internal/db"
	"github.com/petalcrumb/pos-engine/internal/events"
	"github.com/petalcrumb/pos-engine/internal/health"
	"github.com/petalcrumb/pos-engine/internal/lock"
	"github.com/petalcrumb/pos-engine/internal/obs"
	"github.com/petalcrumb/pos-engine/internal/order"
	"github.com/petalcrumb/pos-engine/internal/park"
	"github.com/petalcrumb/pos-engine/internal/paylink"
	"github.com/petalcrumb/pos-engine/internal/queue"
	"github.com/petalcrumb/pos-engine/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pos")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pos-engine-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if envBool("DB_AUTO_MIGRATE", true) {
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, "pos-engine-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	collaboratorClient := common.HTTPClient(cfg.CollaboratorTimeout)

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Store:        &catalog.Repo{Pool: pool},
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		DefaultPage:  cfg.CatalogDefaultPage,
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalogService)

	var couponValidator coupon.Validator
	if cfg.CouponServiceURL != "" {
		couponValidator = &coupon.RemoteValidator{
			BaseURL: cfg.CouponServiceURL,
			APIKey:  cfg.CouponServiceKey,
			Client:  collaboratorClient,
		}
	} else {
		couponValidator = &coupon.Rules{Pool: pool}
	}

	var notifiers []events.Notifier
	if cfg.AMQPURL != "" {
		amqpConn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Error().Err(err).Msg("dial amqp, continuing without floor displays")
		} else {
			defer func() { _ = amqpConn.Close() }()
			notifier, err := events.NewAMQPNotifier(amqpConn)
			if err != nil {
				logger.Error().Err(err).Msg("open amqp channel")
			} else {
				defer func() { _ = notifier.Close() }()
				notifiers = append(notifiers, notifier)
			}
		}
	}
	bus := &events.Bus{
		Store:     &events.PGStore{Pool: pool},
		Notifiers: notifiers,
	}

	asynqOpts, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for asynq")
	}
	asynqClient := asynq.NewClient(asynqOpts)
	defer func() { _ = asynqClient.Close() }()

	var attachmentStore attachments.Store
	if cfg.AttachmentsURL != "" {
		attachmentStore = &attachments.HTTPStore{
			BaseURL: cfg.AttachmentsURL,
			APIKey:  cfg.AttachmentsAPIKey,
			Client:  collaboratorClient,
		}
	} else {
		attachmentStore = attachments.NoopStore{}
	}

	var directory customers.Directory
	if cfg.DirectoryURL != "" {
		directory = &customers.HTTPDirectory{
			BaseURL: cfg.DirectoryURL,
			APIKey:  cfg.DirectoryAPIKey,
			Client:  collaboratorClient,
		}
	} else {
		directory = &customers.MockDirectory{}
	}
	customerHandler := customers.NewHandler(directory)

	var submitter order.Submitter
	if cfg.OrderServiceURL != "" {
		submitter = &order.HTTPSubmitter{
			BaseURL: cfg.OrderServiceURL,
			APIKey:  cfg.OrderServiceAPIKey,
			Client:  collaboratorClient,
		}
	} else {
		submitter = &order.LocalSubmitter{R: redisClient, Prefix: cfg.OrderNumberPrefix}
	}

	signer := &paylink.Signer{
		Secret:  []byte(cfg.PaylinkSecret),
		BaseURL: cfg.PaylinkBaseURL,
		Issuer:  "pos-engine",
		TTL:     cfg.PaylinkTTL,
	}
	paylinkHandler := &paylink.Handler{Signer: signer}

	checkoutSvc := &checkout.Service{
		Sessions:          &checkout.SessionStore{R: redisClient, TTL: cfg.SessionTTL},
		Catalog:           catalogService,
		Coupons:           couponValidator,
		Zones:             checkout.NewZoneTable(cfg.DeliveryNearAreas, cfg.DeliveryNearCharge, cfg.DeliveryFarCharge),
		Locks:             lock.Locker{R: redisClient, TTL: cfg.LockTTL, Backoff: 25 * time.Millisecond},
		Attach:            attachmentStore,
		Links:             signer,
		Orders:            submitter,
		Parking:           &park.Store{R: redisClient, TTL: cfg.ParkTTL},
		Events:            bus,
		Tasks:             &queue.Enqueuer{Client: asynqClient},
		SupervisorPINHash: cfg.SupervisorPINHash,
		Slots:             cfg.FulfillmentSlots,
		Log:               &logger,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Validate: checkout.NewValidator()}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	rateLimiter, err := ratelimit.NewRedisLimiter(redisClient, "pos:rl", cfg.RateLimitWindow, cfg.RateLimitMax)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	limit := ratelimit.Handler{
		Limiter: rateLimiter,
		Config: ratelimit.Config{Key: func(r *http.Request) string {
			if terminal, ok := common.Terminal(r.Context()); ok {
				return terminal
			}
			return r.RemoteAddr
		}},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limiter store")
		},
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(common.TerminalMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Terminal-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", true)
	if pprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/categories", catalogHandler.Categories)
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{slug}", catalogHandler.ProductDetail)

		v.Get("/customers", customerHandler.Lookup)
		v.Post("/customers", customerHandler.Upsert)
		v.Get("/paylinks/{token}", paylinkHandler.Verify)

		v.Route("/checkout", func(c chi.Router) {
			c.Get("/sessions/{sessionID}", checkoutHandler.GetSession)
			c.Get("/parked", checkoutHandler.ListParked)

			c.Group(func(g chi.Router) {
				g.Use(limit.Middleware)
				g.Use(idem.Middleware)

				g.Post("/sessions", checkoutHandler.CreateSession)
				g.Delete("/sessions/{sessionID}", checkoutHandler.DismissSession)

				g.Route("/sessions/{sessionID}", func(s chi.Router) {
					s.Post("/lines", checkoutHandler.AddLine)
					s.Put("/lines/{lineID}", checkoutHandler.UpdateLine)
					s.Delete("/lines/{lineID}", checkoutHandler.RemoveLine)
					s.Post("/lines/{lineID}/attachments", checkoutHandler.AttachImage)

					s.Put("/customer", checkoutHandler.SetCustomer)
					s.Put("/fulfillment", checkoutHandler.SetFulfillment)
					s.Put("/gift", checkoutHandler.SetGift)
					s.Put("/notes", checkoutHandler.SetNotes)

					s.Post("/coupon", checkoutHandler.ApplyCoupon)
					s.Delete("/coupon", checkoutHandler.RemoveCoupon)

					s.Post("/payments", checkoutHandler.RecordPayment)
					s.Delete("/payments/{entryID}", checkoutHandler.RemovePayment)
					s.Post("/payment-link", checkoutHandler.CreatePaymentLink)

					s.Post("/park", checkoutHandler.ParkSession)
					s.Post("/submit", checkoutHandler.SubmitSession)
				})

				g.Post("/parked/{ticketID}/recall", checkoutHandler.RecallParked)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()
	health.SetReady(true)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-stopCtx.Done():
		logger.Info().Msg("shutdown signal received")
		health.SetReady(false)
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
