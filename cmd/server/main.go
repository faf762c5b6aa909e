package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"finance-ai-backend/api"
	"finance-ai-backend/cache"
	"finance-ai-backend/kv"
	"finance-ai-backend/llm"
	"finance-ai-backend/middleware/auth"
	"finance-ai-backend/middleware/ratelimit"
	"finance-ai-backend/middleware/ratelimit/application"
	"finance-ai-backend/middleware/ratelimit/domain"
	"finance-ai-backend/middleware/ratelimit/infra"
	"finance-ai-backend/store"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// backend do KV: REST quando tem credencial, senão redis direto,
	// senão desabilitado (tudo degrada para miss / fail-open)
	var doer kv.Doer
	switch {
	case cfg.kvRestURL != "" && cfg.kvRestToken != "":
		doer = kv.NewRestClient(cfg.kvRestURL, cfg.kvRestToken)
	case cfg.kvRedisAddr != "":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.kvRedisAddr,
			Password: cfg.kvRedisPassword,
			DB:       cfg.kvRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			log.Fatal().Err(err).Msg("redis ping error")
		}
		doer = kv.NewRedisStore(rdb)
	default:
		doer = kv.NewRestClient("", "")
	}
	kvc := kv.NewClient(doer)

	var durable cache.Durable
	if cfg.databaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.databaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres error")
		}
		defer pg.Close()
		durable = pg
	}

	responseCache := cache.New(kvc, durable,
		cache.WithHotTTL(cfg.cacheHotTTL),
		cache.WithDurableTTL(cfg.cacheDurableTTL),
	)

	llmc := llm.NewClient(cfg.llmAPIURL, cfg.llmAPIKey, cfg.llmModel,
		llm.WithRateLimit(cfg.llmRPS, cfg.llmBurst))

	var stats domain.StatsStore
	var statsSource domain.StatsSource
	if doer.Enabled() {
		kvStats := infra.NewKVStats(doer)
		stats, statsSource = kvStats, kvStats
	} else {
		memStats := infra.NewMemoryStats()
		stats, statsSource = memStats, memStats
	}

	limiter := application.Service{
		Store: &infra.SlidingWindowStore{KV: doer},
	}

	handlers := &api.Handlers{
		Cache:        responseCache,
		LLM:          llmc,
		LimiterStats: statsSource,
	}
	if pg, ok := durable.(*store.Postgres); ok {
		handlers.Transactions = pg
	}

	authMW := auth.Middleware(auth.Options{Secret: []byte(cfg.jwtSecret)})
	limited := func(endpoint string, h http.Handler) http.Handler {
		return authMW(ratelimit.Middleware(ratelimit.Options{
			Service:            limiter,
			Endpoint:           endpoint,
			Stats:              stats,
			KeyHeader:          cfg.rateKeyHeader,
			TrustXForwardedFor: cfg.trustXFF,
		})(h))
	}

	mux := http.NewServeMux()
	layoutChain := ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.llmMaxConcurrent,
		AcquireTimeout: cfg.llmAcquireTimeout,
	})(http.HandlerFunc(handlers.Layout))
	mux.Handle("/api/ai/layout", limited("ai-layout", layoutChain))
	mux.Handle("/api/ai/forecast", limited("ai-forecast", http.HandlerFunc(handlers.Forecast)))
	mux.Handle("/api/ai/cache/metrics", limited("cache-metrics", http.HandlerFunc(handlers.CacheMetrics)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// WriteTimeout folgado: o layout em streaming segura a conexão
		// enquanto o provedor gera tokens
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.listenAddr).
		Bool("kv", doer.Enabled()).
		Bool("durable", durable != nil).
		Bool("llm", llmc.Enabled()).
		Msg("server listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}

type config struct {
	listenAddr string
	jwtSecret  string

	kvRestURL       string
	kvRestToken     string
	kvRedisAddr     string
	kvRedisPassword string
	kvRedisDB       int

	databaseURL string

	cacheHotTTL     time.Duration
	cacheDurableTTL time.Duration

	llmAPIURL         string
	llmAPIKey         string
	llmModel          string
	llmRPS            float64
	llmBurst          int
	llmMaxConcurrent  int
	llmAcquireTimeout time.Duration

	rateKeyHeader string
	trustXFF      bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.jwtSecret = os.Getenv("AUTH_JWT_SECRET")

	cfg.kvRestURL = os.Getenv("KV_REST_URL")
	cfg.kvRestToken = os.Getenv("KV_REST_TOKEN")
	cfg.kvRedisAddr = os.Getenv("KV_REDIS_ADDR")
	cfg.kvRedisPassword = os.Getenv("KV_REDIS_PASSWORD")
	cfg.kvRedisDB = getenvIntDefault("KV_REDIS_DB", 0)

	cfg.databaseURL = os.Getenv("DATABASE_URL")

	cfg.cacheHotTTL = getenvDurationDefault("CACHE_HOT_TTL", 30*time.Minute)
	cfg.cacheDurableTTL = getenvDurationDefault("CACHE_DURABLE_TTL", 12*time.Hour)

	cfg.llmAPIURL = os.Getenv("LLM_API_URL")
	cfg.llmAPIKey = os.Getenv("LLM_API_KEY")
	cfg.llmModel = getenvDefault("LLM_MODEL", "gpt-4o-mini")
	cfg.llmRPS = getenvFloatDefault("LLM_RPS", 2)
	cfg.llmBurst = getenvIntDefault("LLM_BURST", 4)
	cfg.llmMaxConcurrent = getenvIntDefault("LLM_MAX_CONCURRENT", 10)
	cfg.llmAcquireTimeout = getenvDurationDefault("LLM_ACQUIRE_TIMEOUT", 5*time.Second)

	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)

	if cfg.jwtSecret == "" {
		return config{}, errors.New("AUTH_JWT_SECRET is required")
	}
	if cfg.llmMaxConcurrent < 0 {
		return config{}, errors.New("LLM_MAX_CONCURRENT must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
