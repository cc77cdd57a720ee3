package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/db"
	"github.com/Nixie-Tech-LLC/prontotv/internal/db/memstore"
	adminapi "github.com/Nixie-Tech-LLC/prontotv/internal/http/api/admin/control/endpoints"
	clientapi "github.com/Nixie-Tech-LLC/prontotv/internal/http/api/tv/endpoints"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/prontotv/internal/mqttclient"
	rediscache "github.com/Nixie-Tech-LLC/prontotv/internal/redis"
	"github.com/Nixie-Tech-LLC/prontotv/internal/resolver"
	"github.com/Nixie-Tech-LLC/prontotv/internal/sweeper"
	"github.com/Nixie-Tech-LLC/prontotv/internal/telemetry"
)

func setupLogging(level string, production bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if !production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func openStore(env Environment) db.Store {
	if env.DatabaseURL == MemoryDatabase {
		log.Warn().Msg("running on the in-memory store, nothing will be persisted")
		return memstore.New()
	}

	// initialize PostgreSQL
	if err := db.Init(env.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init")
	}
	// run pending migrations
	if err := db.RunMigrations(env.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}
	return db.NewStore(db.DB)
}

func openMQTT(env Environment) telemetry.Publisher {
	if env.MQTTHost == "" {
		log.Info().Msg("MQTT_HOST not set, commands go over the websocket only")
		return nil
	}
	client, err := mqttclient.NewClient(mqttclient.Config{
		Host:     env.MQTTHost,
		Port:     env.MQTTPort,
		Username: env.MQTTUsername,
		Password: env.MQTTPassword,
		ClientID: "prontotv-server-" + uuid.NewString()[:8],
	})
	if err != nil {
		log.Warn().Err(err).Msg("MQTT unavailable, commands go over the websocket only")
		return nil
	}
	return client
}

func main() {
	_ = godotenv.Load()

	env := LoadEnvironment()
	setupLogging(env.LogLevel, env.Production())
	if env.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	store := openStore(env)

	if err := rediscache.InitRedis(env.RedisAddress, env.RedisUsername, env.RedisPassword); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, playback cache disabled")
		rediscache.Rdb = nil
	}
	cache := rediscache.NewPlaybackCache(rediscache.Rdb)

	objects, cdn := InitStorage(env)

	pub := openMQTT(env)
	if closer, ok := pub.(*mqttclient.Client); ok {
		defer closer.Close()
	}

	hub := telemetry.NewHub(telemetry.NewStateStore())
	hub.AdminAuth = middleware.AdminTokenValidator(env.SecretKey, store)
	notifier := telemetry.NewNotifier(hub, pub)

	sw := sweeper.New(store, notifier, cache)
	if err := sw.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start schedule sweeper")
	}
	defer sw.Stop()

	playback := resolver.NewService(store, cdn.Rewrite, env.Timezone)

	r := gin.New()
	r.Use(gin.Recovery())
	RegisterRoutes(r, env, Services{
		Store:   store,
		Storage: objects,
		CDN:     cdn,
		Hooks:   adminapi.Hooks{Notifier: notifier, Cache: cache},
		Hub:     hub,
		Client:  clientapi.NewClientController(store, playback, cache, env.Timezone),
	})

	srv := &http.Server{
		Addr:              env.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", env.ServerAddress).Str("timezone", env.Timezone.String()).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
