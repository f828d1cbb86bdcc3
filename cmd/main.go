package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"keygate/internal/adapters/api"
	"keygate/internal/adapters/idp/cognito"
	"keygate/internal/adapters/idp/mock"
	"keygate/internal/adapters/store/postgres"
	redisstore "keygate/internal/adapters/store/redis"
	appauth "keygate/internal/application/auth"
	"keygate/internal/config"
	"keygate/internal/domain/auth"
	"keygate/internal/infrastructure/crypto"
)

//	@title			Keygate Authentication API
//	@version		1.0
//	@description	Authentication and session service with hexagonal architecture

//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Live stores
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
	}

	sessions := redisstore.NewSessionStore(redisClient)
	ciphers := redisstore.NewCipherSessionStore(redisClient)
	states := redisstore.NewStateStore(redisClient, cfg.Auth.StateTTL)

	// Identity provider gateway
	var gateway auth.IdentityProviderGateway
	if cfg.Provider.Mock {
		log.Warn().Msg("Using in-memory mock identity provider")
		gateway = mock.New(mock.Account{
			Username:  "demo",
			Password:  "demo-password",
			Email:     "demo@keygate.local",
			Confirmed: true,
		})
	} else {
		gateway = cognito.New(cfg.Provider)
	}

	// Token signer
	var signer *crypto.Signer
	if cfg.Auth.JWTPrivateKey != "" {
		signer, err = crypto.NewSigner(cfg.Auth.JWTKid, []byte(cfg.Auth.JWTPrivateKey))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load signing key")
		}
	} else {
		log.Warn().Msg("AUTH_JWT_PRIVATE_KEY not set, using an ephemeral signing key")
		signer, err = crypto.NewEphemeralSigner(cfg.Auth.JWTKid)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to generate signing key")
		}
	}

	service := appauth.NewService(cfg, sessions, ciphers, states, gateway, signer, crypto.NewCipherExchange())

	// Optional session audit archive
	if cfg.Database.Enabled {
		archive, err := postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open session archive")
		}
		defer archive.Close()
		service.WithArchive(archive)
	}

	handler := api.NewHandler(service)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AllowedOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.AllowedOrigin != "*",
	}))

	handler.RegisterRoutes(r)

	log.Info().Msgf("Starting keygate server on port %s", cfg.HTTPPort)
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
