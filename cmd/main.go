package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/johnrodneybargayo/gabay-rooms/internal/assistant"
	"github.com/johnrodneybargayo/gabay-rooms/internal/config"
	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
	"github.com/johnrodneybargayo/gabay-rooms/internal/handler"
	"github.com/johnrodneybargayo/gabay-rooms/internal/hub"
	"github.com/johnrodneybargayo/gabay-rooms/internal/repository"
	"github.com/johnrodneybargayo/gabay-rooms/internal/service"
	"github.com/johnrodneybargayo/gabay-rooms/internal/store"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/database"
	pkglog "github.com/johnrodneybargayo/gabay-rooms/pkg/log"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "gabay-rooms",
	})
	logger := pkglog.L()

	// Connect to the room tree store. Bootstrap degrades to memory if
	// Redis is unreachable at startup.
	var treeStore store.TreeStore
	treeStore, err = store.NewRedisStore(cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, starting with in-memory room store")
		treeStore = store.NewMemoryStore()
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis room store connected")
	}
	defer treeStore.Close()

	// Optional durable archive
	var archive repository.ArchiveRepository
	if cfg.Database.Enabled {
		db, err := database.New(cfg.Database.ToDatabaseConfig())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := database.AutoMigrate(db, &domain.RoomModel{}, &domain.MessageModel{}); err != nil {
			logger.Fatal().Err(err).Msg("failed to auto-migrate")
		}
		logger.Info().Str("driver", cfg.Database.Driver).Msg("message archive connected")
		archive = repository.NewGormArchiveRepository(db)
	}

	// Event bus
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Warn().Err(err).Msg("event bus unavailable, running single-node")
		bus = nil
	} else {
		defer bus.Close()
		logger.Info().Str("driver", cfg.PubSub.Driver).Msg("event bus connected")
	}

	// Assistant responder
	var responder assistant.Responder
	switch cfg.Assistant.Strategy {
	case "openai":
		responder = assistant.NewOpenAIResponder(cfg.Assistant.OpenAI)
		logger.Info().Str("model", cfg.Assistant.OpenAI.Model).Msg("assistant using chat completions")
	default:
		responder = assistant.NewRuleResponder()
		logger.Info().Msg("assistant using rule table")
	}

	// Room sync core
	roomSync := service.NewRoomSync(service.Deps{
		Store:           treeStore,
		Archive:         archive,
		Bus:             bus,
		Responder:       responder,
		ReplyDelay:      cfg.Room.ReplyDelay,
		DefaultCapacity: cfg.Room.DefaultCapacity,
		SeedDefaults:    cfg.Room.SeedDefaults,
	})

	ctx := context.Background()
	if err := roomSync.Bootstrap(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to bootstrap room catalog")
	}

	go func() {
		if err := roomSync.StartWatcher(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("room event watcher stopped")
		}
	}()

	// WebSocket hub
	h := hub.NewHub(cfg.WebSocket)
	wsHandler := handler.NewWSHandler(h, roomSync, cfg.WebSocket)
	go h.Run()
	go wsHandler.PumpUpdates(ctx)

	// HTTP surface
	httpHandler := handler.NewHandler(roomSync, archive)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	httpHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("gabay-rooms starting")
	if err := r.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
