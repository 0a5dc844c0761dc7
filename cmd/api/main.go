package main

import (
	"context"
	"log"
	"time"

	"ambassador-chat/config"
	"ambassador-chat/internal/domain/message"
	"ambassador-chat/internal/domain/room"
	"ambassador-chat/internal/events"
	"ambassador-chat/internal/handler"
	"ambassador-chat/internal/presence"
	"ambassador-chat/internal/proxy"
	"ambassador-chat/internal/repository"
	redisx "ambassador-chat/internal/redis"
	"ambassador-chat/internal/server"
	"ambassador-chat/internal/services"
	"ambassador-chat/internal/websocket"
	"ambassador-chat/pkg/database"
	"ambassador-chat/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(l)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&room.ChatRoom{},
		&room.Membership{},
		&room.RoomSequence{},
		&message.Message{},
	); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	redisClient := redisx.NewClient(redisx.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolver := events.NewRoomChannelResolver()
	bus := events.NewRedisBus(redisClient, resolver, l)
	subscriber := redisx.NewSubscriber(redisClient)

	typingStore := redisx.NewTypingStore(redisClient, cfg.PresenceTTL)
	coord := presence.NewCoordinator(cfg.PresenceTTL, typingStore, bus, l)
	go coord.Run(ctx)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	bridge := websocket.NewBridge(subscriber, hub, coord, l)
	go bridge.Run(ctx)

	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	access := proxy.NewAccessControl(roomRepo)

	rateLimitCfg := redisx.DefaultRateLimitConfig()
	rateLimitCfg.MessageLimit = cfg.MessageRateLimit
	rateLimitCfg.MessageWindow = time.Minute
	limiter := redisx.NewRateLimiter(redisClient, rateLimitCfg)

	collaborator := services.NewHTTPCollaborator(cfg.CollaboratorBaseURL, cfg.CollaboratorToken)
	identityCache := redisx.NewIdentityCache(redisClient, 5*time.Minute)
	identity := services.NewCachedIdentityResolver(collaborator, identityCache, l)

	strategy := services.StrategyOptimistic
	if cfg.AtomicRoomCreation {
		strategy = services.StrategyAtomic
	}

	provisioning := services.NewProvisioningService(db, roomRepo, bus, l, strategy, cfg.MaxRoomNameLength)
	rooms := services.NewRoomService(roomRepo, access, bus, l)
	messages := services.NewMessageService(db, messageRepo, roomRepo, access, bus, limiter, identity, l, cfg.MaxMessageLength)
	lifecycle := services.NewLifecycleService(db, roomRepo, messageRepo, collaborator, typingStore, bus, l)

	tokens := services.NewTokenVerifier(cfg.JWTSecret)

	srv := server.New(cfg, l, db)
	srv.SetupRoutes(&server.Handlers{
		Rooms:    handler.NewRoomHandler(provisioning, rooms, lifecycle),
		Messages: handler.NewMessageHandler(messages),
		Presence: handler.NewPresenceHandler(coord, access),
		Socket:   websocket.NewHandler(tokens, hub, access, coord, l),
	}, tokens)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
