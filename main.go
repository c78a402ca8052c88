package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"gym-chat-service/internal/cache"
	"gym-chat-service/internal/config"
	"gym-chat-service/internal/db"
	"gym-chat-service/internal/handlers"
	"gym-chat-service/internal/middleware"
	"gym-chat-service/internal/observability"
	"gym-chat-service/internal/provider"
	"gym-chat-service/internal/rabbitmq"
	"gym-chat-service/internal/repositories"
	"gym-chat-service/internal/service"
	"gym-chat-service/internal/telemetry"
)

const serviceName = "gym-chat-service"

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing := telemetry.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	defer shutdownTracing(ctx)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	if mode := rabbitmq.PublisherMode(publisher); mode == "noop" {
		log.Printf("event publishing disabled: %s", rabbitmq.PublisherNoopReason(publisher))
	}
	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit.chat", serviceName, cfg.Env)

	roomRepo := repositories.NewRoomRepo(database)
	tenantRepo := repositories.NewTenantRepo(database)

	gateway := provider.NewHTTPGateway(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)

	clock := clockwork.NewRealClock()
	tokenCache := cache.New(clock, cfg.TokenTTL)
	channelCache := cache.New(clock, cfg.ChannelTTL)

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.Every(5).Minutes().Do(func() {
		if removed := tokenCache.Sweep() + channelCache.Sweep(); removed > 0 {
			log.Printf("cache sweep removed %d entries", removed)
		}
	})
	scheduler.StartAsync()
	defer scheduler.Stop()

	lifecycle := service.NewChatLifecycle(
		roomRepo,
		tenantRepo,
		gateway,
		provider.DefaultRetryPolicy(),
		tokenCache,
		channelCache,
		publisher,
	)

	roomHandler := handlers.NewRoomHandler(lifecycle, auditEmitter)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.IsDevelopment())

	authMiddleware := middleware.AuthMiddleware([]byte(cfg.JWTSecret))

	router.GET("/rooms", authMiddleware, roomHandler.ListRooms)
	router.POST("/rooms/direct", authMiddleware, roomHandler.StartDirectChat)
	router.POST("/rooms/event", authMiddleware, roomHandler.StartEventChat)
	router.POST("/rooms/:room_id/members", authMiddleware, roomHandler.AddMembers)
	router.POST("/rooms/:room_id/hide", authMiddleware, roomHandler.HideRoom)
	router.POST("/rooms/:room_id/show", authMiddleware, roomHandler.ShowRoom)
	router.POST("/rooms/:room_id/leave", authMiddleware, roomHandler.LeaveRoom)
	router.DELETE("/rooms/:room_id", authMiddleware, roomHandler.DeleteRoom)
	router.DELETE("/rooms/:room_id/me", authMiddleware, roomHandler.DeleteRoomForMe)
	router.GET("/token", authMiddleware, roomHandler.IssueToken)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
