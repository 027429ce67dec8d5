package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"realtime-chat/internal/auth"
	"realtime-chat/internal/cache"
	"realtime-chat/internal/config"
	"realtime-chat/internal/db"
	"realtime-chat/internal/handlers"
	"realtime-chat/internal/mailer"
	"realtime-chat/internal/media"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/observability"
	"realtime-chat/internal/presence"
	"realtime-chat/internal/rabbitmq"
	"realtime-chat/internal/repositories"
	"realtime-chat/internal/telemetry"
	"realtime-chat/internal/ws"
)

const auditRoutingKey = "audit.auth"

type store struct {
	users    repositories.UserRepository
	messages repositories.MessageRepository
	close    func(context.Context) error
}

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.Environment == "development")
	mode, reason := rabbitmq.PublisherMode(publisher)
	log.Printf("event publisher mode=%s reason=%q", mode, reason)
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, auditRoutingKey, cfg.ServiceName, cfg.Environment)
	resetMailer := mailer.New(publisher, cfg.ServiceName)

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}

	userCache, err := cache.Connect(ctx, cfg.RedisAddr, cfg.ServiceName+":", cache.DefaultTTL)
	if err != nil {
		log.Printf("user cache disabled: %v", err)
	}
	users := cache.WrapUsers(st.users, userCache)

	uploader, err := media.NewDiskUploader(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		log.Fatalf("failed to init media uploader: %v", err)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	limiter := middleware.NewLimiterStore(cfg.RateLimitRPM, cfg.RateLimitRPM, time.Minute)

	hub := ws.NewHub(presence.NewTable[*ws.Client]())
	wsHandler := ws.NewHandler(hub, jwtManager, cfg.CORSOrigin)
	authHandler := handlers.NewAuthHandler(users, jwtManager, uploader, resetMailer, audit, cfg.CookieSecure)
	messageHandler := handlers.NewMessageHandler(users, st.messages, uploader, hub)

	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(middleware.CORS(cfg.CORSOrigin))

	authMiddleware := middleware.AuthMiddleware(jwtManager)
	rateLimit := middleware.RateLimit(limiter)

	authHandler.RegisterRoutes(router.Group("/api/auth"), authMiddleware, rateLimit)

	messageRoutes := router.Group("/api/messages", authMiddleware)
	messageRoutes.GET("/users", messageHandler.ListUsers)
	messageRoutes.GET("/:id", messageHandler.GetMessages)
	messageRoutes.POST("/send/:id", messageHandler.SendMessage)

	router.GET("/ws", wsHandler.Handle)
	router.Static(cfg.MediaRoute, cfg.MediaDir)
	router.GET("/metrics", observability.MetricsHandler())
	handlers.RegisterDebugRoutes(router, audit, hub, cfg.DebugRoutes)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: http.MaxBytesHandler(router, media.MaxImageBytes*2),
	}
	go func() {
		log.Printf("listening on :%s store=%s", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		// Order matters: drain requests, drop sockets, then close what they use.
		"app": func(ctx context.Context) error {
			err := srv.Shutdown(ctx)
			hub.Close()
			limiter.Stop()
			if userCache != nil {
				err = errors.Join(err, userCache.Close())
			}
			err = errors.Join(err, st.close(ctx))
			return errors.Join(err, publisher.Close())
		},
		"tracing": func(ctx context.Context) error {
			return shutdownTracing(ctx)
		},
	})
	exitCode := <-wait
	log.Printf("shutdown complete code=%d", exitCode)
	os.Exit(exitCode)
}

func openStore(ctx context.Context, cfg config.Config) (store, error) {
	switch cfg.StoreDriver {
	case "mongo":
		m, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return store{}, err
		}
		return store{
			users:    repositories.NewMongoUserRepo(m.Users()),
			messages: repositories.NewMongoMessageRepo(m.Messages()),
			close:    m.Close,
		}, nil
	case "postgres":
		database, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return store{}, err
		}
		return store{
			users:    repositories.NewUserRepo(database),
			messages: repositories.NewMessageRepo(database),
			close:    func(context.Context) error { return database.Close() },
		}, nil
	default:
		return store{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
