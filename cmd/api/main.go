package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"cosmic-chicken-backend/internal/chain"
	"cosmic-chicken-backend/internal/config"
	"cosmic-chicken-backend/internal/handlers"
	"cosmic-chicken-backend/internal/middleware"
	"cosmic-chicken-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := chain.NewGateway(ctx, cfg.RPCURL, cfg.WSRPCURL, cfg.ContractAddress, cfg.PrivateKey)
	if err != nil {
		log.Fatalf("Failed to connect to chain: %v", err)
	}
	defer gateway.Close()

	log.Printf("Playing as %s", gateway.Player().Hex())

	var history *services.HistoryService
	if cfg.RedisURL != "" {
		history, err = services.NewHistoryService(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer history.Close()
	} else {
		log.Println("REDIS_URL not set, game history disabled")
	}

	clock := clockwork.NewRealClock()
	store := services.NewGameStore()
	wsHandler := handlers.NewWebSocketHandler()

	interp := services.NewInterpolator(store, wsHandler, clock)
	session := services.NewGameSession(gateway, store, interp, wsHandler, clock, services.SessionConfig{
		PollInterval:      cfg.PollInterval,
		SyncAttempts:      cfg.SyncAttempts,
		SyncRetryInterval: cfg.SyncRetryInterval,
		GraceWindow:       cfg.GraceWindow,
	})
	if err := session.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to read contract constants: %v", err)
	}

	if history != nil {
		session.WithHistory(history)
	}

	rounds := services.NewRoundWatcher(gateway, wsHandler, clock, cfg.PollInterval, cfg.RoundEntryFee)
	session.WithRounds(rounds)
	wsHandler.AttachSession(session)

	go session.Run(ctx)
	go rounds.Run(ctx)

	jwtService := services.NewJWTService(cfg)
	authHandler := handlers.NewAuthHandler(jwtService, cfg.APIPassword, gateway.Player().Hex())
	botHandler := handlers.NewBotHandler(session, history)
	roundHandler := handlers.NewRoundHandler(rounds)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/login", authHandler.Login)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)
		protected.GET("/wallet", botHandler.GetWallet)

		bot := protected.Group("/bot")
		{
			bot.GET("/state", botHandler.GetState)
			bot.GET("/history", botHandler.GetHistory)
			bot.POST("/start", botHandler.StartGame)
			bot.POST("/eject", botHandler.Eject)
			bot.POST("/again", botHandler.PlayAgain)
			bot.POST("/reset", botHandler.ForceReset)
		}

		round := protected.Group("/round")
		{
			round.GET("/state", roundHandler.GetState)
			round.POST("/join", roundHandler.Join)
			round.POST("/eject", roundHandler.Eject)
			round.POST("/withdraw", roundHandler.Withdraw)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
