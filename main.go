package main

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/niedraa/typevision-server/auth"
	"github.com/niedraa/typevision-server/configs"
	"github.com/niedraa/typevision-server/crypto"
	"github.com/niedraa/typevision-server/game"
	"github.com/niedraa/typevision-server/logger"
	"github.com/niedraa/typevision-server/migrations"
	"github.com/niedraa/typevision-server/payments"
	"github.com/niedraa/typevision-server/presence"
	"github.com/niedraa/typevision-server/stats"
	"github.com/niedraa/typevision-server/storage"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		// Native mobile clients send no Origin header.
		if origin == "" || slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func main() {
	if configs.Envs.GIN_MODE != "" {
		gin.SetMode(configs.Envs.GIN_MODE)
	}

	if configs.Envs.POSTGRES_URL == "" {
		logger.Fatal("Missing postgres url")
	}
	if configs.Envs.JWT_KEY == "" {
		logger.Fatal("Missing jwt signing key")
	}
	if configs.Envs.REDIS_URL == "" {
		logger.Fatal("Missing redis url")
	}
	allowedOrigins := strings.Split(configs.Envs.FRONTEND_ORIGIN, ",")

	migrations.Migrate(configs.Envs.POSTGRES_URL)

	// Dependencies
	pgRepo, err := storage.NewPostgresRepo(context.Background(), configs.Envs.POSTGRES_URL)
	if err != nil {
		logger.Fatalf("Couldn't connect to postgres: %v", err)
	}

	redisOpts, err := redis.ParseURL(configs.Envs.REDIS_URL)
	if err != nil {
		logger.Fatalf("Bad redis url: %v", err)
	}
	rdb := redis.NewClient(redisOpts)

	tokenAge := time.Hour * 24 * 7 // 7 days
	passwordHasher := crypto.NewArgon2idHasher(3, 1024*64, 32, 16, 1)
	tokenManager := crypto.NewJWTManager(configs.Envs.JWT_KEY, tokenAge)

	authService := auth.NewService(pgRepo, passwordHasher, tokenManager)
	authHandler := auth.NewAuthHandler(authService, tokenAge)

	tracker := presence.NewTracker(rdb)
	go tracker.Run(context.Background())
	presenceHandler := presence.NewPresenceHandler(tracker)

	statsService := stats.NewService(pgRepo, pgRepo, rdb)
	statsHandler := stats.NewStatsHandler(statsService)

	paymentsClient := payments.NewClient(
		configs.Envs.PAYMENT_API_URL,
		configs.Envs.PAYMENT_SECRET_KEY,
		configs.Envs.CHECKOUT_SUCCESS_URL,
		configs.Envs.CHECKOUT_CANCEL_URL,
	)
	paymentsHandler := payments.NewPaymentsHandler(paymentsClient)

	idGen := game.NewIdGen()
	tickerGen := game.NewTickerGen()

	lobby := game.NewLobby(&idGen, &tickerGen)

	lobbyStarted := make(chan struct{})
	go lobby.LobbyActor(lobbyStarted)
	<-lobbyStarted

	gameHandler := game.NewGameHandler(lobby, pgRepo, pgRepo, statsService, tracker)

	r := CreateServer(allowedOrigins)

	{
		authGroup := r.Group("/auth")
		authGroup.POST("/signup", authHandler.SignupHandler)
		authGroup.POST("/login", authHandler.LoginHandler)
		authGroup.POST("/guest", authHandler.GuestHandler)
		authGroup.POST("/logout", authHandler.LogoutHandler)
		authGroup.GET("/refresh", authHandler.RefreshSessionHandler)
	}

	requireAuth := authHandler.RequireAuthMiddleware(time.Second * 2)

	{
		gameGroup := r.Group("/game")
		gameGroup.Use(requireAuth)

		gameGroup.GET("/create", gameHandler.CreateGameHandler)
		gameGroup.GET("/join/:roomid", gameHandler.JoinGameHandler)
		gameGroup.GET("/code/:code", gameHandler.JoinByCodeHandler)
		gameGroup.GET("/quickmatch", gameHandler.QuickMatchHandler)
		gameGroup.GET("/games", gameHandler.GetPublicGamesHandler)
	}

	{
		presenceGroup := r.Group("/presence")
		presenceGroup.Use(requireAuth)

		presenceGroup.POST("/heartbeat", presenceHandler.HeartbeatHandler)
		presenceGroup.POST("/offline", presenceHandler.OfflineHandler)
		presenceGroup.GET("/:playerid", presenceHandler.GetHandler)
	}

	{
		statsGroup := r.Group("/stats")
		statsGroup.GET("/leaderboard", statsHandler.LeaderboardHandler)

		authed := statsGroup.Group("")
		authed.Use(requireAuth)
		authed.GET("/me", statsHandler.MyStatsHandler)
		authed.GET("/achievements", statsHandler.MyAchievementsHandler)
	}

	{
		paymentsGroup := r.Group("/payments")
		paymentsGroup.Use(requireAuth)
		paymentsGroup.POST("/checkout", paymentsHandler.CheckoutHandler)
	}

	logger.Infof("api listening on %s", configs.Envs.LISTEN_ADDR)
	if err := r.Run(configs.Envs.LISTEN_ADDR); err != nil {
		logger.Fatalf("Couldn't start server: %v", err)
	}
}
