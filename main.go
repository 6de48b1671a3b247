package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/beka-birhanu/gridhunt-server/api"
	"github.com/beka-birhanu/gridhunt-server/api/board"
	api_i "github.com/beka-birhanu/gridhunt-server/api/i"
	"github.com/beka-birhanu/gridhunt-server/api/identity"
	"github.com/beka-birhanu/gridhunt-server/config"
	"github.com/beka-birhanu/gridhunt-server/game"
	"github.com/beka-birhanu/gridhunt-server/infrastruture/leaderboard"
	"github.com/beka-birhanu/gridhunt-server/infrastruture/repo"
	"github.com/beka-birhanu/gridhunt-server/infrastruture/token"
	"github.com/beka-birhanu/gridhunt-server/logger"
	"github.com/beka-birhanu/gridhunt-server/service"
	"github.com/beka-birhanu/gridhunt-server/service/i"
	"github.com/beka-birhanu/gridhunt-server/tcp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Global variables for dependencies
var (
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	userRepo       i.UserRepo
	winLeaderboard i.Leaderboard
	jwtTokenizer   i.Tokenizer
	authService    i.Authenticator
	scheduler      *game.Scheduler
	registry       *game.Registry
	gameServer     *tcp.Server
	authController api_i.Controller
	viewController api_i.Controller
	router         *api.Router
	appLogger      logger.Logger
)

func initMongo(ctx context.Context) {
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%v", config.Envs.DBUser, config.Envs.DBPassword, config.Envs.DBHost, config.Envs.DBPort)

	clientOptions := options.Client().ApplyURI(uri)
	var err error
	mongoClient, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Failed to connect to MongoDB: %v", err))
		os.Exit(1)
	}
	if err = mongoClient.Ping(ctx, nil); err != nil {
		appLogger.Error(fmt.Sprintf("MongoDB ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to MongoDB")
}

func initUserRepo(client *mongo.Client) {
	userRepo = repo.NewUserRepo(client, config.Envs.DBName, "users")
	appLogger.Info("User repository initialized")
}

func initRedis(ctx context.Context) {
	redisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Envs.RedisHost, config.Envs.RedisPort),
		Password: config.Envs.RedisPass,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Error(fmt.Sprintf("Redis ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to Redis")
}

func initLeaderboard(client *redis.Client) {
	var err error
	winLeaderboard, err = leaderboard.NewRedisLeaderboard(client)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating leaderboard: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Leaderboard initialized")
}

func initJWTTokenizer() {
	jwtTokenizer = token.NewJwtService(config.Envs.JWTSecret, config.Envs.JWTIssuer)
	appLogger.Info("JWT Tokenizer initialized")
}

func initAuthService() {
	var err error
	authService, err = service.NewAuthService(userRepo, jwtTokenizer)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating auth service: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Auth service initialized")
}

func initGameRegistry() {
	var err error
	scheduler, err = game.NewScheduler(config.Envs.BotPoolSize)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating bot scheduler: %v", err))
		os.Exit(1)
	}

	registry, err = game.NewRegistry(game.RegistryConfig{
		Scheduler: scheduler,
		BotDelay:  time.Duration(config.Envs.BotThinkMS) * time.Millisecond,
		OnWin:     recordWin,
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating game registry: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Game registry initialized")
}

// recordWin persists a human player's win on the leaderboard.
func recordWin(username string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := winLeaderboard.RecordWin(ctx, username); err != nil {
		appLogger.Error(fmt.Sprintf("Recording win for %s: %v", username, err))
	}
}

func initGameServer() {
	gameLogger := log.New(os.Stdout, config.ColorBlue+"[GAME-SOCKET] "+config.ColorReset, log.LstdFlags)

	var err error
	gameServer, err = tcp.NewServer(tcp.ServerConfig{
		ListenAddr:  fmt.Sprintf("%s:%d", config.Envs.HostIP, config.Envs.GamePort),
		Registry:    registry,
		Auth:        authService,
		Leaderboard: winLeaderboard,
	},
		tcp.ServerWithLogger(gameLogger),
		tcp.ServerWithLeaderboardSize(int64(config.Envs.LeaderboardN)),
	)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating game server: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Game server initialized")
}

func initControllers() {
	authController = identity.NewIdentityServer(authService)
	viewController = board.NewBoardServer(registry, winLeaderboard, int64(config.Envs.LeaderboardN))
	appLogger.Info("Controllers initialized")
}

func initRouter(t i.Tokenizer) {
	router = api.NewRouter(api.Config{
		Addr:                    fmt.Sprintf("%s:%v", config.Envs.HostIP, config.Envs.RESTPort),
		BaseURL:                 "/api",
		Mode:                    config.Envs.GinMode,
		Controllers:             []api_i.Controller{authController, viewController},
		AuthorizationMiddleware: identity.Authoriz(t),
	})
	appLogger.Info("Router initialized")
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel() // Ensure the context is always canceled

	// Initialize dependencies
	appLogger, _ = logger.New("APP", config.ColorGreen, os.Stdout)

	initMongo(ctx)
	defer func() {
		_ = mongoClient.Disconnect(ctx)
	}()

	initUserRepo(mongoClient)
	initRedis(ctx)
	defer func() {
		_ = redisClient.Close()
	}()

	initLeaderboard(redisClient)
	initJWTTokenizer()
	initAuthService()
	initGameRegistry()
	defer scheduler.Stop()

	initGameServer()
	initControllers()
	initRouter(jwtTokenizer)

	// Run the game protocol alongside the HTTP server
	go gameServer.Serve()
	defer gameServer.Stop()

	if err := router.Run(); err != nil {
		appLogger.Error(fmt.Sprintf("Starting server: %v", err))
		os.Exit(1)
	}
}
