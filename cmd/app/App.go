package app

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"socketDraw/configs"
	"socketDraw/internal/handlers"
	"socketDraw/internal/hub"
	"socketDraw/internal/registry"
	"socketDraw/internal/repositories"
	"socketDraw/internal/servers/database"
	httpServer "socketDraw/internal/servers/http"
	"socketDraw/internal/services"
	"socketDraw/internal/worker"
)

var (
	app  *App
	once sync.Once
)

type App struct {
	ctx     context.Context
	configs *configs.Config
	redis   *redis.Client
}

func GetApp() *App {
	once.Do(func() {
		app = &App{}
	})
	return app
}

func (app *App) LetsGo() {
	app.ctx = context.Background()
	app.configs = configs.GetConfig()
	app.initializeLogger()
	app.initializeRedis()

	redisOpt := asynq.RedisClientOpt{
		Addr:     app.configs.Viper.GetString("redis.addr"),
		Password: app.configs.Viper.GetString("redis.password"),
		DB:       app.configs.Viper.GetInt("redis.db"),
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	db := database.GetDB(app.configs)
	roomRepo := repositories.NewRoomRepository(db)
	roomService := services.NewRoomService(roomRepo)
	historyService := services.NewHistoryService(asynqClient, roomRepo)
	go historyService.Run()

	roomRegistry := registry.NewRoomRegistry()
	boardHub := hub.NewHub(roomRegistry, historyService)
	go boardHub.Run()

	workerServer := worker.NewWorkerServer(redisOpt, roomRepo)
	go workerServer.Start()
	defer workerServer.Shutdown()

	restHandler := handlers.NewRestHandler(roomService, roomRegistry)
	boardHandler := handlers.NewSocketBoardHandler(boardHub)

	httpServer.NewHttpServer(
		app.ctx,
		app.configs,
		app.redis,
		restHandler,
		boardHandler,
	).Run()
}

func (app *App) initializeLogger() {
	if app.configs.Viper.GetString("app.env") == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(app.configs.Viper.GetString("log.level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
}

func (app *App) initializeRedis() {
	app.redis = redis.NewClient(&redis.Options{
		Addr:     app.configs.Viper.GetString("redis.addr"),
		Password: app.configs.Viper.GetString("redis.password"),
		DB:       app.configs.Viper.GetInt("redis.db"),
	})
}
