package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"socketDraw/configs"
	"socketDraw/internal/handlers"
	"socketDraw/internal/middleware"
)

var (
	httpServer *HttpServer
	once       sync.Once
)

type HttpServer struct {
	ctx          context.Context
	configs      *configs.Config
	redis        *redis.Client
	router       *gin.Engine
	restHandler  *handlers.RestHandler
	boardHandler *handlers.SocketBoardHandler
}

func NewHttpServer(
	ctx context.Context,
	cfg *configs.Config,
	redisClient *redis.Client,
	restHandler *handlers.RestHandler,
	boardHandler *handlers.SocketBoardHandler,
) *HttpServer {
	once.Do(func() {
		httpServer = &HttpServer{
			ctx:          ctx,
			configs:      cfg,
			redis:        redisClient,
			restHandler:  restHandler,
			boardHandler: boardHandler,
		}
	})
	return httpServer
}

// Run blocks until the process receives an interrupt.
func (hs *HttpServer) Run() {
	hs.initializeGin()
	hs.setupRoutes()

	server := hs.startServer()

	hs.waitForShutdown(server)
}

func (hs *HttpServer) initializeGin() {
	if hs.configs.Viper.GetString("app.env") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	hs.router = gin.New()
	hs.router.Use(gin.Recovery())
	hs.router.Use(requestLogger())
}

func (hs *HttpServer) setupRoutes() {
	api := hs.router.Group("/api")
	api.Use(middleware.RateLimit(
		hs.redis,
		hs.configs.Viper.GetInt("ratelimit.max"),
		hs.configs.Viper.GetDuration("ratelimit.window"),
	))
	{
		api.POST("/rooms/join", hs.restHandler.JoinRoom)
		api.GET("/rooms/:roomId", hs.restHandler.GetRoom)
	}

	hs.router.GET("/ws/board", hs.boardHandler.HandleSocketBoardRoute)
	hs.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (hs *HttpServer) startServer() *http.Server {
	addr := ":" + hs.configs.Viper.GetString("server.port")
	server := &http.Server{
		Addr:    addr,
		Handler: hs.router,
	}

	go func() {
		logrus.Infof("HTTP server started on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	return server
}

func (hs *HttpServer) waitForShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(hs.ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exiting")
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}).Info("Request handled")
	}
}
