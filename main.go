package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "polling_station/docs"
	"polling_station/internal/auth"
	"polling_station/internal/handlers"
	"polling_station/internal/queue"
	"polling_station/internal/storage"
	"polling_station/internal/tasks"
	"polling_station/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @Title						Очереди избирательного участка
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Подключение к .env")
		err := godotenv.Load()
		if err != nil {
			log.Fatal("Ошибка получения .env")
		}
	}

	// Переменные читаем после загрузки .env.
	auth.AccessSecret = []byte(os.Getenv("JWT_SECRET"))
	if len(auth.AccessSecret) == 0 {
		log.Fatal("Не задан JWT_SECRET")
	}
	auth.TokenTTL = envDuration("JWT_EXPIRES_IN", time.Hour)
	storage.QueryTimeout = envDuration("DB_TIMEOUT", 5*time.Second)
	handlers.UploadDir = envString("UPLOAD_DIR", "uploads")

	storage.ConnectDatabase()

	if err := storage.Migrate(storage.DB); err != nil {
		log.Fatal("Ошибка при миграции... ", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	var publisher ws.Publisher = ws.LocalPublisher{Hub: hub}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		if err := storage.InitRedis(ctx, addr, os.Getenv("REDIS_PASSWORD")); err != nil {
			log.Fatal("Ошибка подключения к Redis: ", err)
		}
		redisPublisher := ws.NewRedisPublisher(storage.RedisClient, os.Getenv("REDIS_CHANNEL"))
		if err := redisPublisher.StartRelay(ctx, hub); err != nil {
			log.Fatal("Ошибка подписки на Redis: ", err)
		}
		publisher = redisPublisher
		log.Println("Рассылка очередей идёт через Redis", addr)
	}

	scheduler := tasks.InitScheduler(handlers.UploadDir, envDuration("UPLOAD_RETENTION", 30*24*time.Hour))
	defer scheduler.Stop()

	wsHandler := ws.NewHandler(hub, queue.NewService(storage.DB).ListAll, publisher)
	wsHandler.Timeout = storage.QueryTimeout

	r := setupRouter(wsHandler, envString("FRONTEND_URL", "http://localhost:5173"))

	srv := &http.Server{
		Addr:    ":" + envString("PORT", "3001"),
		Handler: r,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Println("Сервер запущен на", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Ошибка запуска сервера...", err.Error())
	}
	log.Println("Сервер остановлен")
}

func setupRouter(wsHandler *ws.Handler, frontendURL string) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", handlers.Login)
		authGroup.GET("/me", auth.AuthMiddleware(), handlers.Me)
	}

	queues := r.Group("/api/queues")
	{
		queues.GET("", handlers.GetQueuesHandler)
		queues.GET("/ws", wsHandler.ServeWS)
		queues.POST("/update", auth.AuthMiddleware(), handlers.UpdateQueueHandler)
	}

	private := r.Group("/api", auth.AuthMiddleware())
	{
		private.POST("/qr/generate", handlers.GenerateQRHandler)
		private.POST("/qr/verify", handlers.VerifyQRHandler)
		private.POST("/verify/face", handlers.FaceVerificationHandler)
	}

	return r
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Некорректное значение %s=%q, используется %s", key, v, def)
		return def
	}
	return d
}
