package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // Драйвер PostgreSQL

	"github.com/docshub/server/internal/cache"
	"github.com/docshub/server/internal/handlers"
	appmiddleware "github.com/docshub/server/internal/middleware"
	"github.com/docshub/server/internal/notify"
	"github.com/docshub/server/internal/repository"
	"github.com/docshub/server/internal/services"
	"github.com/docshub/server/internal/storage"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second

	shutdownTimeout = 10 * time.Second

	// Параметры кэша навигации.
	navCacheSize = 1024
	navCacheTTL  = 15 * time.Minute

	// Размер очереди рассылки уведомлений.
	fanoutQueueSize = 1024

	// Переменные окружения для MinIO (значения по умолчанию из docker-compose).
	envMinioEndpoint     = "MINIO_ENDPOINT"
	envMinioUser         = "MINIO_USER"
	envMinioPassword     = "MINIO_PASSWORD"
	envMinioBucket       = "MINIO_BUCKET"
	defaultMinioEndpoint = "localhost:9000"
	defaultMinioUser     = "minioadmin"
	defaultMinioPassword = "minioadmin"
	defaultMinioBucket   = "docshub-files"
	minioUseSSL          = false // Для локальной разработки
)

// Подменяется в тестах.
var newPostgresDB = repository.NewPostgresDB

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db                  *sqlx.DB
	fanout              *notify.Fanout
	contentHandler      *handlers.ContentHandler
	subscriptionHandler *handlers.SubscriptionHandler
	adminHandler        *handlers.AdminHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	// .env опционален, в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используются переменные окружения")
	}

	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	log.Println("Запуск сервера DocsHub...")

	// Инициализация зависимостей
	deps, err := setupDependencies(cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	defer func() {
		if deps.db != nil {
			if closeErr := deps.db.Close(); closeErr != nil {
				log.Printf("Ошибка закрытия соединения с БД: %v", closeErr)
			}
		}
	}()
	// Дожидаемся доставки уведомлений, поставленных в очередь до остановки
	defer deps.fanout.Close()

	// Настройка роутера
	r := setupRouter(cfg.JWTSecret, deps.contentHandler, deps.subscriptionHandler, deps.adminHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	// Грейсфул-шатдаун по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if cfg.CertFile != "" {
			log.Printf("Запуск HTTPS-сервера на порту %s...", cfg.Port)
			errCh <- server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
			return
		}
		log.Printf("Запуск HTTP-сервера на порту %s...", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Println("Получен сигнал остановки, завершаем работу...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("ошибка остановки сервера: %w", shutdownErr)
		}
	case err = <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка запуска сервера: %w", err)
		}
	}
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(cfg *config) (*dependencies, error) {
	deps := &dependencies{}
	var err error

	// 1. Подключение к БД
	deps.db, err = newPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}
	log.Println("Соединение с БД успешно установлено.")

	// 2. Инициализация клиента MinIO
	minioCfg := storage.MinioConfig{
		Endpoint:        getEnv(envMinioEndpoint, defaultMinioEndpoint),
		AccessKeyID:     getEnv(envMinioUser, defaultMinioUser),
		SecretAccessKey: getEnv(envMinioPassword, defaultMinioPassword),
		UseSSL:          minioUseSSL,
		BucketName:      getEnv(envMinioBucket, defaultMinioBucket),
	}
	fileStorage, err := storage.NewMinioClient(minioCfg)
	if err != nil {
		if dbCloseErr := deps.db.Close(); dbCloseErr != nil {
			log.Printf("Ошибка закрытия соединения с БД при ошибке MinIO: %v", dbCloseErr)
		}
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	// 3. Создание репозиториев
	nodeRepo := repository.NewPostgresNodeRepository(deps.db)
	versionRepo := repository.NewPostgresVersionRepository(deps.db)
	subscriptionRepo := repository.NewPostgresSubscriptionRepository(deps.db)

	// 4. Кэш навигации и сервисы чтения
	navCache := cache.New(navCacheSize, navCacheTTL)
	contentService := services.NewContentService(nodeRepo, versionRepo, navCache)
	searchService := services.NewSearchService(nodeRepo)
	subscriptionService := services.NewSubscriptionService(nodeRepo, subscriptionRepo)

	// 5. Рассылка уведомлений о новых версиях
	sink := notify.NewBotAPISink(cfg.BotGatewayURL, cfg.BotToken)
	deps.fanout = notify.NewFanout(subscriptionService, sink, cfg.FanoutWorkers, fanoutQueueSize)

	// 6. Сервис мутаций дерева
	treeService := services.NewTreeService(nodeRepo, versionRepo, fileStorage, contentService, deps.fanout)

	// 7. Создание обработчиков
	deps.contentHandler = handlers.NewContentHandler(contentService, searchService, treeService, fileStorage)
	deps.subscriptionHandler = handlers.NewSubscriptionHandler(subscriptionService)
	deps.adminHandler = handlers.NewAdminHandler(treeService)

	return deps, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(
	jwtSecret string,
	contentHandler *handlers.ContentHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	adminHandler *handlers.AdminHandler,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Маршруты --- //
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	r.Route("/api", func(r chi.Router) {
		// Все маршруты требуют аутентификации
		r.Use(appmiddleware.Authenticator(jwtSecret))

		// Навигация и чтение документов
		r.Get("/navigation", contentHandler.GetNavigation)
		r.Get("/node/{id}", contentHandler.GetNode)
		r.Get("/document/{id}", contentHandler.GetDocument)
		r.Get("/document/{id}/download", contentHandler.DownloadDocument)
		r.Post("/document/{id}/delivery-handle", contentHandler.SetDeliveryHandle)
		r.Get("/search", contentHandler.Search)

		// Подписки
		r.Get("/subscription/{id}", subscriptionHandler.GetState)
		r.Post("/subscription/{id}/toggle", subscriptionHandler.Toggle)

		// Административные операции над деревом
		r.Route("/admin", func(r chi.Router) {
			r.Use(appmiddleware.RequireAdmin)

			r.Post("/node", adminHandler.CreateNode)
			r.Patch("/node/{id}/move", adminHandler.MoveNode)
			r.Delete("/node/{id}", adminHandler.DeleteNode)
			r.Post("/node/{id}/publish", adminHandler.PublishVersion)
			r.Get("/node/{id}/versions", adminHandler.ListVersions)
			r.Post("/rebuild", adminHandler.Rebuild)
		})
	})
	return r
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	log.Printf("Переменная окружения '%s' не установлена, используется значение по умолчанию: '%s'", key, fallback)
	return fallback
}
