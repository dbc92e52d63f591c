package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/cache"
	"github.com/GTDGit/order_console/internal/config"
	"github.com/GTDGit/order_console/internal/database"
	"github.com/GTDGit/order_console/internal/datasource"
	"github.com/GTDGit/order_console/internal/handler"
	"github.com/GTDGit/order_console/internal/middleware"
	"github.com/GTDGit/order_console/internal/repository"
	"github.com/GTDGit/order_console/internal/service"
	"github.com/GTDGit/order_console/internal/sse"
	"github.com/GTDGit/order_console/internal/worker"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting order console api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Dataset source
	source, db, err := openSource(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("data source setup failed")
		fmt.Fprintf(os.Stderr, "data source setup failed: %v\n", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}
	log.Info().Str("source", source.Name()).Msg("data source ready")

	// 4. Session store
	var (
		sessionStore cache.SessionStore
		memoryStore  *cache.MemorySessionStore
	)
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Error().Err(err).Msg("redis connection failed")
			fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected successfully")
		sessionStore = cache.NewRedisSessionStore(redisClient)
	default:
		memoryStore = cache.NewMemorySessionStore()
		sessionStore = memoryStore
	}

	// 5. Repository, services
	hub := sse.NewHub()
	orderRepo := repository.NewOrderRepository(source, sse.NewHubNotifier(hub), cfg.SimulatedLatency)

	sessionSvc := service.NewSessionService(sessionStore, cfg)
	editors := service.NewEditorRegistry(orderRepo)

	// signing out closes the session's open editors and event streams
	unsubscribe := sessionSvc.Changes().Subscribe(func(ch service.SessionChange, _ uint64) {
		if !ch.SignedIn && ch.Token != "" {
			editors.CloseSession(ch.Token)
			hub.DisconnectSession(ch.Token)
		}
	})
	defer unsubscribe()

	// 6. Handlers and middleware
	loginLimiter := middleware.NewLoginRateLimiter(cfg.Auth.MaxFailedLogins, cfg.Auth.FailedLoginWindow)
	defer loginLimiter.Stop()

	handlers := &Handlers{
		Health:    handler.NewHealthHandler(orderRepo, sessionStore.Name(), hub.ClientCount, editors.Len),
		Auth:      handler.NewAuthHandler(sessionSvc, loginLimiter),
		Order:     handler.NewOrderHandler(orderRepo, editors),
		OrderEdit: handler.NewOrderEditHandler(editors),
		Product:   handler.NewProductHandler(orderRepo),
		SSE:       handler.NewSSEHandler(hub),
	}
	sessionMw := middleware.NewSessionMiddleware(sessionSvc)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSHosts...))
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.ErrorPresenter(sessionSvc))
	setupRoutes(router, handlers, sessionMw)

	// 7. Workers
	var sweeper worker.Sweeper
	if memoryStore != nil {
		sweeper = memoryStore
	}
	go worker.NewSessionSweepWorker(sweeper, sessionSvc, cfg.Worker.SessionSweepInterval, editors, hub).Start(ctx)

	// 8. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Order     *handler.OrderHandler
	OrderEdit *handler.OrderEditHandler
	Product   *handler.ProductHandler
	SSE       *handler.SSEHandler
}

func setupRoutes(router *gin.Engine, handlers *Handlers, sessionMw *middleware.SessionMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.POST("/v1/auth/login", handlers.Auth.Login)

	v1 := router.Group("/v1")
	v1.Use(sessionMw.Handle())
	{
		v1.POST("/auth/logout", handlers.Auth.Logout)
		v1.GET("/auth/me", handlers.Auth.Me)

		v1.GET("/products", handlers.Product.GetProducts)

		v1.GET("/orders", handlers.Order.ListOrders)
		v1.POST("/orders/view", handlers.Order.ApplyViewEvent)
		v1.GET("/orders/events", handlers.SSE.Stream)
		v1.GET("/orders/:id", handlers.Order.GetOrder)
		v1.PUT("/orders/:id", handlers.Order.UpdateOrder)
		v1.DELETE("/orders/:id", handlers.Order.DeleteOrder)

		v1.GET("/orders/:id/edit", handlers.OrderEdit.Open)
		v1.PATCH("/orders/:id/edit", handlers.OrderEdit.Update)
		v1.POST("/orders/:id/edit/items", handlers.OrderEdit.AddItem)
		v1.PATCH("/orders/:id/edit/items/:index", handlers.OrderEdit.UpdateItem)
		v1.DELETE("/orders/:id/edit/items/:index", handlers.OrderEdit.RemoveItem)
		v1.POST("/orders/:id/edit/save", handlers.OrderEdit.Save)
		v1.POST("/orders/:id/edit/cancel", handlers.OrderEdit.Cancel)
	}
}

// openSource builds the dataset source named by DATA_SOURCE. The Postgres
// source connects and migrates first and also returns the connection.
func openSource(ctx context.Context, cfg *config.Config) (datasource.Source, *sqlx.DB, error) {
	loc, err := datasource.ParseLocation(cfg.DataSource)
	if err != nil {
		return nil, nil, err
	}
	switch loc.Scheme {
	case config.DataSourcePostgres:
		conn, err := database.Connect(&cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := database.RunMigrations(conn.DB, "file://migrations"); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		log.Info().Msg("migrations completed successfully")
		return datasource.NewPostgresSource(conn), conn, nil
	case "s3":
		src, err := datasource.NewS3Source(ctx, &cfg.S3, loc.Host, loc.Path, cfg.FetchTimeout)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	case "http", "https":
		return datasource.NewHTTPSource(loc.Raw, cfg.FetchTimeout, !cfg.IsProduction()), nil, nil
	default:
		return datasource.NewFileSource(loc.Path), nil, nil
	}
}

// setupLogger configures zerolog global logger.
func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
