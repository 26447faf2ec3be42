package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"availability-backend/internal/handlers"
	"availability-backend/internal/middleware"
	"availability-backend/internal/repository"
	"availability-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on start")
	rootCmd.AddCommand(serveCmd)
}

// openDB connects to the database and checks the connection
func openDB(ctx context.Context) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")
	return db, nil
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if !skipMigrate {
		applied, err := repository.Migrate(ctx, db)
		if err != nil {
			return err
		}
		log.Info().Int("applied", applied).Msg("Migrations up to date")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	availRepo := repository.NewAvailabilityRepository(db)
	ledger := repository.NewLedger(db)

	// Initialize services
	var sender services.PushSender
	if cfg.Push.PushEnabled() {
		sender = services.NewWebPushSender(cfg.Push)
	} else {
		log.Warn().Msg("VAPID keys not configured, push notifications are disabled")
		sender = services.DisabledSender{}
	}
	dispatcher := services.NewDispatcher(subRepo, sender, cfg.Push.Concurrency)
	liveHub := services.NewLiveHub()

	voteService := services.NewVoteService(ledger, dispatcher, liveHub, cfg.Notifications.Threshold, cfg.Push.Icon, cfg.Push.Timeout)
	blockService := services.NewBlockService(ledger, liveHub, cfg.Block.BatchSize, cfg.Block.DefaultMonths, cfg.Block.MaxMonths)
	dayService := services.NewDayService(availRepo)
	pushService := services.NewPushService(userRepo, subRepo, dispatcher, cfg.Push.Icon)

	// Initialize handlers
	voteHandler := handlers.NewVoteHandler(voteService)
	dayHandler := handlers.NewDayHandler(dayService, blockService)
	pushHandler := handlers.NewPushHandler(pushService)
	wsHandler := handlers.NewWebSocketHandler(liveHub)
	healthHandler := handlers.NewHealthHandler(db)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	// Routes
	r.Get("/healthz", healthHandler.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/days", dayHandler.ListDays)
		r.Get("/days/{day}", dayHandler.GetDay)
		r.Post("/days/{day}/vote", voteHandler.CastVote)
		r.Post("/block-days", dayHandler.BlockDays)

		r.Route("/push", func(r chi.Router) {
			r.Post("/subscribe", pushHandler.Subscribe)
			r.Delete("/subscribe", pushHandler.Unsubscribe)
			r.Post("/test", pushHandler.SendTest)
			r.With(middleware.RequireBroadcaster(cfg.Push.Broadcasters)).Post("/broadcast", pushHandler.Broadcast)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let detached reminder runs and live events finish before the pool closes
	voteService.Wait()
	blockService.Wait()

	log.Info().Msg("Server exited")
	return nil
}
