package daemon

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

	"github.com/cloo-solutions/sanad/internal/api/handlers"
	"github.com/cloo-solutions/sanad/internal/config"
	"github.com/cloo-solutions/sanad/internal/database"
	"github.com/cloo-solutions/sanad/internal/jobs"
	"github.com/cloo-solutions/sanad/internal/metrics"
	"github.com/cloo-solutions/sanad/internal/repository"
	"github.com/cloo-solutions/sanad/internal/server"
	"github.com/spf13/cobra"
)

const reaperInterval = time.Minute

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the sanad tutor API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", database.DefaultMigrationsDir, "Directory containing migration files")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	if err := cfg.RequireOpenAI(); err != nil {
		return err
	}

	defer initTelemetry(cfg)()

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		dir, _ := cmd.Flags().GetString("migrations")
		if err := database.RunMigrations(cfg.DatabaseURL, dir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	passageRepo := repository.NewPassageRepository(pool)
	indexRepo := repository.NewIndexRepository(pool)
	turnLogRepo := repository.NewTurnLogRepository(pool)

	if manifest, err := indexRepo.GetManifest(ctx, cfg.IndexName); err != nil {
		// retrieval degrades to "no information" until the index is built
		log.Printf("index %q not available yet: %v (run 'sanadd ingest')", cfg.IndexName, err)
	} else {
		log.Printf("index %q: %d passages, embedding %s/%d", manifest.Name, manifest.PassageCount, manifest.EmbeddingModel, manifest.EmbeddingDimensions)
	}

	m := metrics.New()
	stack := buildTurnStack(cfg, newOpenAIClient(cfg), passageRepo, indexRepo, m)
	sessions := stack.sessions.WithTurnLogger(turnLogRepo)

	reaper := jobs.NewWorker("session-reaper", jobs.NewSessionReaper(sessions, cfg.SessionTTL), reaperInterval)
	go reaper.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		SessionHandler: handlers.NewSessionHandler(sessions),
		SearchHandler:  handlers.NewSearchHandler(stack.retriever),
		Metrics:        m.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	reaper.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// in-flight turns are abandoned before their handlers return
	sessions.CloseAll()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
