package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cloo-solutions/sanad/internal/config"
	"github.com/cloo-solutions/sanad/internal/database"
	"github.com/cloo-solutions/sanad/internal/repository"
	"github.com/cloo-solutions/sanad/internal/service"
	"github.com/cloo-solutions/sanad/internal/storage"
	"github.com/spf13/cobra"
)

type ingestOptions struct {
	s3Key     string
	upload    bool
	indexName string
	migrate   bool
	dir       string
}

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Build the passage index from a source document",
		Long: `Extract text from a PDF, markdown or text document, split it into overlapping
passages, embed each passage and replace the index in Postgres.

The source is either a local file or an object key in the configured S3 bucket
(--s3-key). With --upload a local file is archived to S3 before indexing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			return runIngest(cmd.Context(), file, opts)
		},
	}

	cmd.Flags().StringVar(&opts.s3Key, "s3-key", "", "Object key of the source document in S3")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "Upload the local file to S3 before indexing")
	cmd.Flags().StringVar(&opts.indexName, "index", "", "Index name (defaults to SANAD_INDEX_NAME)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", true, "Apply database migrations before indexing")
	cmd.Flags().StringVar(&opts.dir, "migrations", database.DefaultMigrationsDir, "Directory containing migration files")

	return cmd
}

func runIngest(ctx context.Context, file string, opts *ingestOptions) error {
	if (file == "") == (opts.s3Key == "") {
		return fmt.Errorf("provide exactly one of a file argument or --s3-key")
	}
	if opts.upload && file == "" {
		return fmt.Errorf("--upload requires a local file")
	}

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
	if opts.indexName != "" {
		cfg.IndexName = opts.indexName
	}

	defer initTelemetry(cfg)()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.migrate {
		if err := database.RunMigrations(cfg.DatabaseURL, opts.dir); err != nil {
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

	writer := service.NewTxIndexWriter(repository.NewTxRunner(pool))
	indexer := service.NewIndexer(newOpenAIClient(cfg), writer, cfg.IndexName, service.NewChunkConfig(cfg.ChunkSize, cfg.ChunkOverlap))

	if opts.s3Key != "" || opts.upload {
		s3Client, err := newS3Client(ctx, cfg)
		if err != nil {
			return err
		}
		indexer = indexer.WithSources(s3Client)

		if opts.upload {
			key, err := uploadSource(ctx, s3Client, file)
			if err != nil {
				return err
			}
			log.Printf("uploaded %s to s3://%s/%s", file, s3Client.Bucket(), key)
		}
	}

	var stats *service.IndexStats
	if opts.s3Key != "" {
		stats, err = indexer.IndexObject(ctx, opts.s3Key)
	} else {
		stats, err = indexer.IndexFile(ctx, file)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("Indexed %s into %q: %d pages, %d passages in %s\n",
		stats.Source, stats.IndexName, stats.Pages, stats.Passages, stats.Duration.Round(time.Millisecond))
	return nil
}

func newS3Client(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	if !cfg.HasS3() {
		return nil, fmt.Errorf("S3 not configured: set SANAD_S3_ENDPOINT, SANAD_S3_ACCESS_KEY_ID and SANAD_S3_SECRET_ACCESS_KEY")
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	return client, nil
}

// sourceKey is the object key a local source is archived under.
func sourceKey(file string) string {
	return "sources/" + filepath.Base(file)
}

func uploadSource(ctx context.Context, client *storage.S3Client, file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	key := sourceKey(file)
	if err := client.Upload(ctx, key, data, storage.ContentTypeFor(file)); err != nil {
		return "", fmt.Errorf("failed to upload source: %w", err)
	}
	return key, nil
}
