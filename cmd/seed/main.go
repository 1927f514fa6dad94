package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apnedoctors/minirag/internal/config"
	"github.com/apnedoctors/minirag/internal/embedding"
	"github.com/apnedoctors/minirag/internal/knowledge"
	"github.com/apnedoctors/minirag/internal/seeder"
	"github.com/apnedoctors/minirag/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	sourceEmbedded    = "embedded"
	sourceMedlinePlus = "medlineplus"
	sourceFile        = "file"
)

// Command line flags
var (
	source    = flag.String("source", sourceEmbedded, "Where entries come from: embedded, medlineplus or file")
	inputFile = flag.String("file", "", "Corpus JSON to load when -source=file")
	output    = flag.String("output", "", "Write the collected entries to this corpus JSON file")
	dryRun    = flag.Bool("dry-run", false, "Don't write to the vector store, just print what would be added")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	pageLimit = flag.Int("limit", 0, "Limit number of topics to crawl (0 = all)")
	delay     = flag.Duration("delay", 2*time.Second, "Delay between requests")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.InitLogger(cfg.Logging.Level, "text")
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithField("source", *source).Info("Starting knowledge seeder...")

	entries, err := collect(ctx, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to collect entries")
	}

	// validates against the corpus schema even when nothing is written
	data, err := knowledge.MarshalCorpus(time.Now().Format("2006.01.02"), entries)
	if err != nil {
		logger.WithError(err).Fatal("Collected entries are not a valid corpus")
	}

	if *output != "" {
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			logger.WithError(err).Fatal("Failed to write corpus file")
		}
		logger.WithField("path", *output).Info("Corpus written")
	}

	if *dryRun {
		for _, e := range entries {
			logger.WithFields(logrus.Fields{
				"id":       e.ID,
				"name":     e.Name,
				"urgency":  e.Urgency,
				"symptoms": len(e.Symptoms),
			}).Info("DRY RUN: Would add entry")
		}
		return
	}

	if err := cfg.ValidateEmbedding(); err != nil {
		logger.WithError(err).Fatal("Embedding configuration validation failed")
	}

	if err := upload(ctx, cfg, entries, logger); err != nil {
		logger.WithError(err).Fatal("Seeding failed")
	}

	logger.Info("Knowledge seeding completed successfully!")
}

func collect(ctx context.Context, logger *logrus.Logger) ([]knowledge.Entry, error) {
	switch *source {
	case sourceEmbedded:
		return knowledge.SeedCorpus()
	case sourceFile:
		if *inputFile == "" {
			return nil, fmt.Errorf("-file is required with -source=file")
		}
		data, err := os.ReadFile(*inputFile)
		if err != nil {
			return nil, err
		}
		return knowledge.ParseCorpus(data)
	case sourceMedlinePlus:
		crawlerConfig := seeder.DefaultCrawlerConfig()
		crawlerConfig.Delay = *delay
		crawler := seeder.NewCrawler(crawlerConfig, logger)

		entries, errs := crawler.Crawl(ctx, seeder.MedlinePlusTopics, *pageLimit)
		for _, err := range errs {
			logger.WithError(err).Warn("Processing error")
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("no topics could be processed")
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unknown source %q", *source)
	}
}

// upload adds entries to the configured vector store. A store that does not
// exist yet is created with the built-in corpus first.
func upload(ctx context.Context, cfg *config.Config, entries []knowledge.Entry, logger *logrus.Logger) error {
	encoder, err := embedding.NewEncoder(embedding.Config{
		Provider:  cfg.Embedding.Provider,
		Dimension: cfg.Embedding.Dimension,
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		Timeout:   cfg.Embedding.Timeout,
	}, logger)
	if err != nil {
		return err
	}

	seed, err := knowledge.SeedCorpus()
	if err != nil {
		return err
	}

	retriever := knowledge.NewRetriever(knowledge.Config{
		PersistPath: cfg.VectorStore.PersistPath,
		Collection:  cfg.VectorStore.Collection,
		Compress:    cfg.VectorStore.Compress,
		TopK:        cfg.VectorStore.TopK,
	}, encoder, seed, logger)

	if err := retriever.Initialize(ctx); err != nil {
		return err
	}
	before := retriever.Count()

	if err := retriever.AddEntries(ctx, entries); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"submitted": len(entries),
		"before":    before,
		"after":     retriever.Count(),
	}).Info("Entries upserted")
	return nil
}
