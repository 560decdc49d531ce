// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docvec"
	"github.com/poiesic/docvec/ai"
	"github.com/poiesic/docvec/core"
	"github.com/poiesic/docvec/ingest"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// connectionFlags are shared by every command that opens the pipeline.
func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "chroma-url",
			Usage: "Chroma server URL",
			Value: "http://localhost:8000",
		},
		&cli.StringFlag{
			Name:  "collection",
			Usage: "Chroma collection name",
			Value: "documents",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
	}
}

func ingestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "max-chunk-tokens",
			Usage: "Token budget per chunk",
			Value: 1000,
		},
		&cli.IntFlag{
			Name:  "overlap-tokens",
			Usage: "Token overlap between adjacent chunks",
			Value: 200,
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of chunks to embed and insert per batch",
			Value: 10,
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum attempts for documents and failed operations",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: 2 * time.Second,
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docvec",
		Usage: "Resilient document chunking and ingestion for vector search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "scan",
				Usage:  "Enqueue unprocessed *.txt documents under a root directory",
				Action: scanCommand,
				Flags: append(connectionFlags(),
					&cli.StringFlag{
						Name:     "root",
						Aliases:  []string{"r"},
						Usage:    "Document root directory",
						Required: true,
					},
				),
			},
			{
				Name:   "work",
				Usage:  "Drain the work queue, ingesting documents into the vector store",
				Action: workCommand,
				Flags: append(append(connectionFlags(), ingestFlags()...),
					&cli.StringFlag{
						Name:     "root",
						Aliases:  []string{"r"},
						Usage:    "Document root directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max-iterations",
						Usage: "Maximum documents to process this run (0 = until empty)",
						Value: 0,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent workers",
						Value: 1,
					},
				),
			},
			{
				Name:      "ingest-file",
				Usage:     "Ingest a single file, bypassing the queue; exits non-zero on failure",
				ArgsUsage: "<path>",
				Action:    ingestFileCommand,
				Flags:     append(connectionFlags(), ingestFlags()...),
			},
			{
				Name:   "status",
				Usage:  "Show queue, checkpoint and store counts",
				Action: statusCommand,
				Flags:  connectionFlags(),
			},
			{
				Name:      "remove",
				Usage:     "Remove a document's chunks from the vector store",
				ArgsUsage: "<doc-id>",
				Action:    removeCommand,
				Flags:     connectionFlags(),
			},
			{
				Name:      "reingest",
				Usage:     "Remove a document's chunks, clear its checkpoint and enqueue it again",
				ArgsUsage: "<doc-id>",
				Action:    reingestCommand,
				Flags:     connectionFlags(),
			},
		},
	}
}

// openPipeline builds a Pipeline from command flags.
func openPipeline(c *cli.Context) (*docvec.Pipeline, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []docvec.PipelineOption{
		docvec.WithAIConfig(aiConfig),
		docvec.WithChroma(c.String("chroma-url"), c.String("collection")),
	}

	if c.IsSet("max-chunk-tokens") || c.IsSet("batch-size") || c.IsSet("max-retries") ||
		c.IsSet("overlap-tokens") || c.IsSet("retry-delay") {
		opts = append(opts, docvec.WithIngestConfig(ingest.NewConfig(
			ingest.WithMaxChunkTokens(c.Int("max-chunk-tokens")),
			ingest.WithOverlapTokens(c.Int("overlap-tokens")),
			ingest.WithBatchSize(c.Int("batch-size")),
			ingest.WithMaxAttempts(c.Int("max-retries")),
			ingest.WithRetryBaseDelay(c.Duration("retry-delay")),
		)))
	}

	pipeline, err := docvec.Open(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open pipeline: %w", err)
	}
	return pipeline, nil
}

func scanCommand(c *cli.Context) error {
	ctx := context.Background()

	pipeline, err := openPipeline(c)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	scanner, err := pipeline.NewScanner(c.String("root"))
	if err != nil {
		return err
	}

	report, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Printf("Found:    %d\n", report.Found)
	fmt.Printf("Enqueued: %d\n", report.Enqueued)
	fmt.Printf("Skipped:  %d (already processed)\n", report.Skipped)
	return nil
}

func workCommand(c *cli.Context) error {
	ctx := context.Background()

	pipeline, err := openPipeline(c)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if err := pipeline.Store().EnsureCollection(ctx); err != nil {
		return fmt.Errorf("vector store not ready: %w", err)
	}

	// Entries orphaned by a crashed run go back to pending before we start.
	recovered, err := pipeline.QueueRepository().Recover(ctx)
	if err != nil {
		return fmt.Errorf("queue recovery failed: %w", err)
	}
	if recovered > 0 {
		fmt.Fprintf(os.Stderr, "Recovered %d orphaned entries\n", recovered)
	}

	runner, err := pipeline.NewRunner(c.String("root"))
	if err != nil {
		return err
	}

	report, err := runner.RunParallel(ctx, c.Int("workers"), c.Int("max-iterations"))
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Printf("Processed: %d\n", report.Processed)
	fmt.Printf("Completed: %d\n", report.Completed)
	fmt.Printf("Failed:    %d\n", report.Failed)
	return nil
}

func ingestFileCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one argument: <path>")
	}
	path := c.Args().First()

	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	pipeline, err := openPipeline(c)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if err := pipeline.Store().EnsureCollection(ctx); err != nil {
		return fmt.Errorf("vector store not ready: %w", err)
	}

	worker, err := pipeline.NewWorker()
	if err != nil {
		return err
	}
	splitter, err := pipeline.NewSplitter()
	if err != nil {
		return err
	}

	outcome, err := worker.Ingest(ctx, path, string(text))
	if err == nil {
		fmt.Printf("Ingested %d chunks (%d inserted, %d already present)\n",
			outcome.Chunks, outcome.Inserted, outcome.Skipped)
		return nil
	}
	if !errors.Is(err, ingest.ErrDocumentTooLarge) {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	report, err := splitter.Ingest(ctx, path, string(text))
	if err != nil {
		return fmt.Errorf("recursive ingestion failed: %w", err)
	}
	fmt.Printf("Ingested recursively: %d segments stored, %d skipped\n",
		report.Ingested, report.Skipped)
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	pipeline, err := openPipeline(c)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	status, err := pipeline.Status(ctx)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	fmt.Println("Queue:")
	for _, state := range []core.QueueState{core.StatePending, core.StateProcessing, core.StateCompleted, core.StateFailed} {
		fmt.Printf("  %-10s %d\n", state.String()+":", status.Queue[state])
	}
	fmt.Println("Checkpoint:")
	fmt.Printf("  processed: %d\n", status.Processed)
	fmt.Printf("  skipped:   %d\n", status.Skipped)
	if status.StoreAlive {
		fmt.Printf("Store: %d records\n", status.StoreCount)
	} else {
		fmt.Println("Store: unreachable")
	}
	return nil
}

func removeCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one argument: <doc-id>")
	}
	docID := c.Args().First()

	pipeline, err := openPipeline(c)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if err := pipeline.Store().EnsureCollection(ctx); err != nil {
		return fmt.Errorf("vector store not ready: %w", err)
	}

	removed, err := pipeline.RemoveDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	fmt.Printf("Removed %d chunks of %s\n", removed, docID)
	return nil
}

func reingestCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one argument: <doc-id>")
	}
	docID := c.Args().First()

	pipeline, err := openPipeline(c)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if err := pipeline.Store().EnsureCollection(ctx); err != nil {
		return fmt.Errorf("vector store not ready: %w", err)
	}

	if err := pipeline.ReingestDocument(ctx, docID); err != nil {
		return fmt.Errorf("reingest failed: %w", err)
	}
	fmt.Printf("Queued %s for re-ingestion\n", docID)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
