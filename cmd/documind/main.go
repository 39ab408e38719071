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
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/documind"
	"github.com/poiesic/documind/ai"
	"github.com/poiesic/documind/core"
	"github.com/poiesic/documind/ingestion"
	"github.com/poiesic/documind/search"
)

func main() {
	app := &cli.App{
		Name:  "documind",
		Usage: "Local-first semantic document retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:     "db",
				Aliases:  []string{"d"},
				Usage:    "Path to BadgerDB database directory",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Remote embedding service host URL (empty runs local-only)",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Remote embedding model name",
				Value: "text-embedding-3-small",
			},
			&cli.StringFlag{
				Name:    "api-token",
				Usage:   "API token for the remote embedding service",
				Value:   "none",
				EnvVars: []string{"DOCUMIND_API_TOKEN"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Chunk, embed and index a document from a file or stdin",
				ArgsUsage: "[file]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Document ID (generated when omitted)",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Tag to attach to the document (repeatable)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a similarity query over the index",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score (0..1)",
						Value: 0.25,
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Restrict results to documents carrying the tag (repeatable)",
					},
					&cli.StringFlag{
						Name:  "document",
						Usage: "Restrict results to a single document ID",
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Bypass the semantic response cache",
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove a document and its vectors from the index",
				ArgsUsage: "<document-id>",
				Action:    deleteCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show index size, cache occupancy and operation counters",
				Action: statsCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate every stored vector with the preferred provider",
				Action: reembedCommand,
			},
			{
				Name:   "purge-cache",
				Usage:  "Drop every cached search response",
				Action: purgeCacheCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDatabase(c *cli.Context) (*documind.Database, error) {
	opts := []documind.DatabaseOption{}

	host := c.String("embedding-host")
	if host == "" {
		opts = append(opts, documind.WithLocalOnly())
	} else {
		opts = append(opts, documind.WithAIConfig(ai.NewConfig(
			ai.WithRemoteHost(host),
			ai.WithRemoteModel(c.String("embedding-model")),
			ai.WithAPIToken(c.String("api-token")),
		)))
	}

	return documind.Open(c.String("db"), opts...)
}

func ingestCommand(c *cli.Context) error {
	var text []byte
	var err error
	filename := ""

	if c.Args().Len() > 0 {
		filename = c.Args().First()
		text, err = os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filename, err)
		}
	} else {
		text, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	docID := c.String("id")
	if docID == "" {
		docID = uuid.NewString()
	}

	title := c.String("title")
	if title == "" && filename != "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	n, err := db.Ingest(c.Context, docID, string(text), &ingestion.Metadata{
		Title:    title,
		Filename: filepath.Base(filename),
		Tags:     c.StringSlice("tag"),
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Indexed %d chunks as document %s\n", n, docID)
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("query is required")
	}
	query := strings.Join(c.Args().Slice(), " ")

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	resp, err := db.Search(c.Context, search.Request{
		Query:     query,
		Limit:     c.Int("limit"),
		Threshold: float32(c.Float64("threshold")),
		Filters: core.Filters{
			DocumentID: c.String("document"),
			Tags:       c.StringSlice("tag"),
		},
		UseCache: !c.Bool("no-cache"),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	source := "index"
	if resp.CacheHit {
		source = "cache"
	}
	fmt.Printf("%d results in %s (%s, %s provider)\n\n",
		resp.Total, resp.Elapsed.Round(time.Millisecond), source, resp.Provider)

	for _, result := range resp.Results {
		fmt.Printf("%2d. [%.4f] %s", result.Rank, result.Score, result.DocumentID)
		if result.Title != "" {
			fmt.Printf(" (%s)", result.Title)
		}
		fmt.Println()
		fmt.Printf("    %s\n\n", snippet(result.Content, 200))
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("document ID is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	removed, err := db.DeleteDocument(c.Context, c.Args().First())
	if err != nil {
		return fmt.Errorf("deletion failed: %w", err)
	}
	if !removed {
		fmt.Println("Document not found")
		return nil
	}
	fmt.Println("Document deleted")
	return nil
}

func statsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	stats, err := db.Stats(c.Context)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	fmt.Printf("Documents:        %d\n", stats.TotalDocuments)
	fmt.Printf("Vectors:          %d\n", stats.TotalVectors)
	fmt.Printf("Cached responses: %d\n", stats.CacheSize)
	fmt.Printf("Remote provider:  configured=%t available=%t\n",
		stats.RemoteConfigured, stats.RemoteAvailable)

	if len(stats.Counters) > 0 {
		fmt.Println("\nCounters:")
		names := make([]string, 0, len(stats.Counters))
		for name := range stats.Counters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-20s %d\n", name, stats.Counters[name])
		}
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	n, err := db.Reembed(c.Context)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Printf("Refreshed %d vectors\n", n)
	return nil
}

func purgeCacheCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	n, err := db.PurgeCache(c.Context)
	if err != nil {
		return fmt.Errorf("cache purge failed: %w", err)
	}
	fmt.Printf("Dropped %d cached responses\n", n)
	return nil
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
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
