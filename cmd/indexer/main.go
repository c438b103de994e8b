// Package main provides the index builder CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/samyotech/catalog-assistant/internal/config"
	"github.com/samyotech/catalog-assistant/internal/ingest"
	"github.com/samyotech/catalog-assistant/internal/llm"
	"github.com/samyotech/catalog-assistant/internal/observability"
	"github.com/samyotech/catalog-assistant/internal/store"
)

var (
	cfgFile string
	quiet   bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Build the semantic indexes the chat API searches",
	Long: `Indexer reads every record collection, embeds the catalog content,
and writes one semantic index file per collection into the vector store
directory. Run it after catalog changes; the chat API picks up rebuilt
indexes without a restart.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logLevel := cfg.Observability.LogLevel
		if quiet {
			logLevel = "error"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       logLevel,
			Format:      "console",
			ServiceName: "indexer",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress log output")

	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newListCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newBuildCmd() *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Rebuild semantic indexes from the record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			recordStore, err := store.NewMongoStore(ctx, store.MongoConfig{
				URI:            cfg.Mongo.URI,
				Database:       cfg.Mongo.Database,
				ConnectTimeout: cfg.Mongo.ConnectTimeout,
				QueryTimeout:   cfg.Mongo.QueryTimeout,
			})
			if err != nil {
				return fmt.Errorf("connect record store: %w", err)
			}
			defer func() {
				_ = recordStore.Close(context.Background())
			}()

			embedder, err := llm.NewEmbeddingClient(llm.EmbeddingConfig{
				APIKey:    cfg.LLM.APIKey,
				BaseURL:   cfg.LLM.BaseURL,
				Model:     cfg.LLM.EmbeddingModel,
				Dimension: cfg.VectorStore.Dimension,
				Timeout:   cfg.LLM.Timeout,
			})
			if err != nil {
				return fmt.Errorf("create embedding client: %w", err)
			}

			var bar *progressbar.ProgressBar
			builder := ingest.NewBuilder(logger, recordStore, embedder, ingest.Config{
				Dir:       cfg.VectorStore.Dir,
				Model:     cfg.LLM.EmbeddingModel,
				Dimension: cfg.VectorStore.Dimension,
				Progress: func(category string, done, total int) {
					if done == 0 {
						bar = progressbar.NewOptions(total,
							progressbar.OptionSetDescription(category),
							progressbar.OptionShowCount(),
							progressbar.OptionClearOnFinish(),
						)
						return
					}
					if bar != nil {
						_ = bar.Set(done)
					}
				},
			})

			if only != "" {
				result := builder.Build(ctx, only)
				printResult(result)
				if result.Err != nil {
					return fmt.Errorf("build %s: %w", only, result.Err)
				}
				return nil
			}

			results, err := builder.BuildAll(ctx)
			if err != nil {
				return err
			}

			failed := 0
			for _, result := range results {
				printResult(result)
				if result.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d collections failed", failed, len(results))
			}
			color.Green("All %d indexes built into %s", len(results), cfg.VectorStore.Dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&only, "collection", "", "rebuild only this collection")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexable record collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			recordStore, err := store.NewMongoStore(ctx, store.MongoConfig{
				URI:            cfg.Mongo.URI,
				Database:       cfg.Mongo.Database,
				ConnectTimeout: cfg.Mongo.ConnectTimeout,
				QueryTimeout:   cfg.Mongo.QueryTimeout,
			})
			if err != nil {
				return fmt.Errorf("connect record store: %w", err)
			}
			defer func() {
				_ = recordStore.Close(context.Background())
			}()

			categories, err := recordStore.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("list collections: %w", err)
			}

			for _, category := range categories {
				n, err := recordStore.Count(ctx, category)
				if err != nil {
					color.Red("%s (count failed: %v)", category, err)
					continue
				}
				fmt.Printf("%s (%d records)\n", category, n)
			}
			return nil
		},
	}
}

func printResult(result ingest.Result) {
	switch {
	case result.Err != nil:
		color.Red("✗ %s: %v", result.Category, result.Err)
	case result.Skipped > 0:
		color.Yellow("✓ %s: %d indexed, %d skipped (empty text)", result.Category, result.Indexed, result.Skipped)
	default:
		color.Green("✓ %s: %d indexed", result.Category, result.Indexed)
	}
}
