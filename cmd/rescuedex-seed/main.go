package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/app"
	"github.com/kailas-cloud/rescuedex/internal/config"
	logpkg "github.com/kailas-cloud/rescuedex/internal/logger"
	"github.com/kailas-cloud/rescuedex/internal/metrics"
	"github.com/kailas-cloud/rescuedex/internal/usecase/ingest"
	"github.com/kailas-cloud/rescuedex/internal/version"
)

var (
	flagConfig    string
	flagFile      string
	flagReplace   bool
	flagBatchSize int
)

var rootCmd = &cobra.Command{
	Use:          "rescuedex-seed",
	Short:        "Load and inspect the rescuedex survivor catalog",
	SilenceUsage: true,
	Version:      version.String(),
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ingest a YAML catalog, embedding skills that carry no vector",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Print the vocabulary the classifier sees",
	Args:  cobra.NoArgs,
	RunE:  runVocab,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: config/<ENV>.yaml)")
	seedCmd.Flags().StringVar(&flagFile, "file", "config/catalog.yaml", "Catalog YAML to ingest")
	seedCmd.Flags().BoolVar(&flagReplace, "replace", false, "Clear the existing catalog before writing")
	seedCmd.Flags().IntVar(&flagBatchSize, "batch-size", ingest.DefaultBatchSize, "Texts per embedding request")
	rootCmd.AddCommand(seedCmd, vocabCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *zap.Logger, error) {
	env := config.GetEnv()
	var (
		cfg config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	file, err := ingest.LoadFile(flagFile)
	if err != nil {
		return err
	}

	metrics.RegisterEmbeddingMetrics()

	res, err := app.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close()

	embedders := app.BuildEmbedders(cfg.Embedding, res.Store, logger)
	svc := ingest.New(res.Catalog, embedders.Document, logger).WithBatchSize(flagBatchSize)

	rep, err := svc.Ingest(cmd.Context(), file, flagReplace)
	if err != nil {
		return fmt.Errorf("seed %s: %w", flagFile, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d survivors, %d skills (%d embedded, %d tokens) into %s catalog\n",
		rep.Entities, rep.Attributes, rep.Embedded, rep.Tokens, cfg.Catalog.Driver)
	return nil
}

func runVocab(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	res, err := app.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close()

	v, err := res.Catalog.Vocabulary(cmd.Context())
	if err != nil {
		return fmt.Errorf("load vocabulary: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "skills:     %s\n", strings.Join(v.Attributes(), ", "))
	fmt.Fprintf(out, "categories: %s\n", strings.Join(v.Categories(), ", "))
	fmt.Fprintf(out, "biomes:     %s\n", strings.Join(v.Locations(), ", "))
	fmt.Fprintf(out, "survivors:  %s\n", strings.Join(v.Entities(), ", "))
	return nil
}
