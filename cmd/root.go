package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/DhruvParmar051/book-recommendation-system/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bookrec",
		Short: "Library catalogue enrichment and book recommendations",
		Long: `Bookrec enriches a library catalogue export with metadata from public
bibliographic sources and serves hybrid semantic book recommendations.

A typical pipeline is enrich -> load -> index -> serve.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = opts.logLevel
			}
			opts.cfg = cfg
			return setupLogging(cfg.Log.Level)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config file (default $BOOKREC_CONFIG or ./bookrec.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Add subcommands
	cmd.AddCommand(newEnrichCmd(opts))
	cmd.AddCommand(newLoadCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newRecommendCmd(opts))
	cmd.AddCommand(newReportCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

func setupLogging(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}
