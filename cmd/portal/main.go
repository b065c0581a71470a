package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"fahndungsportal/internal/config"
	"fahndungsportal/internal/fixture"
	"fahndungsportal/internal/typo3"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Fahndungsportal backend",
	Long:  "Serves the Fahndungsportal API in front of the TYPO3 CMS",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration and builds the logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, config.NewLogger(cfg.Logger), nil
}

// newCMSClient builds the transport and client, resolving the fallback
// dataset from S3 or a local file when configured.
func newCMSClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*typo3.Client, error) {
	transport, err := typo3.NewTransport(cfg.CMS.BaseURL, &http.Client{}, logger)
	if err != nil {
		return nil, err
	}

	fileLoader := fixture.NewFileLoader(logger)
	var s3Loader fixture.Loader
	if cfg.S3.Enabled {
		s3Loader, err = fixture.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
			s3Loader = nil
		}
	}
	loader := fixture.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)
	dataset := fixture.Resolve(ctx, loader, cfg.Fallback.File, logger)

	logger.Info().
		Int("fallback_items", len(dataset)).
		Bool("mock_data", cfg.CMS.UseMockData).
		Str("cms", transport.BaseURL()).
		Msg("CMS client configured")

	return typo3.NewClient(transport, typo3.ClientConfig{
		ForceMock: cfg.CMS.UseMockData,
		Fallback:  dataset,
		Timeout:   cfg.CMS.Timeout(),
	}, logger), nil
}

func isHTTPS(rawURL string) bool {
	return strings.HasPrefix(strings.ToLower(rawURL), "https://")
}
