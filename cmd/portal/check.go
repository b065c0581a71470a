package main

import (
	"context"
	"fmt"
	"time"

	"fahndungsportal/internal/typo3"

	"github.com/spf13/cobra"
)

var flagCheckTimeout time.Duration

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().DurationVar(&flagCheckTimeout, "timeout", 20*time.Second, "Overall time limit for the check")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the CMS is reachable",
	Long:  "Calls the CMS health endpoint and fetches one listing page",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), flagCheckTimeout)
		defer cancel()

		client, err := newCMSClient(ctx, cfg, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		health, err := client.Health(ctx)
		if err != nil {
			return fmt.Errorf("CMS health check failed: %w", err)
		}
		fmt.Fprintf(out, "health:   %s (version %s)\n", health.Status, health.Version)

		res, err := client.ListFahndungen(ctx, typo3.ListParams{Page: 1, PageSize: 1})
		if err != nil {
			return fmt.Errorf("listing check failed: %w", err)
		}
		if res.Fallback {
			fmt.Fprintf(out, "listing:  fallback (%s)\n", res.Reason)
			return fmt.Errorf("listing is served from the fallback dataset")
		}
		fmt.Fprintf(out, "listing:  ok (%d total)\n", res.Response.Meta.Total)
		return nil
	},
}
