package main

import (
	"github.com/spf13/cobra"

	"fraudcheck/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fraudcheck",
		Short: "Score payment transactions with a pre-trained fraud classifier",
		Long: `fraudcheck serves a one-page form that classifies a single payment
transaction as fraudulent or legitimate using a pre-trained tree model.

Examples:
  # Start the web form and JSON API
  fraudcheck serve --config config.yaml

  # Score one transaction from the shell
  fraudcheck predict --type TRANSFER --amount 5000 --old-balance 10000 --new-balance 5000

  # Show what the configured model artifact contains
  fraudcheck model inspect`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "config.yaml", "Path to the YAML config file")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(predictCmd())
	cmd.AddCommand(modelCmd())
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}
