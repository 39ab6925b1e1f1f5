package main

import (
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the gateway is up",
	Long: `Check that the gateway is up.

Calls the unauthenticated status route and reports the round trip.

Examples:
  itemgate-cli status
  itemgate-cli status -e https://gw.example.com/file_api`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Status(cmd.Context())
	if err != nil {
		return err
	}

	return getFormatter().FormatStatus(os.Stdout, result)
}
