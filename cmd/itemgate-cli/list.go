package main

import (
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the owner's items",
	Long: `List every item in the owner's namespace with its presentations.

Examples:
  itemgate-cli list
  itemgate-cli list --owner-name alice --owner-id 42 --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.List(cmd.Context())
	if err != nil {
		return err
	}

	return getFormatter().FormatList(os.Stdout, result)
}
