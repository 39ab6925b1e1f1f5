package main

import (
	"os"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/clientcli"
	"github.com/spf13/cobra"
)

var (
	fetchOutput       string
	fetchStdout       bool
	fetchPresentation string
	fetchType         string
	fetchBase64       bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <item-name> [local-path]",
	Short: "Fetch one presentation of an item",
	Long: `Fetch one presentation of an item.

PREVIEW and PREFERRED only exist for images. The item type only appears
in the URL; the server does not check it.

Examples:
  itemgate-cli fetch notes.txt
  itemgate-cli fetch photo.png ./thumb.png --presentation PREVIEW
  itemgate-cli fetch --stdout --base64 photo.png`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output file path")
	fetchCmd.Flags().BoolVar(&fetchStdout, "stdout", false, "write to stdout")
	fetchCmd.Flags().StringVarP(&fetchPresentation, "presentation", "P", string(itemgate.PresentationOriginal), "presentation: ORIGINAL, PREVIEW or PREFERRED")
	fetchCmd.Flags().StringVar(&fetchType, "type", itemgate.ItemTypeUnknown, "item type path segment")
	fetchCmd.Flags().BoolVar(&fetchBase64, "base64", false, "request base64-encoded content")
}

func runFetch(cmd *cobra.Command, args []string) error {
	localPath := ""
	if len(args) > 1 {
		localPath = args[1]
	}
	if fetchOutput != "" {
		localPath = fetchOutput
	}
	if fetchStdout {
		localPath = "-"
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, reader, err := client.Fetch(cmd.Context(), clientcli.FetchOptions{
		ItemName:     args[0],
		ItemType:     fetchType,
		Presentation: fetchPresentation,
		Base64:       fetchBase64,
		LocalPath:    localPath,
	})
	if err != nil {
		return err
	}

	if reader != nil {
		defer func() { _ = reader.Close() }()
		if err := writeTo(os.Stdout, reader); err != nil {
			return err
		}
		// Metadata goes to stderr so the content stays clean.
		if jsonOutput {
			return getFormatter().FormatFetch(os.Stderr, result)
		}
		return nil
	}

	return getFormatter().FormatFetch(os.Stdout, result)
}
