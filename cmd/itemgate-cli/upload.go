package main

import (
	"os"

	"github.com/sagarc03/itemgate/clientcli"
	"github.com/spf13/cobra"
)

var (
	uploadRecursive bool
	uploadName      string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path>",
	Short: "Upload a file as an item",
	Long: `Upload a file as an item in the owner's namespace.

The item name defaults to the file's base name. Image uploads also get
PREVIEW and PREFERRED presentations when the server renders variants.

Examples:
  itemgate-cli upload ./photo.png
  itemgate-cli upload --name avatar.png ./IMG_0042.png
  itemgate-cli upload -r ./screenshots/`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "upload directory recursively")
	uploadCmd.Flags().StringVarP(&uploadName, "name", "n", "", "item name (default: file base name)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Upload(cmd.Context(), clientcli.UploadOptions{
		LocalPath: args[0],
		ItemName:  uploadName,
		Recursive: uploadRecursive,
	})
	if err != nil {
		return err
	}

	if err := getFormatter().FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasUploadErrors(results) {
		return &exitError{code: 1}
	}
	return nil
}
