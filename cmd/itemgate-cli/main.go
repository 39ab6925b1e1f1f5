package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sagarc03/itemgate/clientcli"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	cfgFile    string
	profile    string
	endpoint   string
	ownerName  string
	ownerID    string
	token      string
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:     "itemgate-cli",
	Version: version,
	Short:   "Client for the itemgate item gateway",
	Long: `itemgate CLI - Client for the itemgate item gateway

Every item command acts for one owner (name and id) and authenticates with
a Bearer token. Settings are resolved from the profile file, then
ITEMGATE_* environment variables, then flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.itemgate/config.yaml, env: ITEMGATE_CLI_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "profile name (env: ITEMGATE_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "gateway URL including base path (default: "+clientcli.DefaultEndpoint+", env: ITEMGATE_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&ownerName, "owner-name", "", "owner name (env: ITEMGATE_OWNER_NAME)")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner-id", "", "owner id (env: ITEMGATE_OWNER_ID)")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", "", "access token (env: ITEMGATE_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if !errors.As(err, &exit) {
			_ = getFormatter().FormatError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// getConfigPath returns the profile file path from flag, env or default.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := clientcli.ConfigPathFromEnv(); p != "" {
		return p
	}
	return clientcli.DefaultConfigPath()
}

// buildConfig merges config from the profile file, env vars, and flags (flags take precedence).
func buildConfig() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	profileName := profile
	if profileName == "" {
		profileName = clientcli.ProfileFromEnv()
	}

	configPath := getConfigPath()
	explicit := cfgFile != "" || profileName != ""
	if configPath != "" {
		file, err := clientcli.LoadConfigFile(configPath)
		switch {
		case err == nil:
			p, profileErr := file.GetProfile(profileName)
			if profileErr == nil {
				configs = append(configs, clientcli.ConfigFromProfile(p))
			} else if profileName != "" || !errors.Is(profileErr, clientcli.ErrNoProfiles) {
				return nil, profileErr
			}
		case explicit:
			// A missing default file is fine; a named one is not.
			return nil, err
		}
	}

	configs = append(configs, clientcli.ConfigFromEnv(), &clientcli.Config{
		Endpoint:  endpoint,
		OwnerName: ownerName,
		OwnerID:   ownerID,
		Token:     token,
	})

	return clientcli.MergeConfig(configs...), nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}
	return clientcli.New(cfg)
}

// exitError is returned when we want to exit with a specific code
// but don't want an error message printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func writeTo(w io.Writer, r io.Reader) error {
	_, err := io.Copy(w, r)
	return err
}
