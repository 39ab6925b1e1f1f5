package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/clientcli"
	"github.com/spf13/cobra"
)

var showSecrets bool

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Manage gateway profiles",
	Long: `Manage gateway profiles in the configuration file.

A profile saves a gateway endpoint together with the owner and token to act
as. Switch between them using --profile or ITEMGATE_PROFILE.

Configuration is stored in ~/.itemgate/config.yaml`,
}

var configureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured profiles",
	Long: `List all profiles configured in the config file.

The default profile is marked with an asterisk (*).`,
	Args: cobra.NoArgs,
	RunE: runConfigureList,
}

var configureAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a profile",
	Long: `Add or update a profile interactively.

You will be prompted for:
  - Endpoint URL (including the base path)
  - Owner name and owner id
  - Access token
  - Whether to set as default

The gateway status route is probed before saving.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigureAdd,
}

var configureRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a profile",
	Args:    cobra.ExactArgs(1),
	RunE:    runConfigureRemove,
}

var configureSetDefaultCmd = &cobra.Command{
	Use:   "set-default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigureSetDefault,
}

var configureShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile details",
	Long: `Show details for a profile, or the default profile when no name is given.
Tokens are masked unless --show-secrets is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigureShow,
}

func init() {
	configureCmd.AddCommand(configureListCmd, configureAddCmd, configureRemoveCmd, configureSetDefaultCmd, configureShowCmd)

	for _, c := range []*cobra.Command{configureListCmd, configureShowCmd} {
		c.Flags().BoolVar(&showSecrets, "show-secrets", false, "show token values")
	}
}

// loadProfiles reads the profile file. A missing file yields an empty set.
func loadProfiles() (*clientcli.ConfigFile, error) {
	cfg, err := clientcli.LoadConfigFile(getConfigPath())
	if errors.Is(err, os.ErrNotExist) {
		return &clientcli.ConfigFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func saveProfiles(cfg *clientcli.ConfigFile) error {
	if err := cfg.Save(getConfigPath()); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func runConfigureList(_ *cobra.Command, _ []string) error {
	cfg, err := loadProfiles()
	if err != nil {
		return err
	}

	if len(cfg.Profiles) == 0 {
		fmt.Println("No profiles configured.")
		fmt.Println("Run 'itemgate-cli configure add <name>' to create one.")
		return nil
	}

	def, err := cfg.GetDefaultProfile()
	if err != nil {
		return err
	}

	return getFormatter().FormatProfileList(os.Stdout, cfg.Profiles, def.Name, showSecrets)
}

func runConfigureAdd(_ *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadProfiles()
	if err != nil {
		return err
	}

	existing, _ := cfg.GetProfile(name)
	if existing != nil && !confirm(fmt.Sprintf("Profile '%s' already exists. Update it", name)) {
		fmt.Println("Cancelled.")
		return nil
	}

	p, err := promptProfile(name, existing)
	if err != nil {
		return handlePromptError(err)
	}

	// The first profile is always the default.
	p.Default = len(cfg.Profiles) == 0 || (existing != nil && existing.Default) || confirm("Set as default profile")

	fmt.Print("Testing connection... ")
	if connErr := testServerConnection(p.Endpoint); connErr != nil {
		fmt.Println("FAILED")
		fmt.Printf("Warning: Could not reach gateway: %v\n", connErr)
		if !confirm("Save profile anyway") {
			fmt.Println("Cancelled.")
			return nil
		}
	} else {
		fmt.Println("OK")
	}

	if existing != nil {
		err = cfg.UpdateProfile(p)
	} else {
		err = cfg.AddProfile(p)
	}
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if p.Default {
		if err := cfg.SetDefault(p.Name); err != nil {
			return err
		}
	}

	if err := saveProfiles(cfg); err != nil {
		return err
	}

	verb := "added"
	if existing != nil {
		verb = "updated"
	}
	fmt.Printf("Profile '%s' %s.\n", name, verb)
	if p.Default {
		fmt.Println("Set as default profile.")
	}
	return nil
}

// promptProfile asks for every profile field, offering the existing values
// as defaults.
func promptProfile(name string, existing *clientcli.Profile) (clientcli.Profile, error) {
	prev := clientcli.Profile{Endpoint: clientcli.DefaultEndpoint}
	if existing != nil {
		prev = *existing
	}

	endpointURL, err := (&promptui.Prompt{Label: "Endpoint URL", Default: prev.Endpoint, Validate: validateEndpoint}).Run()
	if err != nil {
		return clientcli.Profile{}, err
	}

	ownerNameVal, err := (&promptui.Prompt{Label: "Owner Name", Default: prev.OwnerName, Validate: validateSegment}).Run()
	if err != nil {
		return clientcli.Profile{}, err
	}

	ownerIDVal, err := (&promptui.Prompt{Label: "Owner ID", Default: prev.OwnerID, Validate: validateSegment}).Run()
	if err != nil {
		return clientcli.Profile{}, err
	}

	tokenVal, err := (&promptui.Prompt{Label: "Access Token", Mask: '*'}).Run()
	if err != nil {
		return clientcli.Profile{}, err
	}
	if tokenVal == "" {
		tokenVal = prev.Token
	}

	return clientcli.Profile{
		Name:      name,
		Endpoint:  strings.TrimSuffix(endpointURL, "/"),
		OwnerName: ownerNameVal,
		OwnerID:   ownerIDVal,
		Token:     tokenVal,
	}, nil
}

func runConfigureRemove(_ *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadProfiles()
	if err != nil {
		return err
	}
	if _, err := cfg.GetProfile(name); err != nil {
		return err
	}

	if !confirm(fmt.Sprintf("Remove profile '%s'", name)) {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := cfg.RemoveProfile(name); err != nil {
		return err
	}
	if err := saveProfiles(cfg); err != nil {
		return err
	}

	fmt.Printf("Profile '%s' removed.\n", name)
	return nil
}

func runConfigureSetDefault(_ *cobra.Command, args []string) error {
	cfg, err := loadProfiles()
	if err != nil {
		return err
	}

	if err := cfg.SetDefault(args[0]); err != nil {
		return err
	}
	if err := saveProfiles(cfg); err != nil {
		return err
	}

	fmt.Printf("Default profile set to '%s'.\n", args[0])
	return nil
}

func runConfigureShow(_ *cobra.Command, args []string) error {
	cfg, err := loadProfiles()
	if err != nil {
		return err
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	p, err := cfg.GetProfile(name)
	if err != nil {
		return err
	}

	def, _ := cfg.GetDefaultProfile()
	return getFormatter().FormatProfileShow(os.Stdout, *p, def != nil && def.Name == p.Name, showSecrets)
}

// testServerConnection probes the gateway's status route.
func testServerConnection(endpointURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := clientcli.New(&clientcli.Config{Endpoint: endpointURL}, clientcli.WithTimeout(5*time.Second))
	if err != nil {
		return err
	}

	_, err = client.Status(ctx)
	return err
}

func validateEndpoint(input string) error {
	if input == "" {
		return errors.New("endpoint URL is required")
	}
	u, err := url.Parse(input)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	return nil
}

// validateSegment rejects values that cannot be a single URL path segment.
func validateSegment(input string) error {
	if !itemgate.IsValidSegment(input) {
		return errors.New("must be a non-empty name without slashes")
	}
	return nil
}

// confirm asks a yes/no question. Any prompt error counts as no.
func confirm(label string) bool {
	_, err := (&promptui.Prompt{Label: label, IsConfirm: true}).Run()
	return err == nil
}

func handlePromptError(err error) error {
	switch {
	case errors.Is(err, promptui.ErrInterrupt):
		fmt.Println("\nCancelled.")
		os.Exit(0)
	case errors.Is(err, promptui.ErrAbort):
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
