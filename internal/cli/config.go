package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docarchive/internal/app"
	"docarchive/internal/archive"
	"docarchive/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect archive settings",
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Print the effective archive settings",
	Long:        `Prints the archive settings built from the environment and ARCHIVE_CONFIG_FILE.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipStore: "true"},
	RunE:        runConfigShow,
}

var configCheckCmd = &cobra.Command{
	Use:         "check <file>",
	Short:       "Validate an archive config file",
	Long:        `Parses a TOML archive config file and prints the settings it would produce.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipStore: "true"},
	RunE:        runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settings, err := app.LoadSettings(appConfig)
	if err != nil {
		return err
	}
	return printConfig(cmd, settings.Get())
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	settings := archive.NewSettings(appConfig.Archive())
	cfg, err := config.ApplyArchiveFile(args[0], settings)
	if err != nil {
		return fmt.Errorf("invalid config file: %w", err)
	}

	cmd.Printf("%s is valid\n", args[0])
	return printConfig(cmd, cfg)
}

func printConfig(cmd *cobra.Command, cfg archive.Config) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
