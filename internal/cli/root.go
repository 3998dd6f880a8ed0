// Package cli implements archivectl, an operator tool that runs archive
// operations directly against the configured document store.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docarchive/internal/app"
	"docarchive/internal/archive"
	"docarchive/internal/config"
	"docarchive/internal/logger"
	"docarchive/internal/model"
	"docarchive/internal/service"
)

// skipStore marks commands that do not need a document store.
const skipStore = "skip-store"

var version = "dev"

// cliActor is recorded in logs for operations started from the command line.
var cliActor = model.Actor{UserID: "archivectl"}

var (
	appConfig         *config.Config
	collectionService *service.CollectionService
	closeStore        func()
)

var rootCmd = &cobra.Command{
	Use:           "archivectl",
	Short:         "Archive, restore and inspect document collections",
	Long:          `archivectl runs archive, restore and delete operations directly against the document store configured by STORE_BACKEND.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if closeStore != nil {
			closeStore()
			closeStore = nil
			collectionService = nil
		}
	},
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Annotations: map[string]string{skipStore: "true"},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("archivectl version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func setup(cmd *cobra.Command) error {
	if appConfig == nil {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		appConfig = cfg
		logger.Setup(cmd.ErrOrStderr(), cfg.LogLevel, os.Getenv("NO_COLOR") != "")
	}

	// Tests and embedding callers install a service up front.
	if collectionService != nil || cmd.Annotations[skipStore] != "" {
		return nil
	}

	if appConfig.StoreBackend == config.BackendMemory {
		return errors.New("STORE_BACKEND=memory keeps nothing between runs; use postgres or sqlite")
	}

	backend, closeBackend, err := app.OpenBackend(context.Background(), appConfig)
	if err != nil {
		return err
	}
	settings, err := app.LoadSettings(appConfig)
	if err != nil {
		closeBackend()
		return err
	}

	collectionService = service.NewCollectionService(archive.NewEngine(backend, settings), nil)
	closeStore = closeBackend
	return nil
}
