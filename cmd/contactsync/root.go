// Root command and global flag handling for the contactsync CLI.
package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meshline/contactsync/internal/paths"
	"github.com/meshline/contactsync/pkg/contactsync"
	"github.com/meshline/contactsync/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagVerbose   bool
)

// cfg and logger are loaded once by PersistentPreRunE and shared by all
// subcommands.
var (
	cfg    types.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:     "contactsync",
	Short:   "contactsync mirrors a contact directory into a personal CRM",
	Long: `contactsync keeps a personal CRM in step with a contact directory.
It pairs the two contact sets in a local link database, pushes directory
changes onto the CRM, replicates CRM-only contacts back, and can audit
the pairing for drift.`,
	Version: contactsync.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}
		loaded, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = newLogger(cfg.LogLevel, flagVerbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory for the link database (default: platform data dir)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(backSyncCmd)
	rootCmd.AddCommand(checkCmd)
}

// resolveConfigDir follows the precedence flag > env > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// resolveDataDir follows the precedence flag > config > env > platform
// default.
func resolveDataDir(configValue string) (string, error) {
	return paths.ResolveDataDir(flagDataDir, configValue)
}
