// Sync command: the recurring forward pass, incremental by default.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/meshline/contactsync/internal/match"
)

var (
	flagFull     bool
	flagSyncBack bool
	flagCheck    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push directory changes onto the CRM",
	Long: `Applies directory-side changes to the linked CRM contacts. By default
only records changed since the last run are fetched; --full walks the
whole directory and also detects deletions. A missing or expired sync
cursor upgrades an incremental run to a full one automatically.

Runs unattended: ambiguous matches are skipped and reported, unmatched
contacts are created.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		eng := newEngine(st, match.Unattended{})
		if flagFull {
			err = eng.RunFull(cmd.Context())
		} else {
			err = eng.RunDelta(cmd.Context())
		}
		if err != nil {
			return err
		}

		if flagSyncBack {
			if err := eng.RunBackSync(cmd.Context()); err != nil {
				return err
			}
		}
		eng.Stats().Print(os.Stdout)

		if flagCheck {
			report, err := eng.RunCheck(cmd.Context())
			if err != nil {
				return err
			}
			printReport(report)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&flagFull, "full", false, "walk the whole directory instead of the change feed")
	syncCmd.Flags().BoolVar(&flagSyncBack, "sync-back", false, "also replicate CRM-only contacts to the directory")
	syncCmd.Flags().BoolVar(&flagCheck, "check", false, "run a consistency check afterwards")
}
