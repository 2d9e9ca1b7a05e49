// Check command: read-only audit of the link store against both sides.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/meshline/contactsync/internal/match"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Audit the link database against both contact sets",
	Long: `Compares the link database with the directory and CRM listings and
reports broken pairings and unpaired contacts. Nothing is modified.
Exits non-zero when inconsistencies are found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		eng := newEngine(st, match.Unattended{})
		report, err := eng.RunCheck(cmd.Context())
		if err != nil {
			return err
		}
		printReport(report)
		if !report.Clean() {
			// os.Exit skips deferred calls; release the store first.
			st.Close()
			os.Exit(exitUserError)
		}
		return nil
	},
}
