// Back-sync command: replicate CRM-only contacts into the directory.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/meshline/contactsync/internal/match"
)

var backSyncCmd = &cobra.Command{
	Use:   "syncback",
	Short: "Replicate CRM-only contacts to the directory",
	Long: `Creates a directory contact for every CRM contact that has no pairing
yet and links the two. Existing pairs are never touched. The
target_labels filter in the configuration controls which CRM contacts
are eligible.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		eng := newEngine(st, match.Unattended{})
		if err := eng.RunBackSync(cmd.Context()); err != nil {
			return err
		}
		eng.Stats().Print(os.Stdout)
		return nil
	},
}
