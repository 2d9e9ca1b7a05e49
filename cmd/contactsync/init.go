// Init command: the first pairing pass over both contact sets.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meshline/contactsync/internal/match"
	"github.com/meshline/contactsync/pkg/types"
)

var flagYes bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Pair the directory and CRM contact sets from scratch",
	Long: `Rebuilds the link database by matching every directory contact against
the CRM by name. Ambiguous matches and unmatched contacts are resolved
interactively unless --yes is given, which skips ambiguous matches and
creates CRM contacts for everything unmatched.

Any existing pairings are discarded first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if !flagYes {
			empty, err := st.Empty()
			if err != nil {
				return err
			}
			if !empty && !confirmRebuild(os.Stdin, os.Stdout) {
				return types.ErrAborted
			}
		}

		var resolver match.DecisionResolver = match.NewInteractive(os.Stdin, os.Stdout)
		if flagYes {
			resolver = match.Unattended{}
		}

		eng := newEngine(st, resolver)
		if err := eng.RunInitial(cmd.Context()); err != nil {
			return err
		}
		eng.Stats().Print(os.Stdout)
		fmt.Println("link database:", cfg.DatabaseFile)
		return nil
	},
}

// confirmRebuild asks before an existing link database is discarded.
func confirmRebuild(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "The link database already has pairings; init discards them all. Continue? [y/N] ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	initCmd.Flags().BoolVarP(&flagYes, "yes", "y", false,
		"run without prompts: skip ambiguous matches, create unmatched contacts")
}
