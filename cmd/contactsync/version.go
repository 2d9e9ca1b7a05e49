// Version command for the contactsync CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meshline/contactsync/pkg/contactsync"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the contactsync version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("contactsync", contactsync.Version)
	},
}
