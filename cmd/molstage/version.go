package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/molstage"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of molstage",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("molstage version %s\n", strings.TrimSpace(molstage.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
