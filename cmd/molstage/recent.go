package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var recentClear bool

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently opened files",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := startSession(ctx)
		defer stopSession(s)

		if recentClear {
			if err := s.ClearRecent(ctx); err != nil {
				fatal("Error clearing recent files", err)
			}
			fmt.Println("Recent files cleared.")
			return
		}

		list := s.RecentFiles()
		if len(list) == 0 {
			fmt.Println("No recent files.")
			return
		}
		for i, path := range list {
			fmt.Printf("%2d  %s\n", i, path)
		}
	},
}

func init() {
	rootCmd.AddCommand(recentCmd)
	recentCmd.Flags().BoolVar(&recentClear, "clear", false, "Forget every recent file")
}
