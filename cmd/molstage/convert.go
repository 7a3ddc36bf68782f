package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	convertFrom string
	convertTo   string
)

var convertCmd = &cobra.Command{
	Use:   "convert [input] [output]",
	Short: "Convert a structure file to another format",
	Long: `Convert reads the input in the background, then writes it synchronously to the
output. Formats are picked from the file extensions unless --from or --to is given.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		in, out := args[0], args[1]

		ctx, cancel := context.WithTimeout(context.Background(), 2*timeout)
		defer cancel()

		s := startSession(context.Background())
		defer stopSession(s)

		job, err := s.OpenPath(ctx, in, convertFrom)
		if err != nil {
			fatal("Error opening input", err)
		}
		if err := waitJob(job); err != nil {
			fatal("Error reading input", err)
		}

		written, err := s.SaveAs(ctx, out, convertTo, false)
		if err != nil {
			fatal("Error writing output", err)
		}

		doc := job.Result().Document
		fmt.Printf("Converted %s (%s) -> %s (%s): %d atoms, %d bonds\n",
			in, job.Codec(), out, written.Codec(), doc.AtomCount(), doc.BondCount())
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertFrom, "from", "", "Input format identifier")
	convertCmd.Flags().StringVar(&convertTo, "to", "", "Output format identifier")
}
