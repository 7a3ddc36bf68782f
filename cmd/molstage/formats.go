package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/molstage"
	"github.com/aretw0/molstage/pkg/core"
	"github.com/aretw0/molstage/pkg/settings"
)

var (
	formatsJSON   bool
	formatsFilter bool
)

type formatInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Extensions   []string `json:"extensions"`
	Capabilities string   `json:"capabilities"`
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the registered file formats",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s, err := molstage.New(molstage.WithSettings(settings.NewMemoryStore()))
		if err != nil {
			fatal("Error initializing session", err)
		}
		registry := s.Registry()

		if formatsFilter {
			fmt.Println(registry.FilterString(core.CapRead|core.CapFile, true))
			return
		}

		var infos []formatInfo
		for _, c := range registry.Codecs(0) {
			infos = append(infos, formatInfo{
				ID:           c.Identifier(),
				Name:         c.Name(),
				Extensions:   c.FileExtensions(),
				Capabilities: c.Capabilities().String(),
			})
		}

		if formatsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(infos); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tEXTENSIONS\tCAPABILITIES")
		for _, f := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.Name, strings.Join(f.Extensions, ","), f.Capabilities)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
	formatsCmd.Flags().BoolVar(&formatsJSON, "json", false, "Output in JSON format")
	formatsCmd.Flags().BoolVar(&formatsFilter, "filter", false, "Print the open dialog filter string")
}
