package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/molstage"
	"github.com/aretw0/molstage/pkg/core"
)

var (
	openJSON   bool
	openRecent int
)

type openReport struct {
	Path  string `json:"path"`
	OK    bool   `json:"ok"`
	Atoms int    `json:"atoms,omitempty"`
	Bonds int    `json:"bonds,omitempty"`
	Error string `json:"error,omitempty"`
}

var openCmd = &cobra.Command{
	Use:   "open [files...]",
	Short: "Open structure files and report their contents",
	Long: `Open queues every file and reads them one at a time, in order, the way an
editor opens files given on its command line. A file that cannot be read is
reported and the next one is tried. Opened files are added to the recent list.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var paths []string
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				fatal("Error resolving path", err)
			}
			paths = append(paths, abs)
		}

		s := startSession(ctx, molstage.WithQueuedFiles(paths...), molstage.WithQueueTimeout(timeout))
		defer stopSession(s)

		if openRecent >= 0 {
			recent, ok := recentAt(s, openRecent)
			if !ok {
				fatal("Error opening recent file", fmt.Errorf("no recent file at position %d", openRecent))
			}
			paths = append(paths, recent)
		}
		if len(paths) == 0 {
			fatal("Error opening files", fmt.Errorf("no files given"))
		}

		events, unsubscribe := s.Subscribe(0)
		defer unsubscribe()

		if err := s.DrainQueue(ctx); err != nil {
			fatal("Error opening files", err)
		}
		if openRecent >= 0 {
			// Waits behind the files given on the command line.
			if err := s.QueueFiles(ctx, paths[len(paths)-1]); err != nil {
				fatal("Error opening recent file", err)
			}
		}

		reports := collectOpens(events, paths)
		failed := 0
		for _, r := range reports {
			if !r.OK {
				failed++
			}
		}

		if openJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(reports); err != nil {
				fatal("Error encoding JSON", err)
			}
		} else {
			for _, r := range reports {
				if r.OK {
					fmt.Printf("%s: %d atoms, %d bonds\n", r.Path, r.Atoms, r.Bonds)
				} else {
					fmt.Printf("%s: failed: %s\n", r.Path, r.Error)
				}
			}
		}

		if failed > 0 {
			stopSession(s)
			os.Exit(1)
		}
	},
}

func recentAt(s *molstage.Session, i int) (string, bool) {
	list := s.RecentFiles()
	if i < 0 || i >= len(list) {
		return "", false
	}
	return list[i], true
}

// collectOpens follows session events until every path has an outcome.
func collectOpens(events <-chan core.Event, paths []string) []openReport {
	reports := make(map[string]*openReport, len(paths))
	for _, p := range paths {
		reports[p] = &openReport{Path: p}
	}
	remaining := len(reports)
	loaded := make(map[string]core.Event)
	deadline := time.After(timeout + time.Second)

	for remaining > 0 {
		select {
		case e, ok := <-events:
			if !ok {
				remaining = 0
				continue
			}
			r, tracked := reports[e.Path]
			if !tracked {
				continue
			}
			switch {
			case e.Type == core.EventDocumentChanged:
				loaded[e.Path] = e
			case e.Type == core.EventIOCompleted && e.Kind == core.JobRead,
				e.Type == core.EventOpenFailed:
				if r.OK || r.Error != "" {
					continue
				}
				r.OK = e.OK
				r.Error = e.Error
				if doc, ok := loaded[e.Path]; ok && e.OK {
					r.Atoms, r.Bonds = doc.Atoms, doc.Bonds
				}
				remaining--
			}
		case <-deadline:
			remaining = 0
		}
	}

	out := make([]openReport, 0, len(reports))
	for _, p := range paths {
		r, ok := reports[p]
		if !ok {
			continue
		}
		delete(reports, p)
		if !r.OK && r.Error == "" {
			r.Error = "no outcome before timeout"
		}
		out = append(out, *r)
	}
	return out
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().BoolVar(&openJSON, "json", false, "Output in JSON format")
	openCmd.Flags().IntVar(&openRecent, "recent", -1, "Also open the n-th recent file (0 is the newest)")
}
