package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/aretw0/molstage"
	"github.com/aretw0/molstage/pkg/adapters/fs"
	"github.com/aretw0/molstage/pkg/adapters/lifecycle"
	"github.com/aretw0/molstage/pkg/core"
	"github.com/aretw0/molstage/pkg/formats"
)

var watchPattern string

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Activate structure files dropped into a directory",
	Long: `Watch turns a directory into a hot folder: every structure file written into it
is decoded and becomes the active document. Session events are printed until
interrupted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		registry := formats.NewRegistry(formats.Config{Logger: slog.Default()})
		hot := fs.NewHotFolder(fs.HotFolderConfig{
			Dir:      args[0],
			Pattern:  watchPattern,
			Resolver: registry,
			Logger:   slog.Default(),
		})

		s := startSession(ctx, molstage.WithRegistry(registry), molstage.WithExtensions(hot))
		defer stopSession(s)

		src := lifecycle.NewSource(s, 0,
			core.EventDocumentChanged, core.EventOpenFailed, core.EventGateCancelled)
		if err := src.Start(ctx); err != nil {
			fatal("Error subscribing to events", err)
		}

		if err := hot.Start(ctx); err != nil {
			fatal("Error watching directory", err)
		}
		defer hot.Stop(context.Background())

		fmt.Printf("Watching %s (pattern %q). Press Ctrl+C to stop.\n", args[0], watchPattern)
		for e := range src.Events() {
			fmt.Println(e.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "*", "Only pick up files matching this glob")
}
