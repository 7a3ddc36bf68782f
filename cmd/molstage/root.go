package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/molstage"
	"github.com/aretw0/molstage/pkg/settings"
)

var (
	verbose      bool
	settingsPath string
	noSettings   bool
	timeout      time.Duration

	// current is stopped by fatal so settings survive error exits.
	current *molstage.Session
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "molstage",
	Short: "Headless session controller for molecular structure files",
	Long: `molstage opens, converts and tracks molecular structure files through the
same asynchronous session an editor uses: background readers and writers,
a save/discard gate and a persisted recent-files list.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Settings file (default: nearest .molstage.yaml, then the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&noSettings, "no-settings", false, "Do not read or write settings")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up on a single file operation after this long")
}

// resolveSettings picks the settings file for this invocation.
func resolveSettings() (string, error) {
	if settingsPath != "" {
		return settingsPath, nil
	}
	if wd, err := os.Getwd(); err == nil {
		if path, err := molstage.FindSettings(wd); err == nil {
			return path, nil
		}
	}
	return settings.DefaultPath()
}

// startSession builds and starts a session with the common CLI wiring.
func startSession(ctx context.Context, opts ...molstage.Option) *molstage.Session {
	base := []molstage.Option{molstage.WithLogger(slog.Default())}
	if noSettings {
		base = append(base, molstage.WithSettings(settings.NewMemoryStore()))
	} else {
		path, err := resolveSettings()
		if err != nil {
			fatal("Error locating settings", err)
		}
		slog.Debug("using settings", "path", path)
		base = append(base, molstage.WithSettingsFile(path))
	}

	s, err := molstage.New(append(base, opts...)...)
	if err != nil {
		fatal("Error initializing session", err)
	}
	if err := s.Start(ctx); err != nil {
		fatal("Error starting session", err)
	}
	current = s
	return s
}

func stopSession(s *molstage.Session) {
	if current == s {
		current = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("session did not stop cleanly", "error", err)
	}
}

// waitJob blocks until job is done or the per-operation timeout expires.
func waitJob(job *molstage.Job) error {
	select {
	case <-job.Done():
		return job.Result().Err
	case <-time.After(timeout):
		job.Cancel()
		return fmt.Errorf("%s %s: timed out after %s", job.Kind(), job.Path(), timeout)
	}
}
