// Package molstage is the composition root of the molstage session
// controller.
//
// It wires the document session (pkg/session), the format registry
// (pkg/formats), the plugin dispatcher (pkg/plugin) and the settings store
// (pkg/settings) using functional options.
//
// A Session owns exactly one active document. Reads and writes run on
// background workers, one per direction, and report back to a single
// control goroutine; every replacement or close of a modified document
// goes through a save/discard/cancel gate.
//
// Usage:
//
//	s, err := molstage.New(
//		molstage.WithSettingsFile(path),
//		molstage.WithPrompter(prompter),
//		molstage.WithLogger(logger),
//	)
//	if err := s.Start(ctx); err != nil { ... }
//	defer s.Stop(ctx)
//
//	job, err := s.OpenPath(ctx, "benzene.cml", "")
//	<-job.Done()
package molstage
