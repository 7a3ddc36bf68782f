package session_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/molstage/pkg/core"
	"github.com/aretw0/molstage/pkg/formats"
	"github.com/aretw0/molstage/pkg/plugin"
	"github.com/aretw0/molstage/pkg/session"
	"github.com/aretw0/molstage/pkg/settings"
)

func water() *core.Document {
	doc := core.NewDocument()
	doc.Name = "water"
	doc.AddAtom(core.Atom{Element: "O", X: 0, Y: 0, Z: 0.1173})
	doc.AddAtom(core.Atom{Element: "H", X: 0, Y: 0.7572, Z: -0.4692})
	doc.AddAtom(core.Atom{Element: "H", X: 0, Y: -0.7572, Z: -0.4692})
	doc.AddBond(0, 1, 1)
	doc.AddBond(0, 2, 1)
	return doc
}

func writeCML(t *testing.T, doc *core.Document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mol.cml")
	cml := formats.DefaultFormats()[0]
	require.Equal(t, "cml", cml.Identifier())
	require.NoError(t, cml.NewInstance().Write(doc, path))
	return path
}

func TestCoordinator_Start(t *testing.T) {
	h := newHarness(t, session.Config{})

	doc := h.snapshot(t)
	assert.NotEmpty(t, doc.ID)
	assert.Zero(t, doc.AtomCount())
	assert.False(t, h.IsDirty())
	assert.Equal(t, session.DefaultEditTool, h.Dispatcher().ActiveTool(), "empty document selects the editing tool")
	assert.Equal(t, []string{doc.ID}, h.Documents())

	state, ok := h.State().(session.CoordinatorState)
	require.True(t, ok)
	assert.True(t, state.Running)
	assert.Equal(t, doc.ID, state.ActiveDocument)
	assert.Equal(t, "session", h.ComponentType())
}

func TestCoordinator_OpenCML(t *testing.T) {
	path := writeCML(t, water())
	h := newHarness(t, session.Config{})

	job, err := h.OpenPath(h.ctx, path, "")
	require.NoError(t, err)
	assert.Equal(t, core.JobRead, job.Kind())
	assert.Equal(t, "cml", job.Codec())

	res := wait(t, job)
	require.True(t, res.OK, res.Message())
	assert.Equal(t, session.JobSucceeded, job.State())

	events := h.drain(t)
	assert.Equal(t, 1, count(events, core.EventDocumentChanged), "documentChanged fires once")
	assert.Equal(t, 1, count(events, core.EventIOStarted))
	assert.Equal(t, 1, count(events, core.EventIOCompleted))

	doc := h.snapshot(t)
	assert.Equal(t, path, doc.FileName())
	assert.Equal(t, 3, doc.AtomCount())
	assert.Equal(t, session.DefaultNavigateTool, h.Dispatcher().ActiveTool())
	assert.False(t, h.IsDirty())
	assert.Equal(t, []string{path}, h.RecentFiles())
	assert.Len(t, h.Documents(), 2, "the outgoing document stays in the collection")
}

func TestCoordinator_ResolutionErrors(t *testing.T) {
	h := newHarness(t, session.Config{})

	t.Run("Empty Path", func(t *testing.T) {
		job, err := h.OpenPath(h.ctx, "", "")
		assert.Nil(t, job)
		var resErr *core.ResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.ErrorIs(t, err, core.ErrEmptyPath)
	})

	t.Run("Unknown Extension", func(t *testing.T) {
		job, err := h.OpenPath(h.ctx, "/tmp/structure.unknown", "")
		assert.Nil(t, job)
		assert.ErrorIs(t, err, core.ErrNoCodec)
	})

	t.Run("Unknown Codec Hint", func(t *testing.T) {
		_, err := h.OpenPath(h.ctx, "/tmp/mol.cml", "nope")
		assert.ErrorIs(t, err, core.ErrNoCodec)
	})

	events := h.drain(t)
	assert.Zero(t, count(events, core.EventIOStarted), "no job is started")
	state := h.State().(session.CoordinatorState)
	assert.Empty(t, state.Reading)
}

func TestCoordinator_ReadFailure(t *testing.T) {
	stub := newStubCodec("stub", "stub")
	stub.readErr = assert.AnError
	registry := formats.NewRegistry(formats.Config{})
	require.NoError(t, registry.Register(stub))
	h := newHarness(t, session.Config{Registry: registry})
	before := h.snapshot(t)

	job, err := h.OpenPath(h.ctx, "/data/broken.stub", "")
	require.NoError(t, err)
	res := wait(t, job)

	assert.False(t, res.OK)
	assert.Nil(t, res.Document, "the target document is discarded")
	assert.True(t, isIOError(res.Err))
	assert.Equal(t, assert.AnError.Error(), res.Message())
	assert.Equal(t, session.JobFailed, job.State())

	completed := h.expect(t, core.EventIOCompleted)
	assert.False(t, completed.OK)
	assert.Equal(t, assert.AnError.Error(), completed.Error)

	after := h.snapshot(t)
	assert.Equal(t, before.ID, after.ID, "active document unchanged")
	assert.Empty(t, h.RecentFiles())
}

func TestCoordinator_BusyRejection(t *testing.T) {
	stub := newStubCodec("stub", "stub")
	stub.release = make(chan struct{})
	registry := formats.NewRegistry(formats.Config{})
	require.NoError(t, registry.Register(stub))
	h := newHarness(t, session.Config{Registry: registry})

	t.Run("Read", func(t *testing.T) {
		first, err := h.OpenPath(h.ctx, "/data/a.stub", "")
		require.NoError(t, err)

		second, err := h.OpenPath(h.ctx, "/data/b.stub", "")
		assert.Nil(t, second)
		assert.ErrorIs(t, err, core.ErrJobBusy)
		state := h.State().(session.CoordinatorState)
		assert.Equal(t, "/data/a.stub", state.Reading)

		stub.unblock(t)
		require.True(t, wait(t, first).OK)
		assert.EqualValues(t, 1, stub.reads.Load())
	})

	t.Run("Async Write", func(t *testing.T) {
		first, err := h.SaveAs(h.ctx, "/data/out.stub", "", true)
		require.NoError(t, err)

		second, err := h.Save(h.ctx, true)
		assert.Nil(t, second)
		assert.ErrorIs(t, err, core.ErrJobBusy)

		stub.unblock(t)
		require.True(t, wait(t, first).OK)
		assert.EqualValues(t, 1, stub.writes.Load())
	})

	t.Run("Read And Write Run Together", func(t *testing.T) {
		read, err := h.OpenPath(h.ctx, "/data/c.stub", "")
		require.NoError(t, err)
		write, err := h.Save(h.ctx, true)
		require.NoError(t, err)

		stub.unblock(t)
		stub.unblock(t)
		wait(t, read)
		wait(t, write)
	})
}

func TestCoordinator_SyncSaveWaitsForWrite(t *testing.T) {
	stub := newStubCodec("stub", "stub")
	stub.release = make(chan struct{})
	registry := formats.NewRegistry(formats.Config{})
	require.NoError(t, registry.Register(stub))
	h := newHarness(t, session.Config{Registry: registry})

	async, err := h.SaveAs(h.ctx, "/data/one.stub", "", true)
	require.NoError(t, err)

	syncDone := make(chan error, 1)
	go func() {
		_, err := h.SaveAs(context.Background(), "/data/two.stub", "", false)
		syncDone <- err
	}()

	stub.unblock(t)
	require.True(t, wait(t, async).OK)

	stub.unblock(t)
	select {
	case err := <-syncDone:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("synchronous save never returned")
	}
	assert.Equal(t, []string{"/data/one.stub", "/data/two.stub"}, stub.paths)
	assert.Equal(t, "/data/two.stub", h.snapshot(t).FileName())
}

func TestCoordinator_DirtyFlag(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, session.Config{})

	require.NoError(t, h.Edit(h.ctx, func(doc *core.Document) {
		doc.AddAtom(core.Atom{Element: "N"})
	}))
	assert.True(t, h.IsDirty())
	assert.True(t, h.expect(t, core.EventDirtyChanged).Dirty)

	t.Run("Metadata Does Not Dirty", func(t *testing.T) {
		require.NoError(t, h.Edit(h.ctx, func(doc *core.Document) { doc.Metadata["note"] = "x" }))
		assert.True(t, h.IsDirty())
	})

	t.Run("Cleared By Save", func(t *testing.T) {
		path := filepath.Join(dir, "n.yaml")
		job, err := h.SaveAs(h.ctx, path, "", false)
		require.NoError(t, err)
		assert.True(t, job.Result().OK)
		assert.False(t, h.IsDirty())
		assert.False(t, h.expect(t, core.EventDirtyChanged).Dirty)
		assert.Equal(t, path, h.snapshot(t).FileName())
	})

	t.Run("Plain Save Reuses File Name", func(t *testing.T) {
		require.NoError(t, h.Edit(h.ctx, func(doc *core.Document) {
			doc.AddAtom(core.Atom{Element: "H"})
		}))
		job, err := h.Save(h.ctx, true)
		require.NoError(t, err)
		require.True(t, wait(t, job).OK)
		assert.Equal(t, filepath.Join(dir, "n.yaml"), job.Path())
		assert.False(t, h.IsDirty())
	})

	t.Run("Failed Save Keeps Dirty", func(t *testing.T) {
		require.NoError(t, h.Edit(h.ctx, func(doc *core.Document) {
			doc.AddAtom(core.Atom{Element: "H"})
		}))
		_, err := h.SaveAs(h.ctx, filepath.Join(dir, "missing", "n.yaml"), "", false)
		assert.True(t, isIOError(err))
		assert.True(t, h.IsDirty())
		assert.Equal(t, filepath.Join(dir, "n.yaml"), h.snapshot(t).FileName(), "fileName untouched on write failure")
	})
}

func TestCoordinator_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"cml", "cjson", "yaml"} {
		t.Run(id, func(t *testing.T) {
			h := newHarness(t, session.Config{})
			src := water()
			require.NoError(t, h.Edit(h.ctx, func(doc *core.Document) { doc.Replace(src) }))

			path := filepath.Join(dir, "water."+id)
			_, err := h.SaveAs(h.ctx, path, id, false)
			require.NoError(t, err)

			job, err := h.OpenPath(h.ctx, path, id)
			require.NoError(t, err)
			res := wait(t, job)
			require.True(t, res.OK, res.Message())

			assert.Equal(t, path, res.Document.FileName())
			assert.True(t, src.Equivalent(res.Document))
		})
	}
}

func TestCoordinator_Gate(t *testing.T) {
	dirty := func(t *testing.T, h *harness) {
		t.Helper()
		require.NoError(t, h.Edit(h.ctx, func(doc *core.Document) {
			doc.AddAtom(core.Atom{Element: "C"})
		}))
		require.True(t, h.IsDirty())
	}

	t.Run("Discard On Close", func(t *testing.T) {
		stub := newStubCodec("stub", "stub")
		registry := formats.NewRegistry(formats.Config{})
		require.NoError(t, registry.Register(stub))
		var asked atomic.Int32
		h := newHarness(t, session.Config{Registry: registry, Prompter: prompter(core.GateDiscard, &asked)})
		dirty(t, h)

		ok, err := h.CloseRequested(h.ctx)
		require.NoError(t, err)
		assert.True(t, ok, "close proceeds")
		assert.False(t, h.IsDirty())
		assert.EqualValues(t, 1, asked.Load())
		assert.Zero(t, stub.writes.Load(), "no write job submitted")
		assert.Equal(t, 1, h.store.Saves)
	})

	t.Run("Failed Save Blocks Close", func(t *testing.T) {
		stub := newStubCodec("stub", "stub")
		stub.writeErr = assert.AnError
		registry := formats.NewRegistry(formats.Config{})
		require.NoError(t, registry.Register(stub))
		h := newHarness(t, session.Config{Registry: registry, Prompter: prompter(core.GateSave, nil)})

		require.NoError(t, h.Edit(h.ctx, func(doc *core.Document) {
			doc.SetFileName("/data/current.stub")
			doc.AddAtom(core.Atom{Element: "C"})
		}))

		ok, err := h.CloseRequested(h.ctx)
		assert.False(t, ok, "close does not proceed")
		assert.True(t, isIOError(err))
		assert.True(t, h.IsDirty())
		assert.EqualValues(t, 1, stub.writes.Load())
	})

	t.Run("Successful Save Lets Open Proceed", func(t *testing.T) {
		dir := t.TempDir()
		target := writeCML(t, water())
		h := newHarness(t, session.Config{Prompter: prompter(core.GateSave, nil)})
		require.NoError(t, h.Edit(h.ctx, func(doc *core.Document) {
			doc.SetFileName(filepath.Join(dir, "draft.yaml"))
			doc.AddAtom(core.Atom{Element: "C"})
		}))

		job, err := h.OpenPath(h.ctx, target, "")
		require.NoError(t, err)
		require.True(t, wait(t, job).OK)
		assert.FileExists(t, filepath.Join(dir, "draft.yaml"))
		assert.Equal(t, target, h.snapshot(t).FileName())
	})

	t.Run("Cancel Aborts", func(t *testing.T) {
		h := newHarness(t, session.Config{})
		dirty(t, h)
		before := h.snapshot(t)

		err := h.NewDocument(h.ctx)
		assert.ErrorIs(t, err, core.ErrGateCancelled)
		h.expect(t, core.EventGateCancelled)

		ok, err := h.CloseRequested(h.ctx)
		assert.False(t, ok)
		assert.ErrorIs(t, err, core.ErrGateCancelled)

		after := h.snapshot(t)
		assert.Equal(t, before.ID, after.ID)
		assert.True(t, h.IsDirty())
		assert.Len(t, h.Documents(), 1, "declined document is not collected")
	})

	t.Run("Discard On New", func(t *testing.T) {
		h := newHarness(t, session.Config{Prompter: prompter(core.GateDiscard, nil)})
		dirty(t, h)
		old := h.snapshot(t)

		require.NoError(t, h.NewDocument(h.ctx))
		assert.False(t, h.IsDirty())
		assert.NotEqual(t, old.ID, h.snapshot(t).ID)

		// Edits to the outgoing document no longer reach the session.
		outgoing, ok := h.Collection().Get(old.ID)
		require.True(t, ok)
		outgoing.AddAtom(core.Atom{Element: "O"})
		assert.False(t, h.IsDirty())
	})
}

func TestCoordinator_ActivateDocument(t *testing.T) {
	h := newHarness(t, session.Config{})
	current := h.snapshot(t)
	h.drain(t)

	t.Run("Active Document Is A No-Op", func(t *testing.T) {
		require.NoError(t, h.ActivateDocument(h.ctx, current.ID))
		assert.Zero(t, count(h.drain(t), core.EventDocumentChanged), "no broadcast")
		assert.Equal(t, []string{current.ID}, h.Documents(), "no collection mutation")
	})

	t.Run("Unknown Document", func(t *testing.T) {
		assert.ErrorIs(t, h.ActivateDocument(h.ctx, "missing"), core.ErrNoDocument)
	})

	t.Run("Switch Back", func(t *testing.T) {
		require.NoError(t, h.NewDocument(h.ctx))
		require.NoError(t, h.ActivateDocument(h.ctx, current.ID))
		assert.Equal(t, current.ID, h.snapshot(t).ID)
		assert.Len(t, h.Documents(), 2)
	})
}

func TestCoordinator_Progress(t *testing.T) {
	stub := newStubCodec("stub", "stub")
	stub.release = make(chan struct{})
	registry := formats.NewRegistry(formats.Config{})
	require.NoError(t, registry.Register(stub))
	h := newHarness(t, session.Config{Registry: registry, ProgressDelay: 10 * time.Millisecond})

	job, err := h.OpenPath(h.ctx, "/data/slow.stub", "")
	require.NoError(t, err)

	progress := h.expect(t, core.EventIOProgress)
	assert.Equal(t, job.ID(), progress.JobID)
	assert.Equal(t, core.JobRead, progress.Kind)

	stub.unblock(t)
	wait(t, job)
}

func TestCoordinator_Cancel(t *testing.T) {
	stub := newStubCodec("stub", "stub")
	stub.release = make(chan struct{})
	registry := formats.NewRegistry(formats.Config{})
	require.NoError(t, registry.Register(stub))
	h := newHarness(t, session.Config{Registry: registry})
	before := h.snapshot(t)

	job, err := h.OpenPath(h.ctx, "/data/slow.stub", "")
	require.NoError(t, err)
	job.Cancel()
	stub.unblock(t)

	res := wait(t, job)
	assert.Equal(t, session.JobCancelled, job.State())
	assert.ErrorIs(t, res.Err, core.ErrCancelled)
	assert.Equal(t, before.ID, h.snapshot(t).ID, "cancelled result is not committed")
	assert.Empty(t, h.RecentFiles())
}

func TestCoordinator_DeclinedReadIsNotRemembered(t *testing.T) {
	stub := newStubCodec("stub", "stub")
	stub.release = make(chan struct{})
	registry := formats.NewRegistry(formats.Config{})
	require.NoError(t, registry.Register(stub))
	var asked atomic.Int32
	h := newHarness(t, session.Config{Registry: registry, Prompter: prompter(core.GateCancel, &asked)})
	before := h.snapshot(t)

	job, err := h.OpenPath(h.ctx, "/data/late.stub", "")
	require.NoError(t, err)
	require.NoError(t, h.Edit(h.ctx, func(doc *core.Document) {
		doc.AddAtom(core.Atom{Element: "N"})
	}))
	stub.unblock(t)

	res := wait(t, job)
	assert.True(t, res.OK, "the file itself was read")
	h.expect(t, core.EventGateCancelled)
	assert.EqualValues(t, 1, asked.Load())
	assert.Equal(t, before.ID, h.snapshot(t).ID)
	assert.True(t, h.IsDirty())
	assert.Empty(t, h.RecentFiles())
}

func TestCoordinator_StopAbandonsJobs(t *testing.T) {
	stub := newStubCodec("stub", "stub")
	stub.release = make(chan struct{})
	registry := formats.NewRegistry(formats.Config{})
	require.NoError(t, registry.Register(stub))
	h := newHarness(t, session.Config{Registry: registry})

	job, err := h.OpenPath(h.ctx, "/data/stuck.stub", "")
	require.NoError(t, err)

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		stopped <- h.Stop(ctx)
	}()

	res := wait(t, job)
	assert.Equal(t, session.JobCancelled, job.State())
	assert.ErrorIs(t, res.Err, core.ErrCancelled)

	stub.unblock(t)
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Stop never returned")
	}
}

func TestCoordinator_RelativePaths(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cml := formats.DefaultFormats()[0]
	require.NoError(t, cml.NewInstance().Write(water(), "rel.cml"))

	h := newHarness(t, session.Config{})
	job, err := h.OpenPath(h.ctx, "rel.cml", "")
	require.NoError(t, err)
	require.True(t, wait(t, job).OK)

	opened := filepath.Join(dir, "rel.cml")
	assert.Equal(t, opened, job.Path())
	assert.Equal(t, opened, h.snapshot(t).FileName())
	assert.Equal(t, []string{opened}, h.RecentFiles())

	written, err := h.SaveAs(h.ctx, "copy.xyz", "", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "copy.xyz"), written.Path())
	assert.Equal(t, filepath.Join(dir, "copy.xyz"), h.snapshot(t).FileName())

	stopCtx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, h.Stop(stopCtx))
	assert.Equal(t, []string{opened}, h.store.Strings(settings.KeyRecentFiles))
	assert.Equal(t, dir, h.store.String(settings.KeyLastOpenDir))
	assert.Equal(t, dir, h.store.String(settings.KeyLastSaveDir))
}

func TestCoordinator_CodecPanic(t *testing.T) {
	registry := formats.NewRegistry(formats.Config{})
	require.NoError(t, registry.Register(panicCodec{newStubCodec("boom", "boom")}))
	h := newHarness(t, session.Config{Registry: registry})

	job, err := h.OpenPath(h.ctx, "/data/x.boom", "")
	require.NoError(t, err)
	res := wait(t, job)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message(), "codec panic")

	// The worker survives.
	job, err = h.OpenPath(h.ctx, "/data/y.boom", "")
	require.NoError(t, err)
	assert.False(t, wait(t, job).OK)
}

type panicCodec struct{ *stubCodec }

func (p panicCodec) NewInstance() core.Codec           { return p }
func (p panicCodec) Read(string, *core.Document) error { panic("decoder exploded") }

func TestCoordinator_RecentFiles(t *testing.T) {
	store := settings.NewMemoryStore()
	store.SetStrings(settings.KeyRecentFiles, []string{"/old/b.cml", "/old/a.cml"})
	path := writeCML(t, water())

	h := newHarness(t, session.Config{Settings: store})
	assert.Equal(t, []string{"/old/b.cml", "/old/a.cml"}, h.RecentFiles())

	job, err := h.OpenRecent(h.ctx, 5)
	assert.Nil(t, job)
	assert.Error(t, err)

	job, err = h.OpenPath(h.ctx, path, "")
	require.NoError(t, err)
	wait(t, job)
	h.expect(t, core.EventRecentChanged)

	stopCtx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, h.Stop(stopCtx))
	assert.Equal(t, []string{path, "/old/b.cml", "/old/a.cml"}, store.Strings(settings.KeyRecentFiles))
	assert.Equal(t, filepath.Dir(path), store.String(settings.KeyLastOpenDir))

	_, err = h.OpenPath(context.Background(), path, "")
	assert.ErrorIs(t, err, core.ErrClosed)
}

func TestCoordinator_ClearRecent(t *testing.T) {
	store := settings.NewMemoryStore()
	store.SetStrings(settings.KeyRecentFiles, []string{"/old/a.cml"})

	h := newHarness(t, session.Config{Settings: store})
	require.NoError(t, h.ClearRecent(h.ctx))
	h.expect(t, core.EventRecentChanged)
	assert.Empty(t, h.RecentFiles())

	// nothing left to clear, no event
	require.NoError(t, h.ClearRecent(h.ctx))
	assert.Equal(t, 0, count(h.drain(t), core.EventRecentChanged))

	stopCtx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, h.Stop(stopCtx))
	assert.Empty(t, store.Strings(settings.KeyRecentFiles))
}

func TestCoordinator_Dialogs(t *testing.T) {
	dir := t.TempDir()
	src := writeCML(t, water())
	chooser := &scriptedChooser{}
	registry := formats.NewRegistry(formats.Config{Chooser: chooser})
	for _, f := range formats.DefaultFormats() {
		require.NoError(t, registry.Register(f))
	}
	store := settings.NewMemoryStore()
	store.SetString(settings.KeyLastSaveDir, dir)
	h := newHarness(t, session.Config{Registry: registry, Settings: store})

	t.Run("Import", func(t *testing.T) {
		chooser.path = src
		job, err := h.ImportViaDialog(h.ctx)
		require.NoError(t, err)
		require.True(t, wait(t, job).OK)
		assert.Equal(t, core.IntentRead, chooser.intent)
	})

	t.Run("Export", func(t *testing.T) {
		chooser.path = filepath.Join(dir, "exported.xyz")
		job, err := h.ExportViaDialog(h.ctx, false)
		require.NoError(t, err)
		assert.True(t, job.Result().OK)
		assert.Equal(t, dir, chooser.dir, "dialog starts in the last save directory")
		assert.FileExists(t, chooser.path)
	})

	t.Run("Cancelled Dialog", func(t *testing.T) {
		chooser.path = ""
		_, err := h.ImportViaDialog(h.ctx)
		assert.ErrorIs(t, err, core.ErrCancelled)
	})

	t.Run("Save Without File Name Asks", func(t *testing.T) {
		require.NoError(t, h.NewDocument(h.ctx))
		chooser.path = filepath.Join(dir, "fresh.cjson")
		job, err := h.Save(h.ctx, false)
		require.NoError(t, err)
		assert.Equal(t, chooser.path, job.Path())
		assert.Equal(t, core.IntentWrite, chooser.intent)
	})
}

type scriptedChooser struct {
	path   string
	dir    string
	intent core.Intent
}

func (s *scriptedChooser) ChooseFormat(string, []core.Codec) core.Codec { return nil }

func (s *scriptedChooser) ChooseFile(intent core.Intent, dir string, _ []core.Codec) (core.Codec, string) {
	s.intent = intent
	s.dir = dir
	return nil, s.path
}

var _ plugin.Tool = (*stubTool)(nil)
