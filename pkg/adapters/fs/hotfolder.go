package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/molstage/pkg/core"
	"github.com/aretw0/molstage/pkg/plugin"
)

// settleDelay lets a producer finish writing before the file is decoded.
const settleDelay = 50 * time.Millisecond

// Resolver picks a codec for a path. *formats.Registry implements it.
type Resolver interface {
	ResolvePath(path string, caps core.Capability) (core.Codec, error)
}

// HotFolderConfig configures a HotFolder.
type HotFolderConfig struct {
	// Dir is the watched directory. It is created if missing.
	Dir string
	// Pattern filters file names (doublestar syntax). Empty matches all.
	Pattern  string
	Resolver Resolver
	Logger   *slog.Logger
}

// HotFolder is an extension that turns structure files dropped into a
// directory into documents. Each decoded file is offered to the session
// through DocumentReady.
type HotFolder struct {
	plugin.BaseExtension
	config HotFolderConfig
	worker *folderWorker

	mu      sync.Mutex
	pending []*core.Document
}

// NewHotFolder creates a hot folder extension. Call Start to begin
// watching.
func NewHotFolder(config HotFolderConfig) *HotFolder {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Pattern == "" {
		config.Pattern = "*"
	}
	h := &HotFolder{config: config}
	h.worker = newFolderWorker(h)
	return h
}

func (h *HotFolder) Name() string { return "hot-folder" }

func (h *HotFolder) MenuEntries() []plugin.MenuEntry {
	return []plugin.MenuEntry{{Path: []string{"File", "Hot Folder"}, Label: h.config.Dir}}
}

// ProduceDocument hands out the oldest decoded drop.
func (h *HotFolder) ProduceDocument(doc *core.Document) bool {
	h.mu.Lock()
	if len(h.pending) == 0 {
		h.mu.Unlock()
		return false
	}
	next := h.pending[0]
	h.pending = h.pending[1:]
	h.mu.Unlock()

	doc.Replace(next)
	return true
}

// Pending returns the number of decoded drops not yet produced.
func (h *HotFolder) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// Start begins watching the directory.
func (h *HotFolder) Start(ctx context.Context) error {
	return h.worker.Start(ctx)
}

// Stop stops watching. Pending drops are kept.
func (h *HotFolder) Stop(ctx context.Context) error {
	return h.worker.Stop(ctx)
}

// State reports the watcher worker state.
func (h *HotFolder) State() worker.State {
	return h.worker.State()
}

func (h *HotFolder) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ok, err := doublestar.Match(h.config.Pattern, base)
	return err == nil && ok
}

// load decodes path and announces it. Runs on a settle timer goroutine.
func (h *HotFolder) load(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	codec, err := h.config.Resolver.ResolvePath(path, core.CapRead|core.CapFile)
	if err != nil {
		h.config.Logger.Info("hot folder: ignoring file", "path", path, "error", err)
		return
	}
	doc := core.NewDocument()
	if err := codec.NewInstance().Read(path, doc); err != nil {
		h.config.Logger.Warn("hot folder: failed to read drop", "path", path, "error", err)
		return
	}
	doc.SetFileName(path)

	h.mu.Lock()
	h.pending = append(h.pending, doc)
	h.mu.Unlock()

	h.config.Logger.Debug("hot folder: document ready", "path", path, "atoms", doc.AtomCount())
	h.Emitter().DocumentReady()
}

type folderWorker struct {
	*worker.BaseWorker
	folder  *HotFolder
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newFolderWorker(folder *HotFolder) *folderWorker {
	return &folderWorker{
		BaseWorker: worker.NewBaseWorker("hot-folder"),
		folder:     folder,
		timers:     make(map[string]*time.Timer),
	}
}

func (w *folderWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("hot folder already started (status: %s)", status)
	}
	if w.folder.config.Resolver == nil {
		return fmt.Errorf("hot folder has no resolver")
	}

	dir := w.folder.config.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create hot folder: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.watcher = watcher

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *folderWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *folderWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"dir":               w.folder.config.Dir,
		}
	})
}

func (w *folderWorker) run(ctx context.Context) (err error) {
	logger := w.folder.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("hot folder panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("hot folder panic", "error", panicErr, "stack", string(debug.Stack()))
			} else {
				logger.Error("hot folder panic", "error", panicErr)
			}
		}
	}()
	defer w.watcher.Close()
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.folder.matches(event.Name) {
				continue
			}
			w.settle(event.Name)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("fsnotify error", "error", wErr)
		}
	}
}

// settle (re)arms the load timer of path so bursts of writes load once.
func (w *folderWorker) settle(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(settleDelay)
		return
	}
	w.timers[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.folder.load(path)
	})
}

func (w *folderWorker) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
