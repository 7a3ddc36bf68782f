package formats

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/introspection"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/molstage/pkg/core"
)

// nonExtensions are "extensions" that are really whole file names
// (VASP and DL-POLY conventions). They are matched verbatim.
var nonExtensions = []string{"POSCAR", "CONTCAR", "HISTORY", "CONFIG"}

// Config holds the configuration for a Registry.
type Config struct {
	Logger  *slog.Logger
	Chooser core.FormatChooser
}

// Registry resolves paths and format identifiers to codecs. Several codecs
// may claim the same extension; the registry never guesses between them.
type Registry struct {
	mu      sync.RWMutex
	codecs  map[string]core.Codec
	order   []string
	chooser core.FormatChooser
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(config Config) *Registry {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		codecs:  make(map[string]core.Codec),
		chooser: config.Chooser,
		logger:  logger,
	}
}

// SetChooser replaces the interactive collaborator.
func (r *Registry) SetChooser(chooser core.FormatChooser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chooser = chooser
}

// Register adds a codec. Identifiers must be unique.
func (r *Registry) Register(c core.Codec) error {
	if c == nil || c.Identifier() == "" {
		return fmt.Errorf("codec has no identifier")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.Identifier()
	if _, ok := r.codecs[id]; ok {
		return fmt.Errorf("format %q already registered", id)
	}
	r.codecs[id] = c
	r.order = append(r.order, id)
	r.logger.Debug("format registered", "id", id, "extensions", c.FileExtensions(), "caps", c.Capabilities())
	return nil
}

// ByIdentifier returns the codec registered under id.
func (r *Registry) ByIdentifier(id string) (core.Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[id]
	return c, ok
}

// Codecs returns every codec supporting caps, in registration order.
func (r *Registry) Codecs(caps core.Capability) []core.Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []core.Codec
	for _, id := range r.order {
		if c := r.codecs[id]; c.Capabilities().Has(caps) {
			out = append(out, c)
		}
	}
	return out
}

// ByExtension returns all codecs claiming ext (with or without a leading dot).
func (r *Registry) ByExtension(ext string, caps core.Capability) []core.Codec {
	ext = strings.TrimPrefix(ext, ".")
	var out []core.Codec
	for _, c := range r.Codecs(caps) {
		for _, e := range c.FileExtensions() {
			if strings.EqualFold(e, ext) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// ForPath returns all codecs claiming path, either by extension or by whole
// file name.
func (r *Registry) ForPath(path string, caps core.Capability) []core.Codec {
	base := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")

	var out []core.Codec
	for _, c := range r.Codecs(caps) {
		for _, e := range c.FileExtensions() {
			if (ext != "" && strings.EqualFold(e, ext)) || e == base {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// ResolveByExtension picks the single codec for ext.
func (r *Registry) ResolveByExtension(ext string, caps core.Capability) (core.Codec, error) {
	return r.pick(ext, r.ByExtension(ext, caps))
}

// ResolvePath picks the single codec for path, asking the chooser when
// several codecs claim it.
func (r *Registry) ResolvePath(path string, caps core.Capability) (core.Codec, error) {
	if path == "" {
		return nil, &core.ResolutionError{Err: core.ErrEmptyPath}
	}
	return r.pick(path, r.ForPath(path, caps))
}

func (r *Registry) pick(path string, candidates []core.Codec) (core.Codec, error) {
	switch len(candidates) {
	case 0:
		return nil, &core.ResolutionError{Path: path, Err: core.ErrNoCodec}
	case 1:
		return candidates[0], nil
	}

	r.mu.RLock()
	chooser := r.chooser
	r.mu.RUnlock()

	if chooser != nil {
		if c := chooser.ChooseFormat(path, candidates); c != nil {
			return c, nil
		}
	}
	return nil, &core.ResolutionError{Path: path, Candidates: identifiers(candidates), Err: core.ErrAmbiguousFormat}
}

// ResolveInteractive asks the chooser for a file and format, starting in
// defaultDir. When the chooser names a path but no format, the path is
// resolved like ResolvePath.
func (r *Registry) ResolveInteractive(intent core.Intent, defaultDir string) (core.Codec, string, error) {
	r.mu.RLock()
	chooser := r.chooser
	r.mu.RUnlock()
	if chooser == nil {
		return nil, "", &core.ResolutionError{Err: fmt.Errorf("%w: no interactive chooser", core.ErrNoCodec)}
	}

	caps := capsFor(intent)
	codec, path := chooser.ChooseFile(intent, defaultDir, r.Codecs(caps))
	if path == "" {
		return nil, "", core.ErrCancelled
	}
	if codec != nil {
		if !codec.Capabilities().Has(caps) {
			return nil, path, &core.ResolutionError{Path: path, Err: fmt.Errorf("%w: %s cannot %s", core.ErrNoCodec, codec.Identifier(), intent)}
		}
		return codec, path, nil
	}
	codec, err := r.ResolvePath(path, caps)
	return codec, path, err
}

// ReadExtensions returns every extension a readable file codec claims.
func (r *Registry) ReadExtensions() []string {
	seen := make(map[string]bool)
	for _, c := range r.Codecs(core.CapRead | core.CapFile) {
		for _, e := range c.FileExtensions() {
			seen[e] = true
		}
	}
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Patterns returns wildcard patterns for every codec supporting caps.
func (r *Registry) Patterns(caps core.Capability) []string {
	var out []string
	for _, c := range r.Codecs(caps) {
		for _, e := range c.FileExtensions() {
			if p := WildCard(e); !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Supports reports whether path matches any pattern of a codec supporting caps.
func (r *Registry) Supports(path string, caps core.Capability) bool {
	base := filepath.Base(path)
	for _, p := range r.Patterns(caps) {
		name := base
		if strings.HasPrefix(p, "*.") {
			p, name = strings.ToLower(p), strings.ToLower(base)
		}
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// FilterString renders a dialog filter such as
// "Chemical JSON (*.cjson);;Chemical Markup Language (*.cml);;".
// With addAll, "All supported formats" and "All files" entries are prepended.
func (r *Registry) FilterString(caps core.Capability, addAll bool) string {
	byName := make(map[string][]string)
	var names []string
	for _, c := range r.Codecs(caps) {
		if _, ok := byName[c.Name()]; !ok {
			names = append(names, c.Name())
		}
		for _, e := range c.FileExtensions() {
			if p := WildCard(e); !slices.Contains(byName[c.Name()], p) {
				byName[c.Name()] = append(byName[c.Name()], p)
			}
		}
	}
	sort.Strings(names)

	var b strings.Builder
	var all []string
	for _, name := range names {
		all = append(all, byName[name]...)
		fmt.Fprintf(&b, "%s (%s);;", name, strings.Join(byName[name], " "))
	}
	if addAll {
		return fmt.Sprintf("All supported formats (%s);;All files (*);;", strings.Join(all, " ")) + b.String()
	}
	return b.String()
}

// WildCard turns an extension into a file pattern.
func WildCard(ext string) string {
	if slices.Contains(nonExtensions, ext) {
		return ext
	}
	return "*." + ext
}

func capsFor(intent core.Intent) core.Capability {
	if intent == core.IntentWrite {
		return core.CapWrite | core.CapFile
	}
	return core.CapRead | core.CapFile
}

func identifiers(codecs []core.Codec) []string {
	ids := make([]string, len(codecs))
	for i, c := range codecs {
		ids[i] = c.Identifier()
	}
	return ids
}

// RegistryState exposes internal state for observability.
type RegistryState struct {
	Formats        []string `json:"formats"`
	ReadExtensions []string `json:"read_extensions"`
	Interactive    bool     `json:"interactive"`
}

// State implements introspection.Introspectable.
func (r *Registry) State() any {
	r.mu.RLock()
	formats := append([]string(nil), r.order...)
	interactive := r.chooser != nil
	r.mu.RUnlock()

	return RegistryState{
		Formats:        formats,
		ReadExtensions: r.ReadExtensions(),
		Interactive:    interactive,
	}
}

// ComponentType implements introspection.Component.
func (r *Registry) ComponentType() string {
	return "format-registry"
}

var _ introspection.Introspectable = (*Registry)(nil)
var _ introspection.Component = (*Registry)(nil)
