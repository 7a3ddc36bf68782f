// Package formats holds the Format Registry and the reference codecs.
//
// Every codec is a stream-level Serializer per format, wrapped by FileFormat which adds file access,
// atomic writes and the core.Codec contract.
package formats

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/molstage/pkg/adapters/fs"
	"github.com/aretw0/molstage/pkg/core"
)

// Serializer defines how to read and write a specific file format.
type Serializer interface {
	// Parse reads from r into doc.
	Parse(r io.Reader, doc *core.Document) error
	// Serialize converts the document to bytes.
	Serialize(doc *core.Document) ([]byte, error)
}

// FileFormat adapts a Serializer to core.Codec.
type FileFormat struct {
	id         string
	name       string
	extensions []string
	caps       core.Capability
	factory    func() Serializer
	serializer Serializer
}

// NewFileFormat describes a file based codec. factory is called once per
// instance so no serializer state is shared between jobs.
func NewFileFormat(id, name string, extensions []string, caps core.Capability, factory func() Serializer) *FileFormat {
	return &FileFormat{
		id:         id,
		name:       name,
		extensions: extensions,
		caps:       caps | core.CapFile,
		factory:    factory,
	}
}

func (f *FileFormat) Identifier() string            { return f.id }
func (f *FileFormat) Name() string                  { return f.name }
func (f *FileFormat) FileExtensions() []string      { return append([]string(nil), f.extensions...) }
func (f *FileFormat) Capabilities() core.Capability { return f.caps }
func (f *FileFormat) String() string                { return f.id }
func (f *FileFormat) NewInstance() core.Codec       { return f.instance() }

func (f *FileFormat) instance() *FileFormat {
	return &FileFormat{
		id:         f.id,
		name:       f.name,
		extensions: f.extensions,
		caps:       f.caps,
		factory:    f.factory,
		serializer: f.factory(),
	}
}

func (f *FileFormat) ser() Serializer {
	if f.serializer == nil {
		f.serializer = f.factory()
	}
	return f.serializer
}

// Read decodes path into doc.
func (f *FileFormat) Read(path string, doc *core.Document) error {
	if !f.caps.Has(core.CapRead) {
		return fmt.Errorf("format %s cannot read", f.id)
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := f.ser().Parse(file, doc); err != nil {
		return err
	}
	if doc.Name == "" {
		doc.Name = baseName(path)
	}
	return nil
}

// Write encodes doc into path atomically.
func (f *FileFormat) Write(doc *core.Document, path string) error {
	if !f.caps.Has(core.CapWrite) {
		return fmt.Errorf("format %s cannot write", f.id)
	}
	return fs.WriteAtomic(path, 0644, func(w io.Writer) error {
		data, err := f.ser().Serialize(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
}

// DefaultFormats returns the reference codecs.
func DefaultFormats() []core.Codec {
	rw := core.CapRead | core.CapWrite
	return []core.Codec{
		NewFileFormat("cml", "Chemical Markup Language", []string{"cml"}, rw,
			func() Serializer { return NewCMLSerializer() }),
		NewFileFormat("cjson", "Chemical JSON", []string{"cjson"}, rw,
			func() Serializer { return NewCJSONSerializer() }),
		NewFileFormat("xyz", "XYZ", []string{"xyz"}, rw,
			func() Serializer { return NewXYZSerializer() }),
		NewFileFormat("yaml", "Structure YAML", []string{"yaml", "yml"}, rw,
			func() Serializer { return NewYAMLSerializer() }),
	}
}
