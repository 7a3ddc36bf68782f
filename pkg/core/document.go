// Package core holds the domain of the session controller: documents, the
// collection that owns them, the codec contract and the error taxonomy.
package core

import "maps"

// MetaFileName is the metadata key holding the absolute path a document was
// read from or last written to.
const MetaFileName = "fileName"

// Metadata represents the flexible key-value pairs associated with a document.
type Metadata map[string]any

// Atom is a single atom of a structure.
type Atom struct {
	Element string  `json:"element" yaml:"element"`
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Z       float64 `json:"z" yaml:"z"`
}

// Bond connects two atoms by index.
type Bond struct {
	From  int `json:"from" yaml:"from"`
	To    int `json:"to" yaml:"to"`
	Order int `json:"order" yaml:"order"`
}

// Structure is the chemical content of a document.
type Structure struct {
	Atoms []Atom `json:"atoms" yaml:"atoms"`
	Bonds []Bond `json:"bonds" yaml:"bonds"`
}

// ChangeKind describes what a content-changing event touched.
type ChangeKind string

const (
	ChangeAtoms ChangeKind = "atoms"
	ChangeBonds ChangeKind = "bonds"
	ChangeAll   ChangeKind = "all"
)

// Document is the central entity of the domain: a molecular structure plus
// metadata. A Document is not safe for concurrent use; the session mutates
// it only from its control goroutine.
type Document struct {
	ID        string
	Name      string
	Structure Structure
	Metadata  Metadata

	listeners map[int]func(ChangeKind)
	nextID    int
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Metadata: make(Metadata)}
}

// AtomCount returns the number of atoms.
func (d *Document) AtomCount() int { return len(d.Structure.Atoms) }

// BondCount returns the number of bonds.
func (d *Document) BondCount() int { return len(d.Structure.Bonds) }

// FileName returns the fileName metadata, or "" when unset.
func (d *Document) FileName() string {
	if d.Metadata == nil {
		return ""
	}
	name, _ := d.Metadata[MetaFileName].(string)
	return name
}

// SetFileName stamps the fileName metadata. An empty name unsets it.
// Metadata updates do not raise change notifications.
func (d *Document) SetFileName(name string) {
	if d.Metadata == nil {
		d.Metadata = make(Metadata)
	}
	if name == "" {
		delete(d.Metadata, MetaFileName)
		return
	}
	d.Metadata[MetaFileName] = name
}

// AddAtom appends an atom and returns its index.
func (d *Document) AddAtom(a Atom) int {
	d.Structure.Atoms = append(d.Structure.Atoms, a)
	d.notify(ChangeAtoms)
	return len(d.Structure.Atoms) - 1
}

// AddBond connects two existing atoms. It returns false when either index is
// out of range.
func (d *Document) AddBond(from, to, order int) bool {
	n := len(d.Structure.Atoms)
	if from < 0 || to < 0 || from >= n || to >= n || from == to {
		return false
	}
	if order <= 0 {
		order = 1
	}
	d.Structure.Bonds = append(d.Structure.Bonds, Bond{From: from, To: to, Order: order})
	d.notify(ChangeBonds)
	return true
}

// SetStructure replaces the whole structure.
func (d *Document) SetStructure(s Structure) {
	d.Structure = s
	d.notify(ChangeAll)
}

// Clear removes every atom and bond.
func (d *Document) Clear() {
	d.Structure = Structure{}
	d.notify(ChangeAll)
}

// OnChange registers fn for content-changing events and returns a function
// that cancels the registration.
func (d *Document) OnChange(fn func(ChangeKind)) (cancel func()) {
	if d.listeners == nil {
		d.listeners = make(map[int]func(ChangeKind))
	}
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	return func() { delete(d.listeners, id) }
}

func (d *Document) notify(kind ChangeKind) {
	for _, fn := range d.listeners {
		fn(kind)
	}
}

// Clone returns a deep copy without identifier or listeners.
func (d *Document) Clone() *Document {
	c := &Document{
		Name:     d.Name,
		Metadata: make(Metadata, len(d.Metadata)),
	}
	maps.Copy(c.Metadata, d.Metadata)
	c.Structure.Atoms = append([]Atom(nil), d.Structure.Atoms...)
	c.Structure.Bonds = append([]Bond(nil), d.Structure.Bonds...)
	return c
}

// Replace copies structure, name and metadata from src, keeping d's
// identifier and listeners. Listeners are notified.
func (d *Document) Replace(src *Document) {
	d.Name = src.Name
	d.Metadata = make(Metadata, len(src.Metadata))
	maps.Copy(d.Metadata, src.Metadata)
	d.SetStructure(Structure{
		Atoms: append([]Atom(nil), src.Structure.Atoms...),
		Bonds: append([]Bond(nil), src.Structure.Bonds...),
	})
}

// Equivalent reports whether two documents carry the same structure.
// Coordinates are compared with tolerance since text codecs round.
func (d *Document) Equivalent(o *Document) bool {
	if len(d.Structure.Atoms) != len(o.Structure.Atoms) || len(d.Structure.Bonds) != len(o.Structure.Bonds) {
		return false
	}
	for i, a := range d.Structure.Atoms {
		b := o.Structure.Atoms[i]
		if a.Element != b.Element || !near(a.X, b.X) || !near(a.Y, b.Y) || !near(a.Z, b.Z) {
			return false
		}
	}
	for i, a := range d.Structure.Bonds {
		b := o.Structure.Bonds[i]
		if a.From != b.From || a.To != b.To || a.Order != b.Order {
			return false
		}
	}
	return true
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
