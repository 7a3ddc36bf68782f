package formats

import (
	"bufio"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/molstage/pkg/core"
)

// --- Chemical JSON Serializer ---

type cjsonPayload struct {
	ChemicalJSON int            `json:"chemicalJson"`
	Name         string         `json:"name,omitempty"`
	Atoms        cjsonAtoms     `json:"atoms"`
	Bonds        *cjsonBonds    `json:"bonds,omitempty"`
	Properties   map[string]any `json:"properties,omitempty"`
}

type cjsonAtoms struct {
	Elements struct {
		Number []int `json:"number"`
	} `json:"elements"`
	Coords struct {
		ThreeD []float64 `json:"3d"`
	} `json:"coords"`
}

type cjsonBonds struct {
	Connections struct {
		Index []int `json:"index"`
	} `json:"connections"`
	Order []int `json:"order"`
}

// CJSONSerializer handles Chemical JSON files.
type CJSONSerializer struct{}

// NewCJSONSerializer creates a new Chemical JSON serializer.
func NewCJSONSerializer() *CJSONSerializer {
	return &CJSONSerializer{}
}

func (s *CJSONSerializer) Parse(r io.Reader, doc *core.Document) error {
	var payload cjsonPayload
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return fmt.Errorf("invalid chemical json: %w", err)
	}

	numbers := payload.Atoms.Elements.Number
	coords := payload.Atoms.Coords.ThreeD
	if len(coords) != 0 && len(coords) != 3*len(numbers) {
		return fmt.Errorf("invalid chemical json: %d coordinates for %d atoms", len(coords), len(numbers))
	}

	var st core.Structure
	for i, n := range numbers {
		a := core.Atom{Element: elementSymbol(n)}
		if len(coords) > 0 {
			a.X, a.Y, a.Z = coords[3*i], coords[3*i+1], coords[3*i+2]
		}
		st.Atoms = append(st.Atoms, a)
	}

	if payload.Bonds != nil {
		idx := payload.Bonds.Connections.Index
		if len(idx)%2 != 0 {
			return errors.New("invalid chemical json: odd bond index list")
		}
		for i := 0; i < len(idx)/2; i++ {
			b := core.Bond{From: idx[2*i], To: idx[2*i+1], Order: 1}
			if i < len(payload.Bonds.Order) {
				b.Order = payload.Bonds.Order[i]
			}
			if b.From < 0 || b.To < 0 || b.From >= len(st.Atoms) || b.To >= len(st.Atoms) {
				return fmt.Errorf("invalid chemical json: bond %d references missing atom", i)
			}
			st.Bonds = append(st.Bonds, b)
		}
	}

	doc.Name = payload.Name
	maps.Copy(ensureMetadata(doc), payload.Properties)
	doc.SetStructure(st)
	return nil
}

func (s *CJSONSerializer) Serialize(doc *core.Document) ([]byte, error) {
	payload := cjsonPayload{
		ChemicalJSON: 1,
		Name:         doc.Name,
		Properties:   portableMetadata(doc),
	}
	payload.Atoms.Elements.Number = make([]int, 0, doc.AtomCount())
	payload.Atoms.Coords.ThreeD = make([]float64, 0, 3*doc.AtomCount())
	for _, a := range doc.Structure.Atoms {
		payload.Atoms.Elements.Number = append(payload.Atoms.Elements.Number, atomicNumber(a.Element))
		payload.Atoms.Coords.ThreeD = append(payload.Atoms.Coords.ThreeD, a.X, a.Y, a.Z)
	}
	if doc.BondCount() > 0 {
		payload.Bonds = &cjsonBonds{}
		for _, b := range doc.Structure.Bonds {
			payload.Bonds.Connections.Index = append(payload.Bonds.Connections.Index, b.From, b.To)
			payload.Bonds.Order = append(payload.Bonds.Order, b.Order)
		}
	}
	return json.MarshalIndent(payload, "", "  ")
}

// --- CML Serializer ---

type cmlMolecule struct {
	XMLName xml.Name  `xml:"molecule"`
	ID      string    `xml:"id,attr,omitempty"`
	Title   string    `xml:"title,attr,omitempty"`
	Atoms   []cmlAtom `xml:"atomArray>atom"`
	Bonds   []cmlBond `xml:"bondArray>bond"`
}

type cmlAtom struct {
	ID      string  `xml:"id,attr"`
	Element string  `xml:"elementType,attr"`
	X3      float64 `xml:"x3,attr"`
	Y3      float64 `xml:"y3,attr"`
	Z3      float64 `xml:"z3,attr"`
}

type cmlBond struct {
	AtomRefs2 string `xml:"atomRefs2,attr"`
	Order     string `xml:"order,attr,omitempty"`
}

// CMLSerializer handles Chemical Markup Language files. Only the molecule,
// atomArray and bondArray elements are interpreted; a surrounding <cml>
// element is accepted.
type CMLSerializer struct{}

// NewCMLSerializer creates a new CML serializer.
func NewCMLSerializer() *CMLSerializer {
	return &CMLSerializer{}
}

func (s *CMLSerializer) Parse(r io.Reader, doc *core.Document) error {
	decoder := xml.NewDecoder(r)
	var mol cmlMolecule
	found := false
	for !found {
		tok, err := decoder.Token()
		if err == io.EOF {
			return errors.New("invalid cml: no molecule element")
		}
		if err != nil {
			return fmt.Errorf("invalid cml: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "molecule" {
			if err := decoder.DecodeElement(&mol, &se); err != nil {
				return fmt.Errorf("invalid cml: %w", err)
			}
			found = true
		}
	}

	index := make(map[string]int, len(mol.Atoms))
	var st core.Structure
	for i, a := range mol.Atoms {
		id := a.ID
		if id == "" {
			id = fmt.Sprintf("a%d", i+1)
		}
		index[id] = i
		st.Atoms = append(st.Atoms, core.Atom{Element: normalizeSymbol(a.Element), X: a.X3, Y: a.Y3, Z: a.Z3})
	}
	for i, b := range mol.Bonds {
		refs := strings.Fields(b.AtomRefs2)
		if len(refs) != 2 {
			return fmt.Errorf("invalid cml: bond %d needs two atom references", i)
		}
		from, ok1 := index[refs[0]]
		to, ok2 := index[refs[1]]
		if !ok1 || !ok2 {
			return fmt.Errorf("invalid cml: bond %d references unknown atom", i)
		}
		st.Bonds = append(st.Bonds, core.Bond{From: from, To: to, Order: cmlOrder(b.Order)})
	}

	doc.Name = mol.Title
	doc.SetStructure(st)
	return nil
}

func (s *CMLSerializer) Serialize(doc *core.Document) ([]byte, error) {
	mol := cmlMolecule{ID: "m1", Title: doc.Name}
	for i, a := range doc.Structure.Atoms {
		mol.Atoms = append(mol.Atoms, cmlAtom{
			ID:      fmt.Sprintf("a%d", i+1),
			Element: a.Element,
			X3:      a.X,
			Y3:      a.Y,
			Z3:      a.Z,
		})
	}
	for _, b := range doc.Structure.Bonds {
		mol.Bonds = append(mol.Bonds, cmlBond{
			AtomRefs2: fmt.Sprintf("a%d a%d", b.From+1, b.To+1),
			Order:     strconv.Itoa(b.Order),
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := encoder.Encode(mol); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func cmlOrder(order string) int {
	switch strings.ToUpper(order) {
	case "D", "2":
		return 2
	case "T", "3":
		return 3
	default:
		return 1
	}
}

// --- XYZ Serializer ---

// XYZSerializer handles plain XYZ coordinate files. The format carries no
// bonds; they are dropped on write.
type XYZSerializer struct{}

// NewXYZSerializer creates a new XYZ serializer.
func NewXYZSerializer() *XYZSerializer {
	return &XYZSerializer{}
}

func (s *XYZSerializer) Parse(r io.Reader, doc *core.Document) error {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return errors.New("invalid xyz: missing atom count")
	}
	count, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || count < 0 {
		return fmt.Errorf("invalid xyz: bad atom count %q", scanner.Text())
	}
	if !scanner.Scan() {
		return errors.New("invalid xyz: missing comment line")
	}
	name := strings.TrimSpace(scanner.Text())

	var st core.Structure
	for line := 3; len(st.Atoms) < count; line++ {
		if !scanner.Scan() {
			return fmt.Errorf("invalid xyz: expected %d atoms, found %d", count, len(st.Atoms))
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			return fmt.Errorf("invalid xyz: line %d: expected element and three coordinates", line)
		}
		var xyz [3]float64
		for i := range xyz {
			if xyz[i], err = strconv.ParseFloat(fields[i+1], 64); err != nil {
				return fmt.Errorf("invalid xyz: line %d: %w", line, err)
			}
		}
		st.Atoms = append(st.Atoms, core.Atom{Element: normalizeSymbol(fields[0]), X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	doc.Name = name
	doc.SetStructure(st)
	return nil
}

func (s *XYZSerializer) Serialize(doc *core.Document) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d\n%s\n", doc.AtomCount(), strings.ReplaceAll(doc.Name, "\n", " "))
	for _, a := range doc.Structure.Atoms {
		fmt.Fprintf(&buf, "%-2s %14.8f %14.8f %14.8f\n", a.Element, a.X, a.Y, a.Z)
	}
	return buf.Bytes(), nil
}

// --- YAML Serializer ---

type yamlPayload struct {
	Name     string         `yaml:"name,omitempty"`
	Atoms    []core.Atom    `yaml:"atoms"`
	Bonds    []core.Bond    `yaml:"bonds,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// YAMLSerializer stores the structure as a readable YAML document.
type YAMLSerializer struct{}

// NewYAMLSerializer creates a new YAML serializer.
func NewYAMLSerializer() *YAMLSerializer {
	return &YAMLSerializer{}
}

func (s *YAMLSerializer) Parse(r io.Reader, doc *core.Document) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	var payload yamlPayload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid yaml: %w", err)
	}
	for i, b := range payload.Bonds {
		if b.From < 0 || b.To < 0 || b.From >= len(payload.Atoms) || b.To >= len(payload.Atoms) {
			return fmt.Errorf("invalid yaml: bond %d references missing atom", i)
		}
	}
	for i := range payload.Atoms {
		payload.Atoms[i].Element = normalizeSymbol(payload.Atoms[i].Element)
	}

	doc.Name = payload.Name
	maps.Copy(ensureMetadata(doc), payload.Metadata)
	doc.SetStructure(core.Structure{Atoms: payload.Atoms, Bonds: payload.Bonds})
	return nil
}

func (s *YAMLSerializer) Serialize(doc *core.Document) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(yamlPayload{
		Name:     doc.Name,
		Atoms:    doc.Structure.Atoms,
		Bonds:    doc.Structure.Bonds,
		Metadata: portableMetadata(doc),
	}); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- Helpers ---

// portableMetadata drops keys that describe where the document lives rather
// than what it is.
func portableMetadata(doc *core.Document) map[string]any {
	if len(doc.Metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(doc.Metadata))
	for k, v := range doc.Metadata {
		if k == core.MetaFileName {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func ensureMetadata(doc *core.Document) core.Metadata {
	if doc.Metadata == nil {
		doc.Metadata = make(core.Metadata)
	}
	return doc.Metadata
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
