package shop

import (
	"fmt"
	"regexp"
	"strings"
)

// Format validates codes typed by users (document numbers, plates) against a
// simplified pattern: L is a letter, N a digit, X either, anything else is
// literal and | separates alternatives. Input is normalized with NormalizeCode
// before matching.
type Format struct {
	pattern string
	re      *regexp.Regexp
}

func CompileFormat(pattern string) (*Format, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty format pattern")
	}
	var alts []string
	for _, alt := range strings.Split(pattern, "|") {
		if alt == "" {
			return nil, fmt.Errorf("format %q has an empty alternative", pattern)
		}
		var b strings.Builder
		for _, r := range alt {
			switch r {
			case 'L':
				b.WriteString("[A-Z]")
			case 'N':
				b.WriteString("[0-9]")
			case 'X':
				b.WriteString("[A-Z0-9]")
			default:
				b.WriteString(regexp.QuoteMeta(string(r)))
			}
		}
		alts = append(alts, b.String())
	}
	re, err := regexp.Compile("^(?:" + strings.Join(alts, "|") + ")$")
	if err != nil {
		return nil, fmt.Errorf("compiling format %q: %w", pattern, err)
	}
	return &Format{pattern: pattern, re: re}, nil
}

func MustCompileFormat(pattern string) *Format {
	f, err := CompileFormat(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

// Match reports whether the normalized input fits the format.
func (f *Format) Match(input string) bool {
	return f.re.MatchString(NormalizeCode(input))
}

// Example renders the first alternative with sample characters, for prompts.
func (f *Format) Example() string {
	alt, _, _ := strings.Cut(f.pattern, "|")
	letters, digits := "ABCDEFGH", "12345678"
	var b strings.Builder
	li, di := 0, 0
	for _, r := range alt {
		switch r {
		case 'L', 'X':
			b.WriteByte(letters[li%len(letters)])
			li++
		case 'N':
			b.WriteByte(digits[di%len(digits)])
			di++
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCode upper-cases the input and strips spaces, dots and dashes.
func NormalizeCode(input string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-', '\t':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(input)))
}

type DocumentType struct {
	ID     string
	Name   string
	Format *Format
}

type VehicleType struct {
	ID          string
	Name        string
	PlateFormat *Format
}

// Catalog exposes the document and vehicle types offered in the flow.
type Catalog interface {
	DocumentTypes() []DocumentType
	DocumentType(id string) (DocumentType, bool)
	VehicleTypes() []VehicleType
	VehicleType(id string) (VehicleType, bool)
}

// StaticCatalog is an in-memory Catalog.
type StaticCatalog struct {
	docs     []DocumentType
	vehicles []VehicleType
}

func NewStaticCatalog(docs []DocumentType, vehicles []VehicleType) *StaticCatalog {
	return &StaticCatalog{docs: docs, vehicles: vehicles}
}

// DefaultCatalog returns the Argentine document types and plate formats
// (legacy and Mercosur) used by the shop.
func DefaultCatalog() *StaticCatalog {
	carPlate := MustCompileFormat("LLLNNN|LLNNNLL")
	return NewStaticCatalog(
		[]DocumentType{
			{ID: "DNI", Name: "DNI", Format: MustCompileFormat("NNNNNNN|NNNNNNNN")},
			{ID: "CUIT", Name: "CUIT/CUIL", Format: MustCompileFormat("NNNNNNNNNNN")},
			{ID: "PAS", Name: "Pasaporte", Format: MustCompileFormat("LLLNNNNNN")},
		},
		[]VehicleType{
			{ID: "AUTO", Name: "Auto", PlateFormat: carPlate},
			{ID: "CAMIONETA", Name: "Camioneta", PlateFormat: carPlate},
			{ID: "UTILITARIO", Name: "Utilitario", PlateFormat: carPlate},
			{ID: "MOTO", Name: "Moto", PlateFormat: MustCompileFormat("NNNLLL|LNNNLLL")},
		},
	)
}

func (c *StaticCatalog) DocumentTypes() []DocumentType { return c.docs }
func (c *StaticCatalog) VehicleTypes() []VehicleType   { return c.vehicles }

func (c *StaticCatalog) DocumentType(id string) (DocumentType, bool) {
	for _, d := range c.docs {
		if strings.EqualFold(d.ID, id) {
			return d, true
		}
	}
	return DocumentType{}, false
}

func (c *StaticCatalog) VehicleType(id string) (VehicleType, bool) {
	for _, v := range c.vehicles {
		if strings.EqualFold(v.ID, id) {
			return v, true
		}
	}
	return VehicleType{}, false
}

// AnyPlateFormat reports whether plate matches the format of any vehicle type.
func AnyPlateFormat(c Catalog, plate string) bool {
	for _, vt := range c.VehicleTypes() {
		if vt.PlateFormat.Match(plate) {
			return true
		}
	}
	return false
}
