// Package content implements the normalizer (C1), id generator (C2), and
// typed content model (C3) of the Unified Content Protocol.
package content

import "fmt"

// TextFormat enumerates the supported Text content sub-formats.
type TextFormat string

const (
	TextPlain    TextFormat = "plain"
	TextMarkdown TextFormat = "markdown"
	TextRich     TextFormat = "rich"
)

// MathFormat enumerates the supported Math content encodings.
type MathFormat string

const (
	MathLatex     MathFormat = "latex"
	MathMathML    MathFormat = "mathml"
	MathAsciiMath MathFormat = "asciimath"
)

// MediaType enumerates the supported Media content kinds.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// Layout enumerates the supported Composite arrangement strategies.
type Layout string

const (
	LayoutHorizontal Layout = "horizontal"
	LayoutVertical   Layout = "vertical"
	LayoutGrid       Layout = "grid"
	LayoutFree       Layout = "free"
)

// Tag identifies which Content variant a value holds.
type Tag string

const (
	TagText      Tag = "text"
	TagCode      Tag = "code"
	TagTable     Tag = "table"
	TagMath      Tag = "math"
	TagMedia     Tag = "media"
	TagJSON      Tag = "json"
	TagBinary    Tag = "binary"
	TagComposite Tag = "composite"
)

// Content is the sum type of everything a Block may hold. Exactly one of
// the typed accessors is meaningful for a given value, identified by Tag().
type Content interface {
	// Tag identifies which concrete variant this value is.
	Tag() Tag
	// Normalize returns the deterministic byte serialization used as input
	// to the block id generator and content hash (C1 invariant: every
	// content variant has a deterministic byte serialization).
	Normalize() []byte
}

// Text holds prose in one of three sub-formats.
type Text struct {
	TextValue string
	Format    TextFormat
}

func (t Text) Tag() Tag        { return TagText }
func (t Text) Normalize() []byte {
	b := normalizeText(t.TextValue, t.Format)
	return withTagPrefix(TagText, []byte(t.Format), b)
}

// Code holds source code in a named language, preserved verbatim.
type Code struct {
	Language string
	Source   string
}

func (c Code) Tag() Tag { return TagCode }
func (c Code) Normalize() []byte {
	b := []byte(normalizeLineEndings(c.Source))
	return withTagPrefix(TagCode, []byte(c.Language), b)
}

// Table holds tabular string data: named columns and row values.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t Table) Tag() Tag { return TagTable }
func (t Table) Normalize() []byte {
	parts := make([]any, 0, 1+len(t.Rows))
	parts = append(parts, toAnySlice(t.Columns))
	for _, row := range t.Rows {
		parts = append(parts, toAnySlice(row))
	}
	return withTagPrefix(TagTable, nil, normalizeJSON(toAnySliceAny(parts)))
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func toAnySliceAny(ss []any) []any { return ss }

// Math holds a mathematical expression in one of three encodings.
type Math struct {
	Expression  string
	DisplayMode bool
	Format      MathFormat
}

func (m Math) Tag() Tag { return TagMath }
func (m Math) Normalize() []byte {
	disp := "0"
	if m.DisplayMode {
		disp = "1"
	}
	b := []byte(normalizeLineEndings(m.Expression))
	return withTagPrefix(TagMath, []byte(string(m.Format)+"|"+disp), b)
}

// Media references an external image/audio/video resource.
type Media struct {
	MediaType MediaType
	URL       string
	AltText   *string
	Width     *int
	Height    *int
}

func (m Media) Tag() Tag { return TagMedia }
func (m Media) Normalize() []byte {
	obj := map[string]any{
		"media_type": string(m.MediaType),
		"url":        m.URL,
	}
	if m.AltText != nil {
		obj["alt_text"] = *m.AltText
	}
	if m.Width != nil {
		obj["width"] = float64(*m.Width)
	}
	if m.Height != nil {
		obj["height"] = float64(*m.Height)
	}
	return withTagPrefix(TagMedia, nil, normalizeJSON(obj))
}

// JSON holds an arbitrary canonicalizable JSON tree (decoded: map[string]any,
// []any, string, float64, bool, nil).
type JSON struct {
	Value any
}

func (j JSON) Tag() Tag          { return TagJSON }
func (j JSON) Normalize() []byte { return withTagPrefix(TagJSON, nil, normalizeJSON(j.Value)) }

// Binary holds an opaque byte payload with a MIME type.
type Binary struct {
	MimeType string
	Data     []byte
}

func (b Binary) Tag() Tag { return TagBinary }
func (b Binary) Normalize() []byte {
	return withTagPrefix(TagBinary, []byte(b.MimeType), b.Data)
}

// Composite arranges child block references in a layout.
type Composite struct {
	Layout   Layout
	Children []string // BlockID textual references; avoids import cycle with document
}

func (c Composite) Tag() Tag { return TagComposite }
func (c Composite) Normalize() []byte {
	return withTagPrefix(TagComposite, []byte(c.Layout), normalizeJSON(toAnySlice(c.Children)))
}

// withTagPrefix produces a deterministic, self-delimiting byte sequence so
// that two variants with coincidentally identical payloads but different
// tags/sub-fields never collide on content hash.
func withTagPrefix(tag Tag, sub, body []byte) []byte {
	out := make([]byte, 0, len(tag)+1+len(sub)+1+len(body))
	out = append(out, []byte(tag)...)
	out = append(out, 0x1E)
	out = append(out, sub...)
	out = append(out, 0x1E)
	out = append(out, body...)
	return out
}

// unknownTagError is returned when encoding or decoding an unrecognized
// content tag.
func unknownTagError(tag string) error {
	return fmt.Errorf("content: unknown tag %q", tag)
}
