package content

import (
	"encoding/json"
	"fmt"
)

// wireContent mirrors the canonical Document JSON content object: a "type"
// discriminator tag plus type-specific fields (§6).
type wireContent struct {
	Type string `json:"type"`

	// Text
	Text   string `json:"text,omitempty"`
	Format string `json:"format,omitempty"`

	// Code
	Language string `json:"language,omitempty"`
	Source   string `json:"source,omitempty"`

	// Table
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`

	// Math
	Expression  string `json:"expression,omitempty"`
	DisplayMode *bool  `json:"display_mode,omitempty"`

	// Media
	MediaType string `json:"media_type,omitempty"`
	URL       string `json:"url,omitempty"`
	AltText   *string `json:"alt_text,omitempty"`
	Width     *int    `json:"width,omitempty"`
	Height    *int    `json:"height,omitempty"`

	// Json
	Value any `json:"value,omitempty"`

	// Binary
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`

	// Composite
	Layout   string   `json:"layout,omitempty"`
	Children []string `json:"children,omitempty"`
}

// MarshalContent renders a Content value as its canonical JSON form.
func MarshalContent(c Content) ([]byte, error) {
	w := wireContent{Type: string(c.Tag())}
	switch v := c.(type) {
	case Text:
		w.Text = v.TextValue
		w.Format = string(v.Format)
	case Code:
		w.Language = v.Language
		w.Source = v.Source
	case Table:
		w.Columns = v.Columns
		w.Rows = v.Rows
	case Math:
		w.Expression = v.Expression
		d := v.DisplayMode
		w.DisplayMode = &d
		w.Format = string(v.Format)
	case Media:
		w.MediaType = string(v.MediaType)
		w.URL = v.URL
		w.AltText = v.AltText
		w.Width = v.Width
		w.Height = v.Height
	case JSON:
		w.Value = v.Value
	case Binary:
		w.MimeType = v.MimeType
		w.Data = v.Data
	case Composite:
		w.Layout = string(v.Layout)
		w.Children = v.Children
	default:
		return nil, unknownTagError(string(c.Tag()))
	}
	return json.Marshal(w)
}

// UnmarshalContent parses the canonical JSON form back into a Content value.
func UnmarshalContent(data []byte) (Content, error) {
	var w wireContent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("content: decode: %w", err)
	}
	switch Tag(w.Type) {
	case TagText:
		return Text{TextValue: w.Text, Format: TextFormat(w.Format)}, nil
	case TagCode:
		return Code{Language: w.Language, Source: w.Source}, nil
	case TagTable:
		return Table{Columns: w.Columns, Rows: w.Rows}, nil
	case TagMath:
		disp := false
		if w.DisplayMode != nil {
			disp = *w.DisplayMode
		}
		return Math{Expression: w.Expression, DisplayMode: disp, Format: MathFormat(w.Format)}, nil
	case TagMedia:
		return Media{MediaType: MediaType(w.MediaType), URL: w.URL, AltText: w.AltText, Width: w.Width, Height: w.Height}, nil
	case TagJSON:
		return JSON{Value: w.Value}, nil
	case TagBinary:
		return Binary{MimeType: w.MimeType, Data: w.Data}, nil
	case TagComposite:
		return Composite{Layout: Layout(w.Layout), Children: w.Children}, nil
	default:
		return nil, unknownTagError(w.Type)
	}
}
