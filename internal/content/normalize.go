package content

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalizeText applies the default text normalization rules (C1): Unicode
// NFC, line endings collapsed to LF, and, for plain text, whitespace runs
// collapsed to a single space. Markdown and Code text preserve whitespace
// verbatim beyond line-ending normalization.
func normalizeText(s string, format TextFormat) []byte {
	s = norm.NFC.String(s)
	s = normalizeLineEndings(s)
	if format == TextPlain {
		s = collapseWhitespace(s)
	}
	return []byte(s)
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inWS {
				b.WriteByte(' ')
				inWS = true
			}
			continue
		}
		inWS = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// normalizeJSON canonicalizes a JSON-like tree: keys are sorted, there is no
// insignificant whitespace, and numbers are rendered in their shortest
// round-trip form. The input is already a decoded Go value tree (map,
// slice, string, float64, bool, nil) as produced by the Json content
// variant; any other value type is written as a placeholder string.
func normalizeJSON(v any) []byte {
	var buf bytes.Buffer
	writeCanonicalJSON(&buf, v)
	return buf.Bytes()
}

func writeCanonicalJSON(buf *bytes.Buffer, v any) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		buf.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case string:
		buf.WriteString(strconv.Quote(t))
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalJSON(buf, e)
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(k))
			buf.WriteByte(':')
			writeCanonicalJSON(buf, t[k])
		}
		buf.WriteByte('}')
	default:
		// Unreachable for well-formed Json content values; fall back to a
		// best-effort string rendering rather than panicking.
		buf.WriteString(strconv.Quote("%!unsupported"))
	}
}
