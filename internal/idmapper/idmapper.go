// Package idmapper implements the ID mapper (C13): a bijection between
// BlockId and a short positive integer, used to compress UCL scripts and
// document projections for LLM prompts.
package idmapper

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// Mapper owns a bijection between BlockId and a short positive integer
// (§4.10). The root block always maps to 1.
type Mapper struct {
	toShort map[content.BlockID]int
	toLong  map[int]content.BlockID
	next    int
}

// NewMapper returns an empty mapper; call Seed or Register to populate it.
func NewMapper() *Mapper {
	return &Mapper{toShort: map[content.BlockID]int{}, toLong: map[int]content.BlockID{}, next: 1}
}

// Seed deterministically (re)seeds the mapper from doc: root receives 1,
// then every remaining block id is numbered in ascending lexical order
// starting at 2. Seeding replaces any prior bijection.
func Seed(doc *document.Document) *Mapper {
	m := NewMapper()
	m.Register(doc.Root)
	ids := make([]string, 0, len(doc.Blocks))
	for id := range doc.Blocks {
		if id == doc.Root {
			continue
		}
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	for _, s := range ids {
		m.Register(content.BlockID(s))
	}
	return m
}

// Register assigns id the next short integer if it has none yet.
// Idempotent: repeated registration of the same id returns the same short
// id.
func (m *Mapper) Register(id content.BlockID) int {
	if short, ok := m.toShort[id]; ok {
		return short
	}
	short := m.next
	m.next++
	m.toShort[id] = short
	m.toLong[short] = id
	return short
}

// ToShort returns the short id registered for id, if any.
func (m *Mapper) ToShort(id content.BlockID) (int, bool) {
	short, ok := m.toShort[id]
	return short, ok
}

// ToLong returns the BlockId registered for short, if any.
func (m *Mapper) ToLong(short int) (content.BlockID, bool) {
	id, ok := m.toLong[short]
	return id, ok
}

var blockIDPattern = regexp.MustCompile(`blk_[0-9a-f]{24}`)

// ShortenUCL replaces every full BlockId occurrence in text with its
// registered short id, registering previously-unseen ids along the way.
func (m *Mapper) ShortenUCL(text string) string {
	return blockIDPattern.ReplaceAllStringFunc(text, func(match string) string {
		short := m.Register(content.BlockID(match))
		return strconv.Itoa(short)
	})
}

// blockRefContext is the set of UCL tokens (case-insensitive) after which
// the next integer token is a block reference rather than an incidental
// numeric value (§4.10, grammar keywords of §4.8 that are followed by an
// id).
var blockRefContext = map[string]bool{
	"EDIT": true, "APPEND": true, "MOVE": true, "DELETE": true,
	"LINK": true, "UNLINK": true, "TO": true, "BEFORE": true, "AFTER": true,
}

var tokenPattern = regexp.MustCompile(`\s+|[A-Za-z_][A-Za-z0-9_.]*|[0-9]+|.`)

// ExpandUCL is the inverse of ShortenUCL, constrained to tokens whose
// syntactic context expects a block reference: a bare integer immediately
// preceded (ignoring whitespace) by a command keyword, TO/BEFORE/AFTER, or
// an edge-type keyword is expanded to its full BlockId; incidental integers
// elsewhere (e.g. AT <n>, numeric values) are preserved verbatim.
func (m *Mapper) ExpandUCL(text string) (string, error) {
	tokens := tokenPattern.FindAllString(text, -1)
	var out strings.Builder
	lastSignificant := ""
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			out.WriteString(tok)
			continue
		}
		if isInteger(tok) && expectsBlockRef(lastSignificant) {
			n, err := strconv.Atoi(tok)
			if err != nil {
				return "", ucperr.New(ucperr.E102PayloadError, "malformed short id")
			}
			id, ok := m.ToLong(n)
			if !ok {
				return "", ucperr.New(ucperr.E900Internal, fmt.Sprintf("unregistered short id %d", n))
			}
			out.WriteString(id.String())
		} else {
			out.WriteString(tok)
		}
		lastSignificant = tok
	}
	return out.String(), nil
}

func isInteger(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func expectsBlockRef(prevToken string) bool {
	if prevToken == "" {
		return false
	}
	upper := strings.ToUpper(prevToken)
	if blockRefContext[upper] {
		return true
	}
	if _, ok := content.IsValidEdgeType(prevToken); ok {
		return true
	}
	return false
}

// Savings reports a UCL text's token footprint before and after shortening,
// using the spec's fixed 4-characters-per-token approximation.
type Savings struct {
	OriginalTokens  int
	ShortenedTokens int
	Savings         int
}

// EstimateSavings computes Savings for the pair (original, shortened).
func EstimateSavings(original, shortened string) Savings {
	orig := approxTokens(original)
	short := approxTokens(shortened)
	return Savings{OriginalTokens: orig, ShortenedTokens: short, Savings: orig - short}
}

func approxTokens(s string) int {
	return (len(s) + 3) / 4
}
