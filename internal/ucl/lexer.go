// Package ucl implements the UCL command parser (C11) and executor (C12):
// a small textual command language for driving document mutations, with a
// grammar and keyword set independent of any particular host language.
package ucl

import (
	"strings"
	"unicode"

	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// TokenKind discriminates a lexical token.
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokKeyword
	TokNumber
	TokBlockID
	TokString
	TokPunct   // :: { } , [ ]
	TokOp      // = += -=
	TokNewline
	TokEOF
	// TokRawLine holds the free-form payload that follows a "::" token,
	// taken verbatim from the source up to (not including) the terminating
	// newline (a WRITE_SECTION payload instead runs to end of input; a "}"
	// on the same line is part of the payload): content is never
	// re-lexed, so it may contain any character (markdown, punctuation,
	// quotes) without tripping the command lexer.
	TokRawLine
)

// Token is one lexical unit with its source position (1-based line/column).
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int
	Column int
}

// keywords is the case-insensitive reserved word set of §4.8.
var keywords = map[string]bool{
	"EDIT": true, "APPEND": true, "MOVE": true, "DELETE": true, "LINK": true,
	"UNLINK": true, "PRUNE": true, "SNAPSHOT": true, "WRITE_SECTION": true,
	"ATOMIC": true, "SET": true, "TO": true, "BEFORE": true, "AFTER": true,
	"WITH": true, "AT": true, "CASCADE": true, "PRESERVE_CHILDREN": true,
	"CREATE": true, "RESTORE": true, "LIST": true, "WHERE": true,
	"UNREACHABLE": true, "REMOVE": true,
}

// commandKeywords is the subset of keywords that start a top-level (or
// ATOMIC-body) command, used to decide how a "::" payload is captured.
var commandKeywords = map[string]bool{
	"EDIT": true, "APPEND": true, "MOVE": true, "DELETE": true, "LINK": true,
	"UNLINK": true, "PRUNE": true, "SNAPSHOT": true, "WRITE_SECTION": true,
	"ATOMIC": true,
}

// Lexer scans UCL source text into a token stream.
type Lexer struct {
	src        []rune
	pos        int
	line, col  int

	// lastCommandKeyword is the most recently seen command keyword,
	// tracked so captureRawLine can tell a WRITE_SECTION payload (which
	// runs to end of script, since it holds a multi-line Markdown
	// document) from every other "::" payload (single line).
	lastCommandKeyword string
}

// NewLexer returns a Lexer positioned at the start of src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// Tokenize scans the entire source into a token slice terminated by TokEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks, nil
		}
		if tok.Kind == TokPunct && tok.Text == "::" {
			if l.lastCommandKeyword == "WRITE_SECTION" {
				toks = append(toks, l.captureToEnd())
			} else {
				toks = append(toks, l.captureRawLine())
			}
		}
	}
}

// captureRawLine reads verbatim source text, starting after any single
// leading space, up to (not including) the next newline or end of input.
func (l *Lexer) captureRawLine() Token {
	line, col := l.line, l.col
	if l.peek() == ' ' {
		l.advance()
	}
	var b strings.Builder
	for l.pos < len(l.src) && l.peek() != '\n' {
		b.WriteRune(l.advance())
	}
	return Token{Kind: TokRawLine, Text: b.String(), Line: line, Column: col}
}

// captureToEnd reads verbatim source text, starting after any single
// leading space, to end of input: WRITE_SECTION's payload is a (possibly
// multi-line) Markdown document, not a single command argument, so it
// claims the remainder of the script (§9: WRITE_SECTION's own production
// is not spelled out in the distilled grammar beyond its name).
func (l *Lexer) captureToEnd() Token {
	line, col := l.line, l.col
	if l.peek() == ' ' {
		l.advance()
	}
	var b strings.Builder
	for l.pos < len(l.src) {
		b.WriteRune(l.advance())
	}
	text := b.String()
	text = strings.TrimRight(text, "\n")
	return Token{Kind: TokRawLine, Text: text, Line: line, Column: col}
}

func (l *Lexer) next() (Token, error) {
	l.skipSpacesAndComments()
	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return Token{Kind: TokEOF, Line: line, Column: col}, nil
	}
	r := l.peek()
	switch {
	case r == '\n':
		l.advance()
		return Token{Kind: TokNewline, Text: "\n", Line: line, Column: col}, nil
	case r == '"':
		return l.lexString(line, col)
	case unicode.IsDigit(r):
		return l.lexNumber(line, col), nil
	case r == '_' || unicode.IsLetter(r):
		return l.lexIdent(line, col), nil
	case r == ':' && l.peekAt(1) == ':':
		l.advance()
		l.advance()
		return Token{Kind: TokPunct, Text: "::", Line: line, Column: col}, nil
	case r == '{' || r == '}' || r == ',':
		l.advance()
		return Token{Kind: TokPunct, Text: string(r), Line: line, Column: col}, nil
	case r == '+' && l.peekAt(1) == '=':
		l.advance()
		l.advance()
		return Token{Kind: TokOp, Text: "+=", Line: line, Column: col}, nil
	case r == '-' && l.peekAt(1) == '=':
		l.advance()
		l.advance()
		return Token{Kind: TokOp, Text: "-=", Line: line, Column: col}, nil
	case r == '[' || r == ']':
		l.advance()
		return Token{Kind: TokPunct, Text: string(r), Line: line, Column: col}, nil
	case r == '=':
		l.advance()
		return Token{Kind: TokOp, Text: "=", Line: line, Column: col}, nil
	default:
		return Token{}, ucperr.New(ucperr.E101ParseError, "unexpected character "+string(r), ucperr.WithLocation(line, col))
	}
}

func (l *Lexer) skipSpacesAndComments() {
	for l.pos < len(l.src) {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\r' {
			l.advance()
			continue
		}
		if r == '/' && l.peekAt(1) == '/' {
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		return
	}
}

func (l *Lexer) lexIdent(line, col int) Token {
	var b strings.Builder
	for l.pos < len(l.src) {
		r := l.peek()
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(l.advance())
			continue
		}
		// a dot continues the identifier only when followed by another
		// identifier character, so a path like metadata.tags lexes as one
		// token while a trailing "." never gets swallowed.
		if r == '.' && (unicode.IsLetter(l.peekAt(1)) || l.peekAt(1) == '_') {
			b.WriteRune(l.advance())
			continue
		}
		break
	}
	text := b.String()
	if upper := strings.ToUpper(text); keywords[upper] {
		if commandKeywords[upper] {
			l.lastCommandKeyword = upper
		}
		return Token{Kind: TokKeyword, Text: upper, Line: line, Column: col}
	}
	// full block id: blk_ followed by hex
	if strings.HasPrefix(text, "blk_") {
		return Token{Kind: TokBlockID, Text: text, Line: line, Column: col}
	}
	return Token{Kind: TokIdent, Text: text, Line: line, Column: col}
}

func (l *Lexer) lexNumber(line, col int) Token {
	var b strings.Builder
	for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
		b.WriteRune(l.advance())
	}
	// allow a decimal fraction (confidence/float props)
	if l.peek() == '.' && unicode.IsDigit(l.peekAt(1)) {
		b.WriteRune(l.advance())
		for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
			b.WriteRune(l.advance())
		}
	}
	return Token{Kind: TokNumber, Text: b.String(), Line: line, Column: col}
}

func (l *Lexer) lexString(line, col int) (Token, error) {
	l.advance() // opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, ucperr.New(ucperr.E101ParseError, "unterminated string literal", ucperr.WithLocation(line, col))
		}
		r := l.advance()
		if r == '"' {
			return Token{Kind: TokString, Text: b.String(), Line: line, Column: col}, nil
		}
		if r == '\\' {
			if l.pos >= len(l.src) {
				return Token{}, ucperr.New(ucperr.E101ParseError, "unterminated escape in string literal", ucperr.WithLocation(line, col))
			}
			esc := l.advance()
			switch esc {
			case '"':
				b.WriteRune('"')
			case '\\':
				b.WriteRune('\\')
			case 'n':
				b.WriteRune('\n')
			default:
				return Token{}, ucperr.New(ucperr.E101ParseError, "unknown escape sequence", ucperr.WithLocation(line, col))
			}
			continue
		}
		b.WriteRune(r)
	}
}
