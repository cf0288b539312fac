// Package ucperr defines the structured error taxonomy shared by every UCP
// component. It replaces ad-hoc error strings and sentinel values with a
// single sum type carrying a stable numeric code, a human-readable message,
// and optional location/suggestion/affected-block context.
package ucperr

import "fmt"

// Code is a stable, language-independent error identifier.
type Code string

// Error code ranges, see spec §7.
const (
	E001BlockNotFound    Code = "E001"
	E002InvalidBlockID   Code = "E002"
	E003LabelConflict    Code = "E003"
	E004ParentNotFound   Code = "E004"
	E005HasChildren      Code = "E005"
	E101ParseError       Code = "E101"
	E102PayloadError     Code = "E102"
	E103UnknownEdgeType  Code = "E103"
	E104UnknownPath      Code = "E104"
	E201CycleDetected    Code = "E201"
	E202InvalidParent    Code = "E202"
	E203OrphanedBlock    Code = "E203"
	E204InvalidStructure Code = "E204"
	E301TxNotFound       Code = "E301"
	E302TxInvalidState   Code = "E302"
	E303TxTimeout        Code = "E303"
	E304TxAborted        Code = "E304"
	E400BlockCountExceed Code = "E400"
	E401DocSizeExceed    Code = "E401"
	E402BlockSizeExceed  Code = "E402"
	E403NestingExceed    Code = "E403"
	E404EdgeCountExceed  Code = "E404"
	E500PathTraversal    Code = "E500"
	E501UnsafeInput      Code = "E501"
	E900Internal         Code = "E900"
)

// Severity classifies whether an issue blocks the operation or is advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Location pinpoints a parse error to a line/column in UCL source text.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Error is the single error type returned by every UCP component.
type Error struct {
	Code       Code
	Message    string
	Location   *Location
	Suggestion string
	// BlockIDs holds the textual form (e.g. "blk_...") of blocks affected
	// by the failure. Kept as strings, not content.BlockID, so this leaf
	// package never depends on the content model.
	BlockIDs []string
}

// Option configures an optional field on an Error at construction time.
type Option func(*Error)

// WithLocation attaches a parse location to the error.
func WithLocation(line, column int) Option {
	return func(e *Error) { e.Location = &Location{Line: line, Column: column} }
}

// WithSuggestion attaches a human-readable remediation hint.
func WithSuggestion(s string) Option {
	return func(e *Error) { e.Suggestion = s }
}

// WithBlocks attaches the block ids affected by the failure.
func WithBlocks(ids ...string) Option {
	return func(e *Error) { e.BlockIDs = append(e.BlockIDs, ids...) }
}

// New builds an Error with the given code and message, applying options.
func New(code Code, message string, opts ...Option) *Error {
	e := &Error{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Message, e.Location)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether err itself is a *Error carrying the given code. It is a
// plain type assertion: it is not consulted by errors.Is and does not look
// through errors that wrap a *Error.
func Is(err error, code Code) bool {
	ue, ok := err.(*Error)
	return ok && ue.Code == code
}

// Issue is a single validation finding (C7), distinct from Error in that a
// document may accumulate many issues from one validation pass without
// aborting early.
type Issue struct {
	Severity Severity
	Code     Code
	Message  string
	BlockID  string // empty when the issue is document-wide
}

func (i Issue) String() string {
	if i.BlockID != "" {
		return fmt.Sprintf("[%s] %s %s: %s", i.Severity, i.Code, i.BlockID, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Code, i.Message)
}
