// Package operation implements the primitive mutation operations of C8,
// each applied atomically: either the full mutation with index maintenance
// commits, or the operation fails and the document is left unchanged.
package operation

import (
	"fmt"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// EditOperator selects how Edit applies Value at Path (§4.5).
type EditOperator string

const (
	EditSet    EditOperator = "set"
	EditAppend EditOperator = "append"
	EditRemove EditOperator = "remove"
)

// PruneCondition selects which blocks Prune removes.
type PruneCondition struct {
	Unreachable bool
	Tag         string
	Role        string
	Predicate   func(content.Block) bool
}

// Operation is the sum type of every primitive mutation (§4.5). Exactly one
// field group is populated, selected by Kind.
type Operation struct {
	Kind Kind

	// Edit
	EditBlockID content.BlockID
	EditOp      EditOperator
	EditPath    string
	EditValue   any

	// Append
	AppendParentID content.BlockID
	AppendContent  content.Content
	AppendLabel    *string
	AppendTags     []string
	AppendRole     *string
	AppendIndex    *int

	// Move
	MoveBlockID  content.BlockID
	MoveNewParent content.BlockID
	MoveIndex    *int

	// Delete
	DeleteBlockID        content.BlockID
	DeleteCascade        bool
	DeletePreserveChildren bool

	// Prune
	PruneCond PruneCondition

	// Link / Unlink
	LinkSource     content.BlockID
	LinkEdgeType   content.EdgeType
	LinkTarget     content.BlockID
	LinkConfidence *float64
	LinkMetadata   map[string]any

	// CreateSnapshot / RestoreSnapshot: name/description only; the snapshot
	// store itself lives in internal/snapshot and is driven by the caller,
	// since a document has no knowledge of its own snapshot store (§4.7).
	SnapshotName        string
	SnapshotDescription *string
}

// Kind discriminates an Operation's variant.
type Kind string

const (
	KindEdit            Kind = "edit"
	KindAppend          Kind = "append"
	KindMove            Kind = "move"
	KindDelete          Kind = "delete"
	KindPrune           Kind = "prune"
	KindLink            Kind = "link"
	KindUnlink          Kind = "unlink"
	KindCreateSnapshot  Kind = "create_snapshot"
	KindRestoreSnapshot Kind = "restore_snapshot"
)

// Result reports the outcome of Execute (§4.5).
type Result struct {
	Success        bool
	AffectedBlocks []content.BlockID
	Error          error
}

// Execute applies op to doc. CreateSnapshot/RestoreSnapshot are not handled
// here: they require a snapshot store, and are instead dispatched by the
// caller (typically the UCL executor) directly against internal/snapshot.
func Execute(doc *document.Document, op Operation) Result {
	switch op.Kind {
	case KindEdit:
		return execEdit(doc, op)
	case KindAppend:
		return execAppend(doc, op)
	case KindMove:
		return execMove(doc, op)
	case KindDelete:
		return execDelete(doc, op)
	case KindPrune:
		return execPrune(doc, op)
	case KindLink:
		return execLink(doc, op)
	case KindUnlink:
		return execUnlink(doc, op)
	default:
		return Result{Success: false, Error: ucperr.New(ucperr.E900Internal, fmt.Sprintf("unsupported operation kind for direct execution: %s", op.Kind))}
	}
}

func execEdit(doc *document.Document, op Operation) Result {
	err := doc.UpdateBlock(op.EditBlockID, func(b content.Block) (content.Block, error) {
		return applyEdit(b, op)
	})
	if err != nil {
		return Result{Success: false, Error: err}
	}
	return Result{Success: true, AffectedBlocks: []content.BlockID{op.EditBlockID}}
}

// applyEdit mutates a cloned block per the operator/path rules of §4.5. Set
// replaces; Append appends for list-like paths and concatenates for text;
// Remove deletes list elements or nulls scalars.
func applyEdit(b content.Block, op Operation) (content.Block, error) {
	switch op.EditPath {
	case "text", "content.text":
		return applyTextEdit(b, op)
	case "metadata.label":
		return applyLabelEdit(b, op)
	case "metadata.summary":
		return applySummaryEdit(b, op)
	case "metadata.tags":
		return applyTagsEdit(b, op)
	default:
		if key, ok := customKey(op.EditPath); ok {
			return applyCustomEdit(b, op, key)
		}
		return b, ucperr.New(ucperr.E102PayloadError, fmt.Sprintf("unsupported edit path %q", op.EditPath))
	}
}

func customKey(path string) (string, bool) {
	const prefix = "metadata.custom."
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		return path[len(prefix):], true
	}
	return "", false
}

func applyTextEdit(b content.Block, op Operation) (content.Block, error) {
	text, ok := b.Content.(content.Text)
	if !ok {
		return b, ucperr.New(ucperr.E102PayloadError, "text edit path applies only to Text content blocks")
	}
	switch op.EditOp {
	case EditSet:
		s, _ := op.EditValue.(string)
		text.TextValue = s
	case EditAppend:
		s, _ := op.EditValue.(string)
		text.TextValue += s
	case EditRemove:
		text.TextValue = ""
	default:
		return b, ucperr.New(ucperr.E102PayloadError, "unknown edit operator")
	}
	b.Content = text
	b.Metadata.ContentHash = content.NewContentHash(text.Normalize())
	return b, nil
}

func applyLabelEdit(b content.Block, op Operation) (content.Block, error) {
	switch op.EditOp {
	case EditSet:
		s, _ := op.EditValue.(string)
		b.Metadata.Label = &s
	case EditRemove:
		b.Metadata.Label = nil
	default:
		return b, ucperr.New(ucperr.E102PayloadError, "label only supports set/remove")
	}
	return b, nil
}

func applySummaryEdit(b content.Block, op Operation) (content.Block, error) {
	switch op.EditOp {
	case EditSet:
		s, _ := op.EditValue.(string)
		b.Metadata.Summary = &s
	case EditRemove:
		b.Metadata.Summary = nil
	default:
		return b, ucperr.New(ucperr.E102PayloadError, "summary only supports set/remove")
	}
	return b, nil
}

func applyTagsEdit(b content.Block, op Operation) (content.Block, error) {
	values := toStringSlice(op.EditValue)
	switch op.EditOp {
	case EditSet:
		b.Metadata.Tags = content.NewStringSet(values...)
	case EditAppend:
		for _, v := range values {
			b.Metadata.Tags.Add(v)
		}
	case EditRemove:
		for _, v := range values {
			b.Metadata.Tags.Remove(v)
		}
	default:
		return b, ucperr.New(ucperr.E102PayloadError, "unknown edit operator")
	}
	return b, nil
}

func applyCustomEdit(b content.Block, op Operation, key string) (content.Block, error) {
	if b.Metadata.Custom == nil {
		b.Metadata.Custom = map[string]any{}
	}
	switch op.EditOp {
	case EditSet:
		b.Metadata.Custom[key] = op.EditValue
	case EditRemove:
		delete(b.Metadata.Custom, key)
	case EditAppend:
		existing, _ := b.Metadata.Custom[key].([]any)
		b.Metadata.Custom[key] = append(existing, op.EditValue)
	default:
		return b, ucperr.New(ucperr.E102PayloadError, "unknown edit operator")
	}
	return b, nil
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func execAppend(doc *document.Document, op Operation) Result {
	index := len(doc.Structure[op.AppendParentID])
	in := document.NewBlockInput{
		Content:      op.AppendContent,
		Label:        op.AppendLabel,
		Tags:         op.AppendTags,
		SemanticRole: op.AppendRole,
	}
	var id content.BlockID
	var err error
	if op.AppendIndex != nil {
		id, err = doc.AddBlockAt(op.AppendParentID, in, *op.AppendIndex)
	} else {
		id, err = doc.AddBlockAt(op.AppendParentID, in, index)
	}
	if err != nil {
		return Result{Success: false, Error: err}
	}
	return Result{Success: true, AffectedBlocks: []content.BlockID{id}}
}

func execMove(doc *document.Document, op Operation) Result {
	if err := doc.MoveBlock(op.MoveBlockID, op.MoveNewParent, op.MoveIndex); err != nil {
		return Result{Success: false, Error: err}
	}
	return Result{Success: true, AffectedBlocks: []content.BlockID{op.MoveBlockID}}
}

func execDelete(doc *document.Document, op Operation) Result {
	affected := append([]content.BlockID{op.DeleteBlockID}, doc.Descendants(op.DeleteBlockID)...)
	if err := doc.DeleteBlock(op.DeleteBlockID, op.DeleteCascade, op.DeletePreserveChildren); err != nil {
		return Result{Success: false, Error: err}
	}
	return Result{Success: true, AffectedBlocks: affected}
}

func execPrune(doc *document.Document, op Operation) Result {
	cond := op.PruneCond
	switch {
	case cond.Unreachable:
		removed := doc.PruneUnreachable()
		return Result{Success: true, AffectedBlocks: removed}
	case cond.Tag != "":
		return pruneWhere(doc, func(b content.Block) bool { return b.Metadata.Tags.Has(cond.Tag) })
	case cond.Role != "":
		return pruneWhere(doc, func(b content.Block) bool {
			return b.Metadata.SemanticRole != nil && string(*b.Metadata.SemanticRole) == cond.Role
		})
	case cond.Predicate != nil:
		return pruneWhere(doc, cond.Predicate)
	default:
		return Result{Success: false, Error: ucperr.New(ucperr.E900Internal, "prune condition not specified")}
	}
}

// pruneWhere deletes (cascade) every live block matching predicate. Matches
// are collected before any deletion so that removing a matched ancestor
// does not change which of its descendants were independently matched
// (§9 open question: PRUNE WHERE scope is "all live blocks matching the
// predicate at the time of evaluation, not a post-deletion re-scan").
func pruneWhere(doc *document.Document, predicate func(content.Block) bool) Result {
	var matches []content.BlockID
	for id, b := range doc.Blocks {
		if id == doc.Root {
			continue
		}
		if predicate(b) {
			matches = append(matches, id)
		}
	}
	var affected []content.BlockID
	for _, id := range matches {
		if _, err := doc.GetBlock(id); err != nil {
			continue // already removed as a descendant of an earlier match
		}
		affected = append(affected, id)
		affected = append(affected, doc.Descendants(id)...)
		if err := doc.DeleteBlock(id, true, false); err != nil {
			return Result{Success: false, Error: err}
		}
	}
	return Result{Success: true, AffectedBlocks: affected}
}

func execLink(doc *document.Document, op Operation) Result {
	if err := doc.AddEdge(op.LinkSource, op.LinkEdgeType, op.LinkTarget, op.LinkConfidence, op.LinkMetadata); err != nil {
		return Result{Success: false, Error: err}
	}
	return Result{Success: true, AffectedBlocks: []content.BlockID{op.LinkSource, op.LinkTarget}}
}

func execUnlink(doc *document.Document, op Operation) Result {
	if err := doc.RemoveEdge(op.LinkSource, op.LinkEdgeType, op.LinkTarget); err != nil {
		return Result{Success: false, Error: err}
	}
	return Result{Success: true, AffectedBlocks: []content.BlockID{op.LinkSource, op.LinkTarget}}
}
