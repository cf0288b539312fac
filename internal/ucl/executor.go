package ucl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/idmapper"
	"github.com/antonio7098/unified-content-protocol/internal/operation"
	"github.com/antonio7098/unified-content-protocol/internal/section"
	"github.com/antonio7098/unified-content-protocol/internal/snapshot"
	"github.com/antonio7098/unified-content-protocol/internal/telemetry"
	"github.com/antonio7098/unified-content-protocol/internal/transaction"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// Executor runs a parsed UCL script against a live document (C12): each
// top-level command maps to one or more §4.5 operations, dispatched
// directly or, inside ATOMIC { … }, through a transaction.
type Executor struct {
	doc       *document.Document
	mapper    *idmapper.Mapper
	snapshots snapshot.Store
	tx        *transaction.Manager
	logger    telemetry.Logger
}

// Option configures optional Executor dependencies.
type Option func(*Executor)

// WithLogger sets the logger used for per-command dispatch logging. When
// not given, the Executor uses telemetry.NewNopLogger().
func WithLogger(l telemetry.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor binds an Executor to doc. mapper resolves short block ids;
// snapshots (optional, may be nil if the script never issues SNAPSHOT) is
// the store SNAPSHOT CREATE/RESTORE/DELETE/LIST commands are run against.
func NewExecutor(doc *document.Document, mapper *idmapper.Mapper, snapshots snapshot.Store, tx *transaction.Manager, opts ...Option) *Executor {
	e := &Executor{doc: doc, mapper: mapper, snapshots: snapshots, tx: tx, logger: telemetry.NewNopLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Document returns the document the executor is currently bound to: a
// successful ATOMIC block or SNAPSHOT RESTORE replaces it.
func (e *Executor) Document() *document.Document { return e.doc }

// Run parses and executes script in order. Empty scripts are valid and
// return an empty result vector (§4.9).
func (e *Executor) Run(ctx context.Context, script string) ([]operation.Result, error) {
	cmds, err := Parse(script)
	if err != nil {
		return nil, err
	}
	var results []operation.Result
	for _, cmd := range cmds {
		if cmd.Kind == CmdAtomic {
			sub, err := e.runAtomic(ctx, cmd)
			results = append(results, sub...)
			if err != nil {
				return results, err
			}
			continue
		}
		res, err := e.runOne(ctx, cmd)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// runOne dispatches a single non-ATOMIC command directly against e.doc.
func (e *Executor) runOne(ctx context.Context, cmd Command) (operation.Result, error) {
	e.logger.Debug(ctx, "dispatching command", "kind", int(cmd.Kind))
	if cmd.Kind == CmdSnapshot {
		return e.runSnapshot(ctx, cmd)
	}
	if cmd.Kind == CmdWriteSection {
		return e.runWriteSection(cmd)
	}
	op, err := e.toOperation(cmd)
	if err != nil {
		return operation.Result{Success: false, Error: err}, err
	}
	res := operation.Execute(e.doc, op)
	if !res.Success {
		e.logger.Warn(ctx, "command failed", "kind", int(cmd.Kind), "error", res.Error.Error())
		return res, res.Error
	}
	return res, nil
}

// runAtomic executes every sub-command of an ATOMIC block as a single
// transaction: either all succeed and mutate the live document, or none do
// and the first failure is reported (§4.9).
func (e *Executor) runAtomic(ctx context.Context, cmd Command) ([]operation.Result, error) {
	ops := make([]operation.Operation, 0, len(cmd.AtomicBody))
	for _, sub := range cmd.AtomicBody {
		if sub.Kind == CmdSnapshot || sub.Kind == CmdWriteSection {
			return nil, ucperr.New(ucperr.E102PayloadError, "SNAPSHOT and WRITE_SECTION are not valid inside ATOMIC")
		}
		op, err := e.toOperation(sub)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	txn := e.tx.Begin(e.doc.ID)
	for _, op := range ops {
		if err := e.tx.AddOperation(txn.ID(), op); err != nil {
			return nil, err
		}
	}

	dryRun := e.doc.Clone()
	results := make([]operation.Result, 0, len(ops))
	for _, op := range ops {
		res := operation.Execute(dryRun, op)
		results = append(results, res)
		if !res.Success {
			_ = e.tx.Rollback(txn.ID())
			return results, ucperr.New(ucperr.E304TxAborted, fmt.Sprintf("atomic block aborted: %v", res.Error))
		}
	}

	working, err := e.tx.Commit(txn.ID(), e.doc)
	if err != nil {
		return results, err
	}
	e.doc = working
	return results, nil
}

func (e *Executor) runSnapshot(ctx context.Context, cmd Command) (operation.Result, error) {
	if e.snapshots == nil {
		err := ucperr.New(ucperr.E900Internal, "no snapshot store bound to this executor")
		return operation.Result{Success: false, Error: err}, err
	}
	switch cmd.SnapshotVerbKind {
	case SnapshotCreate:
		var desc *string
		if v, ok := cmd.SnapshotProps.Get("description"); ok {
			s := v.Str
			desc = &s
		}
		if _, err := e.snapshots.Create(ctx, e.doc.ID, cmd.SnapshotName, desc, e.doc); err != nil {
			return operation.Result{Success: false, Error: err}, err
		}
		return operation.Result{Success: true}, nil
	case SnapshotRestore:
		restored, err := e.snapshots.Restore(ctx, e.doc.ID, cmd.SnapshotName)
		if err != nil {
			return operation.Result{Success: false, Error: err}, err
		}
		e.doc = restored
		return operation.Result{Success: true}, nil
	case SnapshotDelete:
		if err := e.snapshots.Delete(ctx, e.doc.ID, cmd.SnapshotName); err != nil {
			return operation.Result{Success: false, Error: err}, err
		}
		return operation.Result{Success: true}, nil
	default: // SnapshotList
		if _, err := e.snapshots.List(ctx, e.doc.ID); err != nil {
			return operation.Result{Success: false, Error: err}, err
		}
		return operation.Result{Success: true}, nil
	}
}

// runWriteSection replaces the target heading's children with blocks
// derived from the command's Markdown body (C14).
func (e *Executor) runWriteSection(cmd Command) (operation.Result, error) {
	target, err := e.resolveRef(cmd.SectionTarget)
	if err != nil {
		return operation.Result{Success: false, Error: err}, err
	}
	var baseLevel *int
	if v, ok := cmd.SectionProps.Get("base_level"); ok {
		n := int(v.Num)
		baseLevel = &n
	}
	res, err := section.WriteSection(e.doc, target, cmd.SectionBody, baseLevel)
	if err != nil {
		return operation.Result{Success: false, Error: err}, err
	}
	affected := append([]content.BlockID{target}, res.AddedIDs...)
	return operation.Result{Success: true, AffectedBlocks: affected}, nil
}

// toOperation resolves block references and content payloads and maps cmd
// to the §4.5 operation it represents.
func (e *Executor) toOperation(cmd Command) (operation.Operation, error) {
	switch cmd.Kind {
	case CmdEdit:
		target, err := e.resolveRef(cmd.EditTarget)
		if err != nil {
			return operation.Operation{}, err
		}
		return operation.Operation{
			Kind:        operation.KindEdit,
			EditBlockID: target,
			EditOp:      editOperatorOf(cmd.EditVerb),
			EditPath:    cmd.EditPath,
			EditValue:   valueToAny(cmd.EditValue),
		}, nil
	case CmdAppend:
		return e.toAppendOperation(cmd)
	case CmdMove:
		return e.toMoveOperation(cmd)
	case CmdDelete:
		target, err := e.resolveRef(cmd.DeleteTarget)
		if err != nil {
			return operation.Operation{}, err
		}
		return operation.Operation{
			Kind:                   operation.KindDelete,
			DeleteBlockID:          target,
			DeleteCascade:          cmd.DeleteCascade,
			DeletePreserveChildren: cmd.DeletePreserveChild,
		}, nil
	case CmdLink:
		return e.toLinkOperation(cmd, operation.KindLink)
	case CmdUnlink:
		return e.toLinkOperation(cmd, operation.KindUnlink)
	case CmdPrune:
		return e.toPruneOperation(cmd)
	default:
		return operation.Operation{}, ucperr.New(ucperr.E900Internal, "command kind has no direct operation mapping")
	}
}

func editOperatorOf(v EditVerb) operation.EditOperator {
	switch v {
	case EditVerbSet:
		return operation.EditSet
	case EditVerbAppend:
		return operation.EditAppend
	default:
		return operation.EditRemove
	}
}

func (e *Executor) toAppendOperation(cmd Command) (operation.Operation, error) {
	parent, err := e.resolveRef(cmd.AppendTarget)
	if err != nil {
		return operation.Operation{}, err
	}
	body, err := e.buildContent(cmd.AppendType, cmd.AppendProps, cmd.AppendBody)
	if err != nil {
		return operation.Operation{}, err
	}
	op := operation.Operation{
		Kind:           operation.KindAppend,
		AppendParentID: parent,
		AppendContent:  body,
		AppendIndex:    cmd.AppendAt,
	}
	if v, ok := cmd.AppendProps.Get("label"); ok {
		s := v.Str
		op.AppendLabel = &s
	}
	if v, ok := cmd.AppendProps.Get("role"); ok {
		s := v.Str
		op.AppendRole = &s
	}
	if v, ok := cmd.AppendProps.Get("tags"); ok && v.Kind == ValueList {
		for _, t := range v.List {
			op.AppendTags = append(op.AppendTags, t.Str)
		}
	}
	return op, nil
}

func (e *Executor) toMoveOperation(cmd Command) (operation.Operation, error) {
	target, err := e.resolveRef(cmd.MoveTarget)
	if err != nil {
		return operation.Operation{}, err
	}
	dest, err := e.resolveRef(cmd.MoveDest)
	if err != nil {
		return operation.Operation{}, err
	}
	op := operation.Operation{Kind: operation.KindMove, MoveBlockID: target}
	switch cmd.MoveVerbKind {
	case MoveTo:
		op.MoveNewParent = dest
		op.MoveIndex = cmd.MoveAt
	case MoveBefore:
		newParent, idx, err := e.siblingAnchor(dest, 0)
		if err != nil {
			return operation.Operation{}, err
		}
		op.MoveNewParent, op.MoveIndex = newParent, idx
	default: // MoveAfter
		newParent, idx, err := e.siblingAnchor(dest, 1)
		if err != nil {
			return operation.Operation{}, err
		}
		op.MoveNewParent, op.MoveIndex = newParent, idx
	}
	return op, nil
}

// siblingAnchor resolves BEFORE/AFTER <id> into a (parent, index) pair:
// offset 0 inserts immediately before anchor, offset 1 immediately after.
func (e *Executor) siblingAnchor(anchor content.BlockID, offset int) (content.BlockID, *int, error) {
	parent, ok := e.doc.Parent(anchor)
	if !ok {
		return "", nil, ucperr.New(ucperr.E004ParentNotFound, "BEFORE/AFTER anchor has no parent")
	}
	idx := e.doc.SiblingIndex(anchor) + offset
	return parent, &idx, nil
}

func (e *Executor) toLinkOperation(cmd Command, kind operation.Kind) (operation.Operation, error) {
	src, err := e.resolveRef(cmd.LinkSource)
	if err != nil {
		return operation.Operation{}, err
	}
	dst, err := e.resolveRef(cmd.LinkTarget)
	if err != nil {
		return operation.Operation{}, err
	}
	edgeType, ok := content.IsValidEdgeType(cmd.LinkEdgeType)
	if !ok {
		return operation.Operation{}, ucperr.New(ucperr.E103UnknownEdgeType, fmt.Sprintf("unknown edge type %q", cmd.LinkEdgeType))
	}
	op := operation.Operation{Kind: kind, LinkSource: src, LinkEdgeType: edgeType, LinkTarget: dst}
	if kind == operation.KindLink {
		if v, ok := cmd.LinkProps.Get("confidence"); ok {
			f := v.Num
			op.LinkConfidence = &f
		}
		if len(cmd.LinkProps) > 0 {
			op.LinkMetadata = map[string]any{}
			for _, p := range cmd.LinkProps {
				if p.Name == "confidence" {
					continue
				}
				op.LinkMetadata[p.Name] = valueToAny(p.Value)
			}
		}
	}
	return op, nil
}

func (e *Executor) toPruneOperation(cmd Command) (operation.Operation, error) {
	cond := operation.PruneCondition{}
	switch {
	case cmd.PruneVerbKind == PruneUnreachable:
		cond.Unreachable = true
	case cmd.PruneTag != "":
		cond.Tag = cmd.PruneTag
	default:
		cond.Role = cmd.PruneRole
	}
	return operation.Operation{Kind: operation.KindPrune, PruneCond: cond}, nil
}

// resolveRef binds a parsed BlockRef to a live BlockId: full ids are
// validated directly, short ids go through the mapper, and labels are
// resolved against the current document (§4.9).
func (e *Executor) resolveRef(ref BlockRef) (content.BlockID, error) {
	switch ref.Kind {
	case RefFull:
		return content.ParseBlockID(ref.Full)
	case RefShort:
		id, ok := e.mapper.ToLong(ref.Short)
		if !ok {
			return "", ucperr.New(ucperr.E002InvalidBlockID, fmt.Sprintf("unregistered short id %d", ref.Short))
		}
		return id, nil
	default: // RefLabel
		blk, ok := e.doc.FindByLabel(ref.Label)
		if !ok {
			return "", ucperr.New(ucperr.E001BlockNotFound, fmt.Sprintf("no block labeled %q", ref.Label))
		}
		return blk.ID, nil
	}
}

// valueToAny converts a parsed Value into the any form operation.Operation
// expects: strings pass through, numbers pass through as float64, and
// lists of strings collapse to []string so EditValue is directly usable by
// the tags edit path (internal/operation's toStringSlice also accepts the
// []any fallback for mixed lists).
func valueToAny(v Value) any {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		return v.Num
	case ValueList:
		allStrings := true
		for _, e := range v.List {
			if e.Kind != ValueString {
				allStrings = false
				break
			}
		}
		if allStrings {
			out := make([]string, len(v.List))
			for i, e := range v.List {
				out[i] = e.Str
			}
			return out
		}
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = valueToAny(e)
		}
		return out
	default:
		return nil
	}
}

// buildContent parses an APPEND payload (the literal text after "::") into
// the named content variant, per §4.9: malformed payloads produce E102.
func (e *Executor) buildContent(typ string, props Props, body string) (content.Content, error) {
	switch strings.ToLower(typ) {
	case "text":
		return content.Text{TextValue: body, Format: textFormatOf(props)}, nil
	case "code":
		lang, _ := props.Get("language")
		return content.Code{Language: lang.Str, Source: body}, nil
	case "math":
		display := false
		if v, ok := props.Get("display"); ok {
			display = v.Str == "true" || v.Num != 0
		}
		return content.Math{Expression: body, DisplayMode: display, Format: mathFormatOf(props)}, nil
	case "media":
		m := content.Media{MediaType: mediaTypeOf(props), URL: body}
		if v, ok := props.Get("alt_text"); ok {
			s := v.Str
			m.AltText = &s
		}
		if v, ok := props.Get("width"); ok {
			n := int(v.Num)
			m.Width = &n
		}
		if v, ok := props.Get("height"); ok {
			n := int(v.Num)
			m.Height = &n
		}
		return m, nil
	case "json":
		var v any
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return nil, ucperr.New(ucperr.E102PayloadError, "malformed json payload: "+err.Error())
		}
		return content.JSON{Value: v}, nil
	case "binary":
		data, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, ucperr.New(ucperr.E102PayloadError, "binary payload must be base64: "+err.Error())
		}
		mime, _ := props.Get("mime_type")
		return content.Binary{MimeType: mime.Str, Data: data}, nil
	case "table":
		var rows [][]string
		if err := json.Unmarshal([]byte(body), &rows); err != nil {
			return nil, ucperr.New(ucperr.E102PayloadError, "malformed table payload: "+err.Error())
		}
		var columns []string
		if v, ok := props.Get("columns"); ok && v.Kind == ValueList {
			for _, c := range v.List {
				columns = append(columns, c.Str)
			}
		} else if len(rows) > 0 {
			columns = rows[0]
			rows = rows[1:]
		}
		return content.Table{Columns: columns, Rows: rows}, nil
	case "composite":
		refs, err := e.resolveChildren(body)
		if err != nil {
			return nil, err
		}
		return content.Composite{Layout: layoutOf(props), Children: refs}, nil
	default:
		return nil, ucperr.New(ucperr.E102PayloadError, fmt.Sprintf("unknown content type %q", typ))
	}
}

func (e *Executor) resolveChildren(body string) ([]string, error) {
	parts := strings.Split(body, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ref, err := ParseBlockRef(p)
		if err != nil {
			return nil, ucperr.New(ucperr.E102PayloadError, "malformed composite child reference")
		}
		id, err := e.resolveRef(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, id.String())
	}
	return out, nil
}

func textFormatOf(p Props) content.TextFormat {
	if v, ok := p.Get("format"); ok {
		switch strings.ToLower(v.Str) {
		case "markdown":
			return content.TextMarkdown
		case "rich":
			return content.TextRich
		}
	}
	return content.TextPlain
}

func mathFormatOf(p Props) content.MathFormat {
	if v, ok := p.Get("format"); ok {
		switch strings.ToLower(v.Str) {
		case "mathml":
			return content.MathMathML
		case "asciimath":
			return content.MathAsciiMath
		}
	}
	return content.MathLatex
}

func mediaTypeOf(p Props) content.MediaType {
	if v, ok := p.Get("media_type"); ok {
		switch strings.ToLower(v.Str) {
		case "audio":
			return content.MediaAudio
		case "video":
			return content.MediaVideo
		}
	}
	return content.MediaImage
}

func layoutOf(p Props) content.Layout {
	if v, ok := p.Get("layout"); ok {
		switch strings.ToLower(v.Str) {
		case "vertical":
			return content.LayoutVertical
		case "grid":
			return content.LayoutGrid
		case "free":
			return content.LayoutFree
		}
	}
	return content.LayoutHorizontal
}
