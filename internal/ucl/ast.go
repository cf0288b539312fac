package ucl

// ValueKind discriminates a parsed UCL literal value.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueList
)

// Value is a parsed literal: a string, a number, or a list of values
// (§4.8 grammar's `value` production).
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	List []Value
}

// Prop is one `ident = value` pair inside a WITH clause.
type Prop struct {
	Name  string
	Value Value
}

// Props is an ordered set of Prop, preserving source order.
type Props []Prop

// Get returns the value of the first prop named name, if present.
func (p Props) Get(name string) (Value, bool) {
	for _, pr := range p {
		if pr.Name == name {
			return pr.Value, true
		}
	}
	return Value{}, false
}

// BlockRef is an unresolved reference to a block: a full BlockId, a short
// numeric id, or a label, distinguished by Kind.
type BlockRefKind int

const (
	RefFull BlockRefKind = iota
	RefShort
	RefLabel
)

type BlockRef struct {
	Kind  BlockRefKind
	Full  string
	Short int
	Label string
}

// CommandKind discriminates a parsed Command's variant.
type CommandKind int

const (
	CmdEdit CommandKind = iota
	CmdAppend
	CmdMove
	CmdDelete
	CmdLink
	CmdUnlink
	CmdPrune
	CmdSnapshot
	CmdWriteSection
	CmdAtomic
)

// EditVerb selects which edit form was parsed (SET/APPEND/REMOVE).
type EditVerb int

const (
	EditVerbSet EditVerb = iota
	EditVerbAppend
	EditVerbRemove
)

// SnapshotVerb selects which SNAPSHOT subcommand was parsed.
type SnapshotVerb int

const (
	SnapshotCreate SnapshotVerb = iota
	SnapshotRestore
	SnapshotDelete
	SnapshotList
)

// MoveVerb selects which MOVE form was parsed.
type MoveVerb int

const (
	MoveTo MoveVerb = iota
	MoveBefore
	MoveAfter
)

// PruneVerb selects which PRUNE form was parsed.
type PruneVerb int

const (
	PruneUnreachable PruneVerb = iota
	PruneWhere
)

// Command is the parsed, unresolved form of one UCL statement. Exactly the
// fields relevant to Kind are populated; block references are left
// unresolved (BlockRef) for the executor to bind against a live document.
type Command struct {
	Kind CommandKind
	Line int

	// Edit
	EditTarget BlockRef
	EditVerb   EditVerb
	EditPath   string
	EditValue  Value

	// Append
	AppendTarget BlockRef
	AppendType   string
	AppendProps  Props
	AppendAt     *int
	AppendBody   string

	// Move
	MoveTarget    BlockRef
	MoveVerbKind  MoveVerb
	MoveDest      BlockRef
	MoveAt        *int

	// Delete
	DeleteTarget         BlockRef
	DeleteCascade        bool
	DeletePreserveChild  bool

	// Link / Unlink
	LinkSource   BlockRef
	LinkEdgeType string
	LinkTarget   BlockRef
	LinkProps    Props

	// Prune
	PruneVerbKind PruneVerb
	PruneTag      string
	PruneRole     string

	// Snapshot
	SnapshotVerbKind SnapshotVerb
	SnapshotName     string
	SnapshotProps    Props

	// WriteSection
	SectionTarget BlockRef
	SectionProps  Props
	SectionBody   string

	// Atomic
	AtomicBody []Command
}
