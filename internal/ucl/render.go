package ucl

import (
	"fmt"
	"strconv"
	"strings"
)

// Render produces the canonical textual form of cmd: deterministic keyword
// case and prop ordering, suitable for round-tripping through Parse.
func Render(cmd Command) string {
	switch cmd.Kind {
	case CmdEdit:
		return renderEdit(cmd)
	case CmdAppend:
		return renderAppend(cmd)
	case CmdMove:
		return renderMove(cmd)
	case CmdDelete:
		return renderDelete(cmd)
	case CmdLink:
		return renderLink(cmd)
	case CmdUnlink:
		return fmt.Sprintf("UNLINK %s %s %s", renderRef(cmd.LinkSource), cmd.LinkEdgeType, renderRef(cmd.LinkTarget))
	case CmdPrune:
		return renderPrune(cmd)
	case CmdSnapshot:
		return renderSnapshot(cmd)
	case CmdWriteSection:
		return renderWriteSection(cmd)
	case CmdAtomic:
		return renderAtomic(cmd)
	default:
		return ""
	}
}

func renderRef(r BlockRef) string {
	switch r.Kind {
	case RefFull:
		return r.Full
	case RefShort:
		return strconv.Itoa(r.Short)
	default:
		return r.Label
	}
}

func renderValue(v Value) string {
	switch v.Kind {
	case ValueString:
		return strconv.Quote(v.Str)
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case ValueList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = renderValue(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return ""
	}
}

func renderProps(p Props) string {
	parts := make([]string, len(p))
	for i, pr := range p {
		parts[i] = pr.Name + "=" + renderValue(pr.Value)
	}
	return strings.Join(parts, ",")
}

func renderEdit(cmd Command) string {
	verb := map[EditVerb]string{EditVerbSet: "SET", EditVerbAppend: "APPEND", EditVerbRemove: "REMOVE"}[cmd.EditVerb]
	return fmt.Sprintf("EDIT %s %s %s = %s", renderRef(cmd.EditTarget), verb, cmd.EditPath, renderValue(cmd.EditValue))
}

func renderAppend(cmd Command) string {
	var b strings.Builder
	b.WriteString("APPEND ")
	b.WriteString(renderRef(cmd.AppendTarget))
	b.WriteString(" ")
	b.WriteString(cmd.AppendType)
	if len(cmd.AppendProps) > 0 {
		b.WriteString(" WITH ")
		b.WriteString(renderProps(cmd.AppendProps))
	}
	if cmd.AppendAt != nil {
		b.WriteString(" AT ")
		b.WriteString(strconv.Itoa(*cmd.AppendAt))
	}
	b.WriteString(" :: ")
	b.WriteString(cmd.AppendBody)
	return b.String()
}

func renderMove(cmd Command) string {
	switch cmd.MoveVerbKind {
	case MoveTo:
		s := fmt.Sprintf("MOVE %s TO %s", renderRef(cmd.MoveTarget), renderRef(cmd.MoveDest))
		if cmd.MoveAt != nil {
			s += " AT " + strconv.Itoa(*cmd.MoveAt)
		}
		return s
	case MoveBefore:
		return fmt.Sprintf("MOVE %s BEFORE %s", renderRef(cmd.MoveTarget), renderRef(cmd.MoveDest))
	default:
		return fmt.Sprintf("MOVE %s AFTER %s", renderRef(cmd.MoveTarget), renderRef(cmd.MoveDest))
	}
}

func renderDelete(cmd Command) string {
	s := "DELETE " + renderRef(cmd.DeleteTarget)
	if cmd.DeleteCascade {
		s += " CASCADE"
	} else if cmd.DeletePreserveChild {
		s += " PRESERVE_CHILDREN"
	}
	return s
}

func renderLink(cmd Command) string {
	s := fmt.Sprintf("LINK %s %s %s", renderRef(cmd.LinkSource), cmd.LinkEdgeType, renderRef(cmd.LinkTarget))
	if len(cmd.LinkProps) > 0 {
		s += " WITH " + renderProps(cmd.LinkProps)
	}
	return s
}

func renderPrune(cmd Command) string {
	if cmd.PruneVerbKind == PruneUnreachable {
		return "PRUNE UNREACHABLE"
	}
	if cmd.PruneTag != "" {
		return fmt.Sprintf("PRUNE WHERE tag=%s", strconv.Quote(cmd.PruneTag))
	}
	return fmt.Sprintf("PRUNE WHERE role=%s", strconv.Quote(cmd.PruneRole))
}

func renderSnapshot(cmd Command) string {
	switch cmd.SnapshotVerbKind {
	case SnapshotCreate:
		s := fmt.Sprintf("SNAPSHOT CREATE %s", strconv.Quote(cmd.SnapshotName))
		if len(cmd.SnapshotProps) > 0 {
			s += " WITH " + renderProps(cmd.SnapshotProps)
		}
		return s
	case SnapshotRestore:
		return fmt.Sprintf("SNAPSHOT RESTORE %s", strconv.Quote(cmd.SnapshotName))
	case SnapshotDelete:
		return fmt.Sprintf("SNAPSHOT DELETE %s", strconv.Quote(cmd.SnapshotName))
	default:
		return "SNAPSHOT LIST"
	}
}

func renderWriteSection(cmd Command) string {
	s := "WRITE_SECTION " + renderRef(cmd.SectionTarget)
	if len(cmd.SectionProps) > 0 {
		s += " WITH " + renderProps(cmd.SectionProps)
	}
	return s + " :: " + cmd.SectionBody
}

func renderAtomic(cmd Command) string {
	var b strings.Builder
	b.WriteString("ATOMIC {\n")
	for _, sub := range cmd.AtomicBody {
		b.WriteString("  ")
		b.WriteString(Render(sub))
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}
