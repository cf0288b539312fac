package idmapper

import (
	"strings"

	"github.com/antonio7098/unified-content-protocol/internal/document"
)

// Capability names one UCL-driven mutation a caller is permitted to ask an
// LLM to issue (§6 Prompt builder).
type Capability string

const (
	CapabilityEdit        Capability = "Edit"
	CapabilityAppend      Capability = "Append"
	CapabilityMove        Capability = "Move"
	CapabilityDelete      Capability = "Delete"
	CapabilityLink        Capability = "Link"
	CapabilitySnapshot    Capability = "Snapshot"
	CapabilityTransaction Capability = "Transaction"
)

// PromptBuilder assembles deterministic prompts for driving an LLM toward
// emitting UCL commands against a given document (§6 SUPPLEMENT).
type PromptBuilder struct {
	Capabilities []Capability
	ShortIDs     bool

	doc    *document.Document
	mapper *Mapper
}

// NewPromptBuilder returns a PromptBuilder bound to doc, seeding its own
// ID mapper so System/Build are self-contained.
func NewPromptBuilder(doc *document.Document, capabilities []Capability, shortIDs bool) *PromptBuilder {
	return &PromptBuilder{
		Capabilities: capabilities,
		ShortIDs:     shortIDs,
		doc:          doc,
		mapper:       Seed(doc),
	}
}

// System returns the deterministic rule preamble describing the allowed
// capabilities and, when ShortIDs is set, the short-id addressing
// convention.
func (p *PromptBuilder) System() string {
	var b strings.Builder
	b.WriteString("You are editing a UCP document using the UCL command language.\n")
	b.WriteString("You may use the following operations: ")
	names := make([]string, len(p.Capabilities))
	for i, c := range p.Capabilities {
		names[i] = string(c)
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(".\n")
	if p.ShortIDs {
		b.WriteString("Block references use the short integer ids shown in the document structure below, not full block ids.\n")
	} else {
		b.WriteString("Block references use full block ids of the form blk_<24 hex characters>.\n")
	}
	return b.String()
}

// Build assembles the full prompt: system preamble, the document's
// structure/blocks projection, and the task.
func (p *PromptBuilder) Build(task string) string {
	var b strings.Builder
	b.WriteString(p.System())
	b.WriteString("\n")
	b.WriteString(Describe(p.doc, p.mapper))
	b.WriteString("\n\n## Task\n")
	b.WriteString(task)
	b.WriteString("\n\nGenerate the UCL command:")
	return b.String()
}
