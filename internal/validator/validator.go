// Package validator implements the ordered structural and resource-limit
// checks of C7, plus an optional JSON Schema pass over block content.
package validator

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/antonio7098/unified-content-protocol/internal/config"
	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// Report accumulates every issue found in one validation pass (C7: "Returns
// a list of issues ... Per-block checks do not abort the run.").
type Report struct {
	Issues []ucperr.Issue
}

// IsOK reports whether the report contains no error-severity issues
// (SUPPLEMENT: warnings/info do not fail validation).
func (r Report) IsOK() bool {
	for _, i := range r.Issues {
		if i.Severity == ucperr.SeverityError {
			return false
		}
	}
	return true
}

// SchemaSet maps a content-type tag to a compiled JSON Schema applied to
// JSON-variant block content (optional, SUPPLEMENT over the bare resource
// checks §4.4 requires).
type SchemaSet map[string]*jsonschema.Schema

// CompileSchemas compiles raw JSON Schema documents keyed by content tag.
func CompileSchemas(raw map[string]string) (SchemaSet, error) {
	out := make(SchemaSet, len(raw))
	for tag, schemaText := range raw {
		c := jsonschema.NewCompiler()
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(schemaText)))
		if err != nil {
			return nil, err
		}
		url := "mem://" + tag
		if err := c.AddResource(url, doc); err != nil {
			return nil, err
		}
		schema, err := c.Compile(url)
		if err != nil {
			return nil, err
		}
		out[tag] = schema
	}
	return out, nil
}

// Validate runs every check of §4.4 in the fixed order the spec requires for
// stable diagnostics: block count, structural cycles, nesting depth,
// per-block content size / edge count / edge target existence / optional
// schema check, orphan detection (warning only), then serialized document
// size.
func Validate(doc *document.Document, limits config.Limits, schemas SchemaSet) Report {
	var report Report

	if doc.BlockCount() > limits.MaxBlockCount {
		report.Issues = append(report.Issues, ucperr.Issue{
			Severity: ucperr.SeverityError,
			Code:     ucperr.E400BlockCountExceed,
			Message:  "document exceeds maximum block count",
		})
	}

	checkCycles(doc, &report)
	checkNestingDepth(doc, limits, &report)
	checkPerBlock(doc, limits, schemas, &report)
	checkOrphans(doc, &report)
	checkDocumentSize(doc, limits, &report)

	return report
}

// checkCycles walks the structure map looking for a block reachable from
// itself; a cycle makes every later traversal-dependent check unreliable,
// so it is reported distinctly and first among structural checks.
func checkCycles(doc *document.Document, report *Report) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[content.BlockID]int{}
	var visit func(id content.BlockID) bool
	visit = func(id content.BlockID) bool {
		color[id] = gray
		for _, c := range doc.Structure[id] {
			switch color[c] {
			case gray:
				return true
			case white:
				if visit(c) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	for id := range doc.Structure {
		if color[id] == white {
			if visit(id) {
				report.Issues = append(report.Issues, ucperr.Issue{
					Severity: ucperr.SeverityError,
					Code:     ucperr.E201CycleDetected,
					Message:  "structural cycle detected",
					BlockID:  id.String(),
				})
				return
			}
		}
	}
}

func checkNestingDepth(doc *document.Document, limits config.Limits, report *Report) {
	var walk func(id content.BlockID, depth int)
	walk = func(id content.BlockID, depth int) {
		if depth > limits.MaxNestingDepth {
			report.Issues = append(report.Issues, ucperr.Issue{
				Severity: ucperr.SeverityError,
				Code:     ucperr.E403NestingExceed,
				Message:  "block exceeds maximum nesting depth",
				BlockID:  id.String(),
			})
			return
		}
		for _, c := range doc.Structure[id] {
			walk(c, depth+1)
		}
	}
	walk(doc.Root, 0)
}

func checkPerBlock(doc *document.Document, limits config.Limits, schemas SchemaSet, report *Report) {
	for id, b := range doc.Blocks {
		size := int64(len(b.Content.Normalize()))
		if size > limits.MaxBlockSizeBytes {
			report.Issues = append(report.Issues, ucperr.Issue{
				Severity: ucperr.SeverityError,
				Code:     ucperr.E402BlockSizeExceed,
				Message:  "block content exceeds maximum size",
				BlockID:  id.String(),
			})
		}
		if len(b.Edges) > limits.MaxEdgesPerBlock {
			report.Issues = append(report.Issues, ucperr.Issue{
				Severity: ucperr.SeverityError,
				Code:     ucperr.E404EdgeCountExceed,
				Message:  "block exceeds maximum outgoing edge count",
				BlockID:  id.String(),
			})
		}
		for _, e := range b.Edges {
			if _, ok := doc.Blocks[e.Target]; !ok {
				report.Issues = append(report.Issues, ucperr.Issue{
					Severity: ucperr.SeverityError,
					Code:     ucperr.E001BlockNotFound,
					Message:  "edge target does not exist",
					BlockID:  id.String(),
				})
			}
		}
		if schema, ok := schemas[string(b.Content.Tag())]; ok {
			if j, isJSON := b.Content.(content.JSON); isJSON {
				data, err := json.Marshal(j.Value)
				if err == nil {
					var inst any
					if err := json.Unmarshal(data, &inst); err == nil {
						if err := schema.Validate(inst); err != nil {
							report.Issues = append(report.Issues, ucperr.Issue{
								Severity: ucperr.SeverityError,
								Code:     ucperr.E102PayloadError,
								Message:  "content failed schema validation: " + err.Error(),
								BlockID:  id.String(),
							})
						}
					}
				}
			}
		}
	}
}

func checkOrphans(doc *document.Document, report *Report) {
	for id := range doc.Blocks {
		if !doc.IsReachable(id) {
			report.Issues = append(report.Issues, ucperr.Issue{
				Severity: ucperr.SeverityWarning,
				Code:     ucperr.E203OrphanedBlock,
				Message:  "block is unreachable from the document root",
				BlockID:  id.String(),
			})
		}
	}
}

func checkDocumentSize(doc *document.Document, limits config.Limits, report *Report) {
	data, err := doc.MarshalJSON()
	if err != nil {
		return
	}
	if int64(len(data)) > limits.MaxDocumentSizeBytes {
		report.Issues = append(report.Issues, ucperr.Issue{
			Severity: ucperr.SeverityError,
			Code:     ucperr.E401DocSizeExceed,
			Message:  "document exceeds maximum serialized size",
		})
	}
}
