package content

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"

	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// BlockID is the opaque, content-addressed identifier of a block: the
// literal prefix "blk_" followed by 24 lowercase hex characters (96 bits).
type BlockID string

const blockIDPrefix = "blk_"

// RootID is the reserved constant identifier of every document's root block.
const RootID BlockID = "blk_ff00000000000000000000"

var blockIDPattern = regexp.MustCompile(`^blk_[0-9a-f]{24}$`)

// ParseBlockID validates the textual form of a BlockID, returning E002 on
// any malformed input.
func ParseBlockID(s string) (BlockID, error) {
	if !blockIDPattern.MatchString(s) {
		return "", ucperr.New(ucperr.E002InvalidBlockID, "block id must match blk_[0-9a-f]{24}", ucperr.WithSuggestion("use content.NewBlockID or content.RootID"))
	}
	return BlockID(s), nil
}

// String returns the textual form of the id.
func (b BlockID) String() string { return string(b) }

// Valid reports whether b has the well-formed textual shape.
func (b BlockID) Valid() bool { return blockIDPattern.MatchString(string(b)) }

// NewBlockID derives a deterministic content-addressed id from normalized
// content bytes, an optional semantic role, and an optional namespace (C2):
//
//	id = hex(first 12 bytes of SHA-256(normalized || 0x1F || role || 0x1F || namespace))
//
// Equal inputs always yield equal ids.
func NewBlockID(normalized []byte, role, namespace string) BlockID {
	h := sha256.New()
	h.Write(normalized)
	h.Write([]byte{0x1F})
	h.Write([]byte(role))
	h.Write([]byte{0x1F})
	h.Write([]byte(namespace))
	sum := h.Sum(nil)
	return BlockID(blockIDPrefix + hex.EncodeToString(sum[:12]))
}

// ContentHash is the 256-bit digest of normalized content, rendered as 64
// lowercase hex characters.
type ContentHash string

// NewContentHash computes the SHA-256 digest of normalized content bytes.
func NewContentHash(normalized []byte) ContentHash {
	sum := sha256.Sum256(normalized)
	return ContentHash(hex.EncodeToString(sum[:]))
}
