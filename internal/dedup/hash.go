package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash derives the idempotency key of a generated record from its
// identifying parts, e.g. (name, category) for a market or (name, market id)
// for a competitor. Parts are normalized so cosmetic differences in casing or
// accents map to the same key.
func ContentHash(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = Normalize(p)
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "\x1f")))
	return hex.EncodeToString(sum[:])
}
