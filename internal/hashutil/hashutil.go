// Package hashutil derives the short content identifiers that name every
// cached artifact. A cache path embeds a truncated digest of all semantic
// inputs that affect the artifact's bytes, so identical inputs resolve to
// identical paths across runs and any changed input resolves to a new path.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// shortLen is the number of hex characters kept from the digest. Collisions
// at this length are an accepted risk for cache-sized key spaces, not a
// correctness requirement.
const shortLen = 10

// Short returns a stable truncated SHA-256 digest of content.
func Short(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:shortLen]
}

// Path composes a content-addressed artifact path as
// <dir>/<prefix>_<short>.<ext>. The ext argument is given without a leading
// dot.
func Path(dir, prefix, content, ext string) string {
	return filepath.Join(dir, prefix+"_"+Short(content)+"."+ext)
}
