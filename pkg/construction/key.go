package construction

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key is the canonical identity of a construction node. Two nodes are the
// same construction exactly when their canonical encodings match; the hash is
// the content address cache stores file entries under. Keys are computed once
// at node construction and never change.
type Key struct {
	canonical string
	hash      string
}

func newKey(canonical string) Key {
	sum := sha256.Sum256([]byte(canonical))
	return Key{canonical: canonical, hash: hex.EncodeToString(sum[:])}
}

// Canonical returns the full structural encoding. Equal encodings mean equal
// constructions, including equal weights.
func (k Key) Canonical() string { return k.canonical }

// Hash returns the hex sha256 of the canonical encoding, the cache address.
func (k Key) Hash() string { return k.hash }

// Equal reports structural equality.
func (k Key) Equal(other Key) bool { return k.canonical == other.canonical }

// IsZero reports whether k is the zero value rather than a computed key.
func (k Key) IsZero() bool { return k.canonical == "" }

// String returns a short hash prefix for logs and error messages.
func (k Key) String() string {
	if k.IsZero() {
		return "<zero key>"
	}
	return k.hash[:12]
}
