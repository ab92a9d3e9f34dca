package sim

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashConfig computes a stable content hash of v. The canonical JSON
// encoding sorts map keys at every nesting level, so the hash is invariant
// to key-insertion order and changes whenever any leaf value changes.
// Used as the cache-invalidation key for traces derived from a BuildConfig.
func HashConfig(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding config for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// MustHashConfig is HashConfig for values known to be encodable, such as
// BuildConfig.
func MustHashConfig(v any) string {
	h, err := HashConfig(v)
	if err != nil {
		panic(err)
	}
	return h
}
