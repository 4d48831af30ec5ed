package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// HashBytes returns the hex sha256 of one file's content.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CombineUnordered folds per-file hashes into one batch fingerprint. The
// input is sorted first, so the same set of files fingerprints the same
// regardless of selection order.
func CombineUnordered(hashes []string) string {
	sorted := make([]string, len(hashes))
	copy(sorted, hashes)
	sort.Strings(sorted)
	outer := sha256.New()
	for _, h := range sorted {
		outer.Write([]byte(h))
	}
	return hex.EncodeToString(outer.Sum(nil))
}
