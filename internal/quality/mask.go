package quality

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/JonMunkholm/movieload/internal/runlog"
	"github.com/JonMunkholm/movieload/internal/table"
)

// TitleSecurity is the log title for masking.
const TitleSecurity = "Data Security"

// Digest returns the lowercase hex SHA-256 of s.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// MaskValue hashes strings and returns any other value unchanged.
func MaskValue(v any) any {
	if s, ok := v.(string); ok {
		return Digest(s)
	}
	return v
}

// MaskColumn replaces every string in the named column with its digest.
// Returns false, and logs nothing, if the column is absent.
func MaskColumn(t *table.Table, column string, sink runlog.Sink) bool {
	col, ok := t.Column(column)
	if !ok {
		return false
	}

	sink.Add(TitleSecurity, fmt.Sprintf("Masking '%s' column for security...", column))
	for i, v := range col.Values {
		col.Values[i] = MaskValue(v)
	}
	return true
}
