// Package identity derives the name an index is persisted under. Two option
// sets share an index exactly when language, field set and filter source are
// equal; boosts never affect the name.
package identity

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Prefix starts every index identity.
const Prefix = "search-"

// params serializes with keys in this order: language, fields, filter.
type params struct {
	Language string   `json:"language"`
	Fields   []string `json:"fields"`
	Filter   string   `json:"filter,omitempty"`
}

// Compute returns "search-" followed by the hex MD5 of Canonical.
func Compute(language string, fieldNames []string, filterSource string) string {
	sum := md5.Sum([]byte(Canonical(language, fieldNames, filterSource)))
	return Prefix + hex.EncodeToString(sum[:])
}

// Canonical returns the JSON text of the language, the sorted field names and,
// when non-empty, the filter source. HTML characters are not escaped.
func Canonical(language string, fieldNames []string, filterSource string) string {
	fields := make([]string, len(fieldNames))
	copy(fields, fieldNames)
	sort.Strings(fields)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// params holds only strings; encoding cannot fail
	_ = enc.Encode(params{Language: language, Fields: fields, Filter: filterSource})
	return strings.TrimRight(buf.String(), "\n")
}

// Valid reports whether name has the shape produced by Compute.
func Valid(name string) bool {
	if !strings.HasPrefix(name, Prefix) {
		return false
	}
	digest := strings.TrimPrefix(name, Prefix)
	if len(digest) != hex.EncodedLen(md5.Size) {
		return false
	}
	_, err := hex.DecodeString(digest)
	return err == nil
}
