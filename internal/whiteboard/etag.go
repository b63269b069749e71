package whiteboard

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ETag returns the weak validator for a document at a version. The value is
// opaque to clients; they may only compare it for equality.
func ETag(documentID string, version int64) string {
	sum := sha256.Sum256([]byte(documentID + "\x00" + strconv.FormatInt(version, 10)))
	return `W/"` + hex.EncodeToString(sum[:12]) + `"`
}

// MatchesETag implements the weak comparison used for If-None-Match: the
// header may hold a comma separated list, "*" matches any existing version.
func MatchesETag(ifNoneMatch, etag string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" {
		return false
	}
	want := opaque(etag)
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if candidate != "" && opaque(candidate) == want {
			return true
		}
	}
	return false
}

func opaque(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "W/")
}
