package alarms

import "strings"

const (
	legacyOwnerPrefix = `ObjectId("`
	legacyOwnerSuffix = `")`
)

// CanonicalOwnerID strips the legacy wrapped object-id form some historical
// writers stored in the owner field, so ownership matching never depends on
// which representation a record was written with.
func CanonicalOwnerID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, legacyOwnerPrefix) && strings.HasSuffix(trimmed, legacyOwnerSuffix) {
		return strings.TrimSuffix(strings.TrimPrefix(trimmed, legacyOwnerPrefix), legacyOwnerSuffix)
	}
	return trimmed
}

// LegacyOwnerID returns the wrapped form, for queries that must also match
// records written before the representation was unified.
func LegacyOwnerID(id string) string {
	return legacyOwnerPrefix + CanonicalOwnerID(id) + legacyOwnerSuffix
}

// SameOwner reports whether two owner values identify the same user under
// either representation.
func SameOwner(a, b string) bool {
	return CanonicalOwnerID(a) == CanonicalOwnerID(b)
}
