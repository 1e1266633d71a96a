package metadata

import (
	"slices"
	"strings"
)

// Системные ключи метаданных. Их значения выставляет только сервер.
const (
	KeyOriginalFilename = "original-filename"
	KeyTopology         = "topology"
	KeyYear             = "year"
	KeyMonth            = "month"
)

// HeaderAccessLevel is a control header on the blob, not user metadata.
// Mirrors Document.AccessLevel.
const HeaderAccessLevel = "access-level"

// reservedKeys is the single source of truth for the protected key set.
// Both mergers and the normalizer go through it.
var reservedKeys = []string{KeyOriginalFilename, KeyTopology, KeyYear, KeyMonth}

// Pair is one user-supplied metadata entry, validated at the boundary.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SystemFields holds the server-derived values written under reserved keys.
// Year and Month are set only on the direct upload path.
type SystemFields struct {
	OriginalFilename string
	LogicalName      string
	Year             string
	Month            string
}

// Normalize canonicalizes a raw metadata key: trim, lowercase, runs of
// whitespace become a single hyphen. Reports whether the canonical form is
// one of the reserved keys. An empty result means the key is invalid and
// must not be stored.
func Normalize(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Join(strings.Fields(key), "-")
	return key, slices.Contains(reservedKeys, key)
}

// IsReserved reports whether key (already canonical) is system-owned.
func IsReserved(key string) bool {
	return slices.Contains(reservedKeys, key)
}

// BuildCreateMetadata builds the metadata map for a new document. System
// fields win over anything the client sends: user pairs whose normalized key
// is reserved are dropped and returned in the second value so the caller can
// log them. This is intentionally softer than the update path, which rejects
// such pairs outright.
func BuildCreateMetadata(sys SystemFields, pairs []Pair) (map[string]string, []string) {
	meta := make(map[string]string)

	if sys.OriginalFilename != "" {
		meta[KeyOriginalFilename] = sys.OriginalFilename
	}
	if sys.LogicalName != "" {
		meta[KeyTopology] = sys.LogicalName
	}
	if sys.Year != "" {
		meta[KeyYear] = sys.Year
	}
	if sys.Month != "" {
		meta[KeyMonth] = sys.Month
	}

	var dropped []string
	for _, p := range pairs {
		key, reserved := Normalize(p.Key)
		if key == "" {
			continue
		}
		if reserved {
			if !slices.Contains(dropped, key) {
				dropped = append(dropped, key)
			}
			continue
		}
		meta[key] = p.Value
	}

	return meta, dropped
}

// BuildUpdateMetadata builds the replacement metadata map for an existing
// document from the full pair list submitted by the editor. Reserved keys
// always keep the stored value; a reserved pair is rejected only when its
// submitted value differs from the stored one (echoing the current value back
// is a no-op). The caller must not apply any part of the update when rejected
// is non-empty.
func BuildUpdateMetadata(existing map[string]string, pairs []Pair) (map[string]string, []string) {
	meta := make(map[string]string)
	for key, value := range existing {
		if IsReserved(key) {
			meta[key] = value
		}
	}

	var rejected []string
	for _, p := range pairs {
		key, reserved := Normalize(p.Key)
		if key == "" {
			// Пустая строка из формы, просто пропускаем
			continue
		}
		if reserved {
			if p.Value != existing[key] && !slices.Contains(rejected, key) {
				rejected = append(rejected, key)
			}
			continue
		}
		meta[key] = p.Value
	}

	return meta, rejected
}
