package keys

import (
	"fmt"
	"strings"
)

// coreSegmentIndex is the positional fallback used when no dot-segment
// carries a "__" marker. It encodes an assumption about the upstream naming
// convention and is kept as-is on purpose; see the package comment.
const coreSegmentIndex = 3

// Parse decomposes rawKey into a Record. taskName and rowIndex identify where
// the key came from and seed the deterministic record ID.
//
// ok is false only for an empty key; callers skip such rows. A key with fewer
// than three dot-segments still produces a (degraded) record so that
// malformed keys stay visible in the dataset: the whole key becomes the
// template name and the brand is UnknownBrand.
func Parse(rawKey, taskName string, rowIndex int) (Record, bool) {
	if rawKey == "" {
		return Record{}, false
	}

	rec := Record{
		ID:          fmt.Sprintf("%s-%d", taskName, rowIndex),
		OriginalKey: rawKey,
		TaskName:    taskName,
	}

	parts := strings.Split(rawKey, ".")
	rec.RawParts = parts
	if len(parts) < 3 {
		rec.TemplateName = rawKey
		rec.BrandID = UnknownBrand
		return rec, true
	}

	core := coreSegment(parts)
	sub := strings.Split(core, "__")

	rec.TemplateName = sub[0]
	rec.BrandID = brandID(sub)

	// The last sub-segment is the locale candidate. When the core segment
	// only has one or two parts the candidate collides with the template
	// name or the brand id and is dropped rather than misreported.
	locale := sub[len(sub)-1]
	if locale != rec.TemplateName && locale != rec.BrandID {
		rec.Locale = locale
	}
	return rec, true
}

// coreSegment picks the dot-segment that encodes template/brand/locale:
// the first segment containing "__", else the segment at coreSegmentIndex,
// else the last segment. First match wins even when several segments carry
// the marker.
func coreSegment(parts []string) string {
	for _, p := range parts {
		if strings.Contains(p, "__") {
			return p
		}
	}
	if len(parts) > coreSegmentIndex {
		return parts[coreSegmentIndex]
	}
	return parts[len(parts)-1]
}

// brandID returns the first sub-segment made of exactly four ASCII digits,
// or UnknownBrand.
func brandID(sub []string) string {
	for _, s := range sub {
		if isBrandID(s) {
			return s
		}
	}
	return UnknownBrand
}

func isBrandID(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
