// Package keys decomposes translation key strings into structured records.
//
// Keys follow an upstream naming convention: dot-separated segments, one of
// which (the "core segment") encodes template name, brand id and locale as
// double-underscore-delimited parts, e.g.
//
//	project.campaign.email.Welcome__header__1234__en_US
package keys

// UnknownBrand is the sentinel brand id used when no 4-digit brand part is
// present in the core segment.
const UnknownBrand = "Unknown"

// Record is the parsed form of a single translation key. Records are value
// types and never mutated after creation; ID is derived from TaskName and the
// source row index, so parsing identical input always yields an identical
// record.
type Record struct {
	ID           string   `json:"id"`
	OriginalKey  string   `json:"originalKey"`
	TaskName     string   `json:"taskName"`
	TemplateName string   `json:"templateName"`
	BrandID      string   `json:"brandId"`
	Locale       string   `json:"locale,omitempty"`
	RawParts     []string `json:"rawParts"`
}
