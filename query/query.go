// Package query is the dashboard's in-memory filter/group/aggregate
// pipeline. Everything is synchronous and recomputed from scratch per call;
// the dataset is replaced wholesale between runs, never mutated, so no
// incremental indexing is needed.
package query

import (
	"sort"
	"strings"

	"github.com/aerissecure/keydash/keys"
)

// Wildcard matches any brand or task in a Filter.
const Wildcard = "all"

// TopBrandCount is how many brands the ranking keeps.
const TopBrandCount = 5

// Filter is the conjunctive record predicate: free text against template
// name or original key (case-insensitive substring), plus exact brand and
// task matches. Empty fields and Wildcard both mean "no constraint".
type Filter struct {
	Text    string
	BrandID string
	Task    string
}

func (f Filter) matches(r keys.Record) bool {
	if f.Text != "" {
		text := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(r.TemplateName), text) &&
			!strings.Contains(strings.ToLower(r.OriginalKey), text) {
			return false
		}
	}
	if f.BrandID != "" && f.BrandID != Wildcard && r.BrandID != f.BrandID {
		return false
	}
	if f.Task != "" && f.Task != Wildcard && r.TaskName != f.Task {
		return false
	}
	return true
}

// Apply returns the records matching f, preserving input order.
func Apply(records []keys.Record, f Filter) []keys.Record {
	var out []keys.Record
	for _, r := range records {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Group is a bucket of records sharing a template name and brand id.
type Group struct {
	TemplateName string        `json:"templateName"`
	BrandID      string        `json:"brandId"`
	Records      []keys.Record `json:"records"`
}

// GroupRecords buckets records by templateName+brandId. Bucket order is the
// first-occurrence order of each composite key; presentation re-sorts if it
// wants to.
func GroupRecords(records []keys.Record) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, r := range records {
		key := r.TemplateName + "\x00" + r.BrandID
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{TemplateName: r.TemplateName, BrandID: r.BrandID})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// BrandCount is one entry of the top-brand ranking.
type BrandCount struct {
	BrandID string `json:"brandId"`
	Count   int    `json:"count"`
}

// Stats are the global aggregates, always computed over the unfiltered
// dataset.
type Stats struct {
	TotalRecords  int          `json:"totalRecords"`
	TaskCount     int          `json:"taskCount"`
	TemplateCount int          `json:"templateCount"`
	BrandCount    int          `json:"brandCount"`
	TopBrands     []BrandCount `json:"topBrands"`
}

// Summarize computes Stats over records. The top-brand ranking is by record
// count descending, ties broken by first-encountered order.
func Summarize(records []keys.Record) Stats {
	tasks := make(map[string]bool)
	templates := make(map[string]bool)

	brandOrder := make([]string, 0)
	brandCounts := make(map[string]int)

	for _, r := range records {
		tasks[r.TaskName] = true
		templates[r.TemplateName] = true
		if _, seen := brandCounts[r.BrandID]; !seen {
			brandOrder = append(brandOrder, r.BrandID)
		}
		brandCounts[r.BrandID]++
	}

	top := make([]BrandCount, len(brandOrder))
	for i, b := range brandOrder {
		top[i] = BrandCount{BrandID: b, Count: brandCounts[b]}
	}
	// Stable sort keeps first-encountered order among equal counts.
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if len(top) > TopBrandCount {
		top = top[:TopBrandCount]
	}

	return Stats{
		TotalRecords:  len(records),
		TaskCount:     len(tasks),
		TemplateCount: len(templates),
		BrandCount:    len(brandCounts),
		TopBrands:     top,
	}
}
