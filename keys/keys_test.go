package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormed(t *testing.T) {
	rec, ok := Parse("a.b.c.Welcome__header__1234__en_US", "Sheet1", 4)
	require.True(t, ok)

	assert.Equal(t, "Sheet1-4", rec.ID)
	assert.Equal(t, "a.b.c.Welcome__header__1234__en_US", rec.OriginalKey)
	assert.Equal(t, "Sheet1", rec.TaskName)
	assert.Equal(t, "Welcome", rec.TemplateName)
	assert.Equal(t, "1234", rec.BrandID)
	assert.Equal(t, "en_US", rec.Locale)
	assert.Equal(t, []string{"a", "b", "c", "Welcome__header__1234__en_US"}, rec.RawParts)
}

func TestParseEmptyKey(t *testing.T) {
	_, ok := Parse("", "Sheet1", 0)
	assert.False(t, ok)
}

func TestParseDegraded(t *testing.T) {
	// Fewer than three dot-segments is a lossy fallback, not an error.
	for _, raw := range []string{"justakey", "two.parts"} {
		rec, ok := Parse(raw, "Sheet1", 0)
		require.True(t, ok, raw)
		assert.Equal(t, raw, rec.TemplateName)
		assert.Equal(t, UnknownBrand, rec.BrandID)
		assert.Empty(t, rec.Locale)
	}
}

func TestParseCoreSegmentSelection(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		template string
	}{
		{
			name:     "first marker segment wins",
			raw:      "a.First__one.c.Second__two",
			template: "First",
		},
		{
			name:     "no marker falls back to index 3",
			raw:      "a.b.c.Fourth.e",
			template: "Fourth",
		},
		{
			name:     "no marker and short key falls back to last",
			raw:      "a.b.Last",
			template: "Last",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := Parse(tt.raw, "Sheet1", 0)
			require.True(t, ok)
			assert.Equal(t, tt.template, rec.TemplateName)
		})
	}
}

func TestParseBrandID(t *testing.T) {
	tests := []struct {
		raw   string
		brand string
	}{
		{"a.b.c.Tmpl__1234__en", "1234"},
		{"a.b.c.Tmpl__12345__en", UnknownBrand}, // five digits is not a brand
		{"a.b.c.Tmpl__12a4__en", UnknownBrand},
		{"a.b.c.Tmpl__type__en", UnknownBrand},
		{"a.b.c.Tmpl__0001", "0001"},
	}
	for _, tt := range tests {
		rec, ok := Parse(tt.raw, "Sheet1", 0)
		require.True(t, ok, tt.raw)
		assert.Equal(t, tt.brand, rec.BrandID, tt.raw)
	}
}

func TestParseLocaleCollisions(t *testing.T) {
	// Single-part core segment: locale candidate equals the template name.
	rec, ok := Parse("a.b.c.OnlyTemplate", "Sheet1", 0)
	require.True(t, ok)
	assert.Empty(t, rec.Locale)

	// Two-part core segment ending in the brand id.
	rec, ok = Parse("a.b.c.Tmpl__1234", "Sheet1", 0)
	require.True(t, ok)
	assert.Equal(t, "1234", rec.BrandID)
	assert.Empty(t, rec.Locale)
}

func TestParseIdempotent(t *testing.T) {
	a, ok := Parse("x.y.z.Tmpl__1234__de_DE", "Task", 7)
	require.True(t, ok)
	b, ok := Parse("x.y.z.Tmpl__1234__de_DE", "Task", 7)
	require.True(t, ok)
	assert.Equal(t, a, b)
}
