package ingest

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerissecure/keydash/source"
)

// fakeDecoder decodes every file into a one-sheet table with a single valid
// key row, failing for names listed in fail.
type fakeDecoder struct {
	fail map[string]bool
	rows map[string][][]string // per file name; default key row when absent
}

func (d fakeDecoder) Decode(_ context.Context, f *source.File) (*source.Tables, error) {
	if d.fail[f.Name()] {
		return nil, errors.New("corrupt workbook")
	}
	rows, ok := d.rows[f.Name()]
	if !ok {
		rows = [][]string{{"", "a.b.c." + f.Title() + "__1234__en_US"}}
	}
	return &source.Tables{
		Title:  f.Title(),
		Sheets: []source.Sheet{{Name: "Sheet1", Rows: rows}},
	}, nil
}

// fakeCloud is a canned source.CloudClient.
type fakeCloud struct {
	md          *source.Metadata
	mdErr       error
	sheets      []source.Sheet
	rowsErr     error
	batchCalled bool
}

func (c *fakeCloud) Metadata(context.Context, string) (*source.Metadata, error) {
	return c.md, c.mdErr
}

func (c *fakeCloud) BatchRows(context.Context, string, []string) ([]source.Sheet, error) {
	c.batchCalled = true
	return c.sheets, c.rowsErr
}

func mustFile(t *testing.T, name string) *source.File {
	t.Helper()
	f, err := source.NewFile(name, []byte(name))
	require.NoError(t, err)
	return f
}

func TestRunInvalidConfig(t *testing.T) {
	tests := []Config{
		{},
		{Mode: ModeCloud, APIKey: "k"},               // missing spreadsheet
		{Mode: ModeCloud, SpreadsheetIDOrURL: "abc"}, // missing key
		{Mode: ModeLocal},                            // no files
		{Mode: "carrier-pigeon"},
	}
	for _, cfg := range tests {
		o := New()
		_, err := o.Run(context.Background(), cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Equal(t, StateError, o.State())
	}
}

func TestRunCloud(t *testing.T) {
	cloud := &fakeCloud{
		md: &source.Metadata{Title: "Q3 Translations", SheetNames: []string{"DE", "FR"}},
		sheets: []source.Sheet{
			{Name: "DE", Rows: [][]string{{"", "a.b.c.Welcome__1111__de_DE"}}},
			{Name: "FR", Rows: [][]string{{"", "a.b.c.Welcome__2222__fr_FR"}}},
		},
	}

	var states []State
	o := New(WithCloudClient(cloud), WithStatusFunc(func(s State) { states = append(states, s) }))

	res, err := o.Run(context.Background(), Config{
		Mode:               ModeCloud,
		SpreadsheetIDOrURL: "https://docs.google.com/spreadsheets/d/sheet-id/edit",
		APIKey:             "k",
	})
	require.NoError(t, err)

	assert.Equal(t, "Q3 Translations", res.Title)
	require.Len(t, res.Records, 2)
	// Cloud tasks are plain sheet names, no file namespacing.
	assert.Equal(t, "DE", res.Records[0].TaskName)
	assert.Equal(t, "FR", res.Records[1].TaskName)

	assert.Equal(t, []State{StateFetchingMetadata, StateFetchingRows, StateParsing, StateReady}, states)
	assert.Equal(t, StateReady, o.State())
}

func TestRunCloudEmptySheetList(t *testing.T) {
	cloud := &fakeCloud{md: &source.Metadata{Title: "Empty"}}
	o := New(WithCloudClient(cloud))

	_, err := o.Run(context.Background(), Config{Mode: ModeCloud, SpreadsheetIDOrURL: "id", APIKey: "k"})
	assert.ErrorIs(t, err, ErrEmptySheetList)
	assert.Equal(t, StateError, o.State())
	// Fails fast: no values request after empty metadata.
	assert.False(t, cloud.batchCalled)
}

func TestRunCloudFetchFailureAborts(t *testing.T) {
	cloud := &fakeCloud{
		md:      &source.Metadata{Title: "T", SheetNames: []string{"A"}},
		rowsErr: errors.New("quota exceeded"),
	}
	o := New(WithCloudClient(cloud))

	_, err := o.Run(context.Background(), Config{Mode: ModeCloud, SpreadsheetIDOrURL: "id", APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, StateError, o.State())
}

func TestRunLocalPartialFailure(t *testing.T) {
	files := []*source.File{
		mustFile(t, "one.xlsx"),
		mustFile(t, "two.xlsx"),
		mustFile(t, "three.xlsx"),
	}
	o := New(WithDecoder(fakeDecoder{fail: map[string]bool{"two.xlsx": true}}))

	res, err := o.Run(context.Background(), Config{Mode: ModeLocal, Files: files})
	require.NoError(t, err)

	assert.Equal(t, StateReady, o.State())
	assert.Equal(t, "2 Local Files", res.Title)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "one :: Sheet1", res.Records[0].TaskName)
	assert.Equal(t, "three :: Sheet1", res.Records[1].TaskName)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "two.xlsx", res.Failures[0].Name)
}

func TestRunLocalAllFilesFail(t *testing.T) {
	files := []*source.File{mustFile(t, "one.xlsx"), mustFile(t, "two.xlsx")}
	o := New(WithDecoder(fakeDecoder{fail: map[string]bool{"one.xlsx": true, "two.xlsx": true}}))

	_, err := o.Run(context.Background(), Config{Mode: ModeLocal, Files: files})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 files failed")
	assert.Equal(t, StateError, o.State())
}

func TestRunLocalSingleFileTitle(t *testing.T) {
	o := New(WithDecoder(fakeDecoder{}))

	res, err := o.Run(context.Background(), Config{Mode: ModeLocal, Files: []*source.File{mustFile(t, "budget.xlsx")}})
	require.NoError(t, err)
	assert.Equal(t, "budget", res.Title)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "budget :: Sheet1", res.Records[0].TaskName)
}

func TestRunEmptyResultSet(t *testing.T) {
	// Decoding succeeds but nothing matches the key layout.
	dec := fakeDecoder{rows: map[string][][]string{
		"empty.xlsx": {{"header only"}},
	}}
	o := New(WithDecoder(dec))

	_, err := o.Run(context.Background(), Config{Mode: ModeLocal, Files: []*source.File{mustFile(t, "empty.xlsx")}})
	assert.ErrorIs(t, err, ErrEmptyResultSet)
	assert.Equal(t, StateError, o.State())
}

func TestRunOncePerOrchestrator(t *testing.T) {
	o := New(WithDecoder(fakeDecoder{}))

	_, err := o.Run(context.Background(), Config{Mode: ModeLocal, Files: []*source.File{mustFile(t, "a.xlsx")}})
	require.NoError(t, err)

	_, err = o.Run(context.Background(), Config{Mode: ModeLocal, Files: []*source.File{mustFile(t, "b.xlsx")}})
	assert.ErrorIs(t, err, ErrAlreadyRan)
}

func TestRunMergeOrder(t *testing.T) {
	// Records arrive in source-then-sheet-then-row order.
	dec := fakeDecoder{rows: map[string][][]string{
		"a.xlsx": {
			{"", "k.e.y.First__1111"},
			{"", "k.e.y.Second__2222"},
		},
		"b.xlsx": {
			{"", "k.e.y.Third__3333"},
		},
	}}
	o := New(WithDecoder(dec))

	res, err := o.Run(context.Background(), Config{
		Mode:  ModeLocal,
		Files: []*source.File{mustFile(t, "a.xlsx"), mustFile(t, "b.xlsx")},
	})
	require.NoError(t, err)

	var templates []string
	for _, r := range res.Records {
		templates = append(templates, r.TemplateName)
	}
	assert.Equal(t, []string{"First", "Second", "Third"}, templates)
}
