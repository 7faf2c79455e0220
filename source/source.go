// Package source defines the contract shared by the local and cloud
// spreadsheet adapters: both produce a Tables value, an ordered set of named
// row matrices, regardless of where the rows came from.
package source

import "context"

// Sheet is one worksheet's rows. Order of sheets and rows is part of the
// contract; the merged dataset is built in source-then-sheet-then-row order.
type Sheet struct {
	Name string
	Rows [][]string
}

// Tables is the adapter output: a resolved source title plus its sheets.
type Tables struct {
	Title  string
	Sheets []Sheet
}

// Decoder turns a local file payload into Tables. Implementations own the
// heavy decode and must honor ctx cancellation.
type Decoder interface {
	Decode(ctx context.Context, f *File) (*Tables, error)
}

// Metadata is the cloud spreadsheet's identity: its title and the names of
// its sheets, in sheet order.
type Metadata struct {
	Title      string
	SheetNames []string
}

// CloudClient is the remote spreadsheet API consumed by the orchestrator.
// Metadata must be fetched before BatchRows since the row request is keyed
// by sheet name.
type CloudClient interface {
	Metadata(ctx context.Context, spreadsheetID string) (*Metadata, error)
	BatchRows(ctx context.Context, spreadsheetID string, sheetNames []string) ([]Sheet, error)
}
