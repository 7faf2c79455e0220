// Package gsheets is the cloud source adapter, a thin wrapper over the
// Google Sheets API v4. Access is API-key based; the key only grants read
// access to link-shared spreadsheets.
package gsheets

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/aerissecure/keydash/source"
)

// rowRange limits each per-sheet request to the columns the key layout
// occupies.
const rowRange = "!A:C"

var spreadsheetURLRe = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)

// SpreadsheetID extracts the spreadsheet id from a full Sheets URL via its
// /d/<id>/ path segment. Anything that does not match is assumed to already
// be a raw id and returned verbatim.
func SpreadsheetID(raw string) string {
	if m := spreadsheetURLRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// Client talks to the Sheets API. It satisfies source.CloudClient.
type Client struct {
	svc *sheets.Service
}

var _ source.CloudClient = (*Client)(nil)

// New builds a Client authenticated by apiKey. Extra options are appended
// after the key so tests can point the client at a local endpoint.
func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, errors.Wrap(err, "creating sheets service")
	}
	return &Client{svc: svc}, nil
}

// Metadata fetches the spreadsheet title and its sheet names. The request is
// field-restricted; nothing else of the (potentially large) spreadsheet
// resource travels over the wire.
func (c *Client) Metadata(ctx context.Context, spreadsheetID string) (*source.Metadata, error) {
	resp, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("properties.title", "sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "fetching spreadsheet metadata")
	}

	md := &source.Metadata{}
	if resp.Properties != nil {
		md.Title = resp.Properties.Title
	}
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			md.SheetNames = append(md.SheetNames, s.Properties.Title)
		}
	}
	return md, nil
}

// BatchRows fetches the rows of every named sheet in a single batchGet call.
// The returned sheets are in the same order as sheetNames; a sheet with no
// values comes back with nil Rows.
func (c *Client) BatchRows(ctx context.Context, spreadsheetID string, sheetNames []string) ([]source.Sheet, error) {
	ranges := make([]string, len(sheetNames))
	for i, name := range sheetNames {
		ranges[i] = name + rowRange
	}

	resp, err := c.svc.Spreadsheets.Values.BatchGet(spreadsheetID).
		Ranges(ranges...).
		Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "fetching spreadsheet values")
	}

	out := make([]source.Sheet, len(sheetNames))
	for i, name := range sheetNames {
		out[i].Name = name
		if i >= len(resp.ValueRanges) || resp.ValueRanges[i] == nil {
			continue
		}
		for _, row := range resp.ValueRanges[i].Values {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = cellString(v)
			}
			out[i].Rows = append(out[i].Rows, cells)
		}
	}
	return out, nil
}

// cellString renders a values-API cell. The API reports strings for almost
// everything; numbers arrive as float64 after JSON decoding.
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
