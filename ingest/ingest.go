// Package ingest coordinates one ingestion run: it drives the source
// adapters, extracts records sheet by sheet, merges them into a single
// dataset and reports lifecycle state along the way.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.alis.build/alog"
	"golang.org/x/sync/errgroup"

	"github.com/aerissecure/keydash/keys"
	"github.com/aerissecure/keydash/source"
	"github.com/aerissecure/keydash/source/gsheets"
	"github.com/aerissecure/keydash/source/xlsx"
)

var (
	// ErrInvalidConfig means the config satisfies neither ingestion mode.
	ErrInvalidConfig = errors.New("invalid ingestion configuration")
	// ErrEmptySheetList means the cloud spreadsheet reports zero sheets.
	ErrEmptySheetList = errors.New("spreadsheet has no sheets")
	// ErrEmptyResultSet means every source was processed but no row matched
	// the key layout. Distinct from a fetch or decode failure.
	ErrEmptyResultSet = errors.New("no translation keys found in any sheet")
	// ErrAlreadyRan means Run was called twice on the same orchestrator.
	ErrAlreadyRan = errors.New("orchestrator already ran")
)

// Mode selects the ingestion protocol.
type Mode string

const (
	ModeCloud Mode = "cloud"
	ModeLocal Mode = "local"
)

// Config is the discriminated run configuration: cloud mode needs a
// spreadsheet reference and an API key, local mode a non-empty file list.
type Config struct {
	Mode Mode

	// Cloud mode. SpreadsheetIDOrURL accepts either a raw id or a full
	// Sheets URL.
	SpreadsheetIDOrURL string
	APIKey             string

	// Local mode.
	Files []*source.File
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeCloud:
		if c.SpreadsheetIDOrURL == "" || c.APIKey == "" {
			return errors.Wrap(ErrInvalidConfig, "cloud mode needs a spreadsheet id and api key")
		}
	case ModeLocal:
		if len(c.Files) == 0 {
			return errors.Wrap(ErrInvalidConfig, "local mode needs at least one file")
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown mode %q", c.Mode)
	}
	return nil
}

// FileFailure records one local file that was dropped from the merge.
type FileFailure struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// Result is a completed run: the resolved source title and the merged
// record set, plus any tolerated per-file failures.
type Result struct {
	Title    string        `json:"title"`
	Records  []keys.Record `json:"records"`
	Failures []FileFailure `json:"failures,omitempty"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDecoder overrides the local workbook decoder.
func WithDecoder(d source.Decoder) Option {
	return func(o *Orchestrator) { o.decoder = d }
}

// WithCloudClient injects a pre-built cloud client, bypassing the default
// gsheets construction from the config's API key.
func WithCloudClient(c source.CloudClient) Option {
	return func(o *Orchestrator) { o.client = c }
}

// WithStatusFunc registers a callback invoked on every state change.
func WithStatusFunc(fn func(State)) Option {
	return func(o *Orchestrator) { o.onStatus = fn }
}

// Orchestrator drives a single ingestion run. One run per value: starting a
// second run on the same orchestrator is rejected, and gating concurrent
// runs is the caller's job.
type Orchestrator struct {
	decoder  source.Decoder
	client   source.CloudClient
	onStatus func(State)

	mu    sync.Mutex
	state State
}

// New builds an orchestrator in the Idle state.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		decoder: xlsx.Decoder{},
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// to performs a guarded transition. An invalid transition is a programming
// error and is returned rather than silently applied.
func (o *Orchestrator) to(s State) error {
	o.mu.Lock()
	if !allowed(o.state, s) {
		from := o.state
		o.mu.Unlock()
		return errors.Errorf("invalid state transition %s -> %s", from, s)
	}
	o.state = s
	o.mu.Unlock()

	if o.onStatus != nil {
		o.onStatus(s)
	}
	return nil
}

// fail moves to the Error state and returns err. The transition is always
// legal from a non-terminal state, which is the only place fail is called.
func (o *Orchestrator) fail(ctx context.Context, err error) error {
	alog.Errorf(ctx, "ingestion failed: %v", err)
	_ = o.to(StateError)
	return err
}

// Run executes the configured ingestion protocol and returns the merged
// dataset. On any terminal failure the orchestrator ends in StateError and
// the returned error carries the user-facing message.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (*Result, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, ErrAlreadyRan
	}
	o.mu.Unlock()

	if err := cfg.validate(); err != nil {
		return nil, o.fail(ctx, err)
	}

	var (
		res *Result
		err error
	)
	switch cfg.Mode {
	case ModeCloud:
		res, err = o.runCloud(ctx, cfg)
	case ModeLocal:
		res, err = o.runLocal(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	// Both protocols converge here: an empty merge is a failure, never a
	// silent empty success.
	if len(res.Records) == 0 {
		return nil, o.fail(ctx, ErrEmptyResultSet)
	}
	if err := o.to(StateReady); err != nil {
		return nil, err
	}
	alog.Infof(ctx, "ingestion ready: %q, %d records", res.Title, len(res.Records))
	return res, nil
}

// runCloud fetches metadata, then every sheet's rows in one batched call.
// Cloud mode does not tolerate partial failure: any request error aborts the
// run, with the remote message passed through.
func (o *Orchestrator) runCloud(ctx context.Context, cfg Config) (*Result, error) {
	id := gsheets.SpreadsheetID(cfg.SpreadsheetIDOrURL)

	client := o.client
	if client == nil {
		var err error
		client, err = gsheets.New(ctx, cfg.APIKey)
		if err != nil {
			return nil, o.fail(ctx, err)
		}
	}

	if err := o.to(StateFetchingMetadata); err != nil {
		return nil, err
	}
	md, err := client.Metadata(ctx, id)
	if err != nil {
		return nil, o.fail(ctx, err)
	}
	if len(md.SheetNames) == 0 {
		return nil, o.fail(ctx, ErrEmptySheetList)
	}

	if err := o.to(StateFetchingRows); err != nil {
		return nil, err
	}
	sheets, err := client.BatchRows(ctx, id, md.SheetNames)
	if err != nil {
		return nil, o.fail(ctx, err)
	}

	if err := o.to(StateParsing); err != nil {
		return nil, err
	}
	res := &Result{Title: md.Title}
	for _, sheet := range sheets {
		res.Records = append(res.Records, keys.Extract(sheet.Name, sheet.Rows, keys.KeyColumn)...)
	}
	return res, nil
}

// runLocal decodes each file in turn and merges whatever succeeded. Decode
// is heavy, so files go through a worker pool of size one: sequential on
// purpose, trading latency for bounded memory while the caller stays
// responsive.
func (o *Orchestrator) runLocal(ctx context.Context, cfg Config) (*Result, error) {
	if err := o.to(StateFetchingMetadata); err != nil {
		return nil, err
	}
	if err := o.to(StateFetchingRows); err != nil {
		return nil, err
	}

	tables := make([]*source.Tables, len(cfg.Files))
	failures := make([]FileFailure, len(cfg.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(1)
	for i, f := range cfg.Files {
		i, f := i, f
		g.Go(func() error {
			t, err := o.decoder.Decode(gctx, f)
			if err != nil {
				// Tolerated: the file is logged, recorded and excluded
				// from the merge.
				alog.Warnf(gctx, "skipping %s: %v", f.Name(), err)
				failures[i] = FileFailure{Name: f.Name(), Err: err}
				return nil
			}
			tables[i] = t
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, o.fail(ctx, err)
	}

	if err := o.to(StateParsing); err != nil {
		return nil, err
	}

	res := &Result{}
	var succeeded []*source.Tables
	for i := range cfg.Files {
		if tables[i] == nil {
			res.Failures = append(res.Failures, failures[i])
			continue
		}
		succeeded = append(succeeded, tables[i])
	}
	if len(succeeded) == 0 {
		first := res.Failures[0]
		return nil, o.fail(ctx, errors.Wrapf(first.Err, "all %d files failed to decode", len(cfg.Files)))
	}

	for _, t := range succeeded {
		for _, sheet := range t.Sheets {
			task := fmt.Sprintf("%s :: %s", t.Title, sheet.Name)
			res.Records = append(res.Records, keys.Extract(task, sheet.Rows, keys.KeyColumn)...)
		}
	}

	if len(succeeded) == 1 {
		res.Title = succeeded[0].Title
	} else {
		res.Title = fmt.Sprintf("%d Local Files", len(succeeded))
	}
	return res, nil
}
