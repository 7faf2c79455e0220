package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aerissecure/keydash/ingest"
	"github.com/aerissecure/keydash/query"
	"github.com/aerissecure/keydash/source"
)

func newIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Run one ingestion and print the dataset summary.",
		Long: `ingest runs the pipeline once, without the server.

Pass one or more .xlsx/.xls files, or --spreadsheet with an id or full URL
(plus an API key) to pull from the Google Sheets API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := bindFlags(cmd)
			spreadsheet := v.GetString("spreadsheet")
			apiKey := v.GetString("api-key")

			cfg, err := buildConfig(args, spreadsheet, apiKey)
			if err != nil {
				return err
			}

			orch := ingest.New(ingest.WithStatusFunc(func(s ingest.State) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s...\n", s.Label())
			}))
			res, err := orch.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().String("spreadsheet", "", "Google Sheets spreadsheet id or URL.")
	cmd.Flags().String("api-key", "", "Google Sheets API key (env: KEYDASH_API_KEY).")
	return cmd
}

func buildConfig(files []string, spreadsheet, apiKey string) (ingest.Config, error) {
	if spreadsheet != "" {
		if len(files) > 0 {
			return ingest.Config{}, errors.New("pass either files or --spreadsheet, not both")
		}
		return ingest.Config{
			Mode:               ingest.ModeCloud,
			SpreadsheetIDOrURL: spreadsheet,
			APIKey:             apiKey,
		}, nil
	}

	var set source.FileSet
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return ingest.Config{}, errors.Wrapf(err, "reading %s", path)
		}
		f, err := source.NewFile(filepath.Base(path), data)
		if err != nil {
			return ingest.Config{}, err
		}
		set.Add(f)
	}
	return ingest.Config{Mode: ingest.ModeLocal, Files: set.Files()}, nil
}

func printSummary(w io.Writer, res *ingest.Result) {
	stats := query.Summarize(res.Records)

	fmt.Fprintf(w, "%s\n", res.Title)
	fmt.Fprintf(w, "  records:   %d\n", stats.TotalRecords)
	fmt.Fprintf(w, "  tasks:     %d\n", stats.TaskCount)
	fmt.Fprintf(w, "  templates: %d\n", stats.TemplateCount)
	fmt.Fprintf(w, "  brands:    %d\n", stats.BrandCount)
	if len(stats.TopBrands) > 0 {
		fmt.Fprintf(w, "  top brands:\n")
		for _, b := range stats.TopBrands {
			fmt.Fprintf(w, "    %-8s %d\n", b.BrandID, b.Count)
		}
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "  skipped: %s\n", f.Name)
	}
}
