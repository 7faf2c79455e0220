package main

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.alis.build/alog"

	"github.com/aerissecure/keydash/server"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API.",
		Long: `serve starts the HTTP JSON API the dashboard frontend talks to.

The dataset lives in memory for the lifetime of the process; trigger an
ingestion run through POST /api/ingest (cloud) or POST /api/upload (local
files).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := bindFlags(cmd)
			listen := v.GetString("listen")
			apiKey := v.GetString("api-key")

			srv := server.New(
				server.WithAPIKey(apiKey),
				server.WithLogOutput(os.Stderr),
			)

			alog.Infof(cmd.Context(), "listening on %s", listen)
			return http.ListenAndServe(listen, srv.Handler())
		},
	}

	cmd.Flags().String("listen", ":8080", "Address to listen on.")
	cmd.Flags().String("api-key", "", "Default Google Sheets API key (env: KEYDASH_API_KEY).")
	return cmd
}
