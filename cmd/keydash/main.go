// keydash is the translation key dashboard: it ingests spreadsheets from
// the Google Sheets API or local Excel files, extracts translation key
// records and serves them through a query API.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.alis.build/alog"
)

// envPrefix maps flags to environment variables: --api-key becomes
// KEYDASH_API_KEY.
const envPrefix = "KEYDASH"

func main() {
	alog.SetLoggingEnvironment(alog.EnvironmentLocal)
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rc := &cobra.Command{
		Use:           "keydash",
		Short:         "keydash ingests translation key spreadsheets and serves a searchable dashboard API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rc.AddCommand(newServeCommand())
	rc.AddCommand(newIngestCommand())
	return rc
}

// bindFlags wires a command's flags to KEYDASH_-prefixed environment
// variables, flags taking priority.
func bindFlags(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
	return v
}
