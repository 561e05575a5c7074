// Package cli is the incidentctl command line: list, create, view and delete
// incidents through the HTTP API.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"incidentLog/pkg/client"
	"incidentLog/pkg/logger"
)

const defaultAPIURL = "http://localhost:7777/api"

type options struct {
	apiURL  string
	timeout time.Duration
	verbose bool
}

func Execute() error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			slog.Warn(".env load warning", slog.Any("error", err))
		}
	}
	return NewRootCmd(os.Stdout, os.Stderr).Execute()
}

func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "incidentctl",
		Short:        "incidentctl manages the AI safety incident log",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	apiURL := os.Getenv("INCIDENT_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", apiURL, "incident API base url (env INCIDENT_API_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log HTTP requests")

	root.AddCommand(
		newListCmd(opts),
		newCreateCmd(opts),
		newGetCmd(opts),
		newShowCmd(opts),
		newDeleteCmd(opts),
		newStatsCmd(opts),
	)
	return root
}

func (o *options) client(cmd *cobra.Command) *client.Client {
	opts := []client.Option{}
	if o.verbose {
		pretty := logger.PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}
		l := slog.New(pretty.NewPrettyHandler(cmd.ErrOrStderr()))
		opts = append(opts, client.WithLogger(l))
	}
	return client.New(o.apiURL, opts...)
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}
