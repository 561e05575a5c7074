package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"incidentLog/internal/domain"
	"incidentLog/pkg/e"
)

const timeLayout = "2006-01-02 15:04 MST"

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List incidents, most recently reported first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			incidents, err := opts.client(cmd).GetIncidents(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(incidents) == 0 {
				fmt.Fprintln(out, "No incidents reported.")
				return nil
			}
			return printTable(out, incidents)
		},
	}
}

func newCreateCmd(opts *options) *cobra.Command {
	var req domain.CreateIncidentRequest
	var severity string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Report a new incident",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			req.Severity = domain.Severity(severity)
			inc, err := opts.client(cmd).CreateIncident(ctx, req)
			if err != nil {
				var ve *e.ValidationError
				if errors.As(err, &ve) {
					for _, m := range ve.Messages {
						fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", m)
					}
					return errors.New("incident not submitted")
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Incident reported: %s\n", inc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "short title (max 100 characters)")
	cmd.Flags().StringVar(&req.Description, "description", "", "what happened")
	cmd.Flags().StringVar(&severity, "severity", "", "Low, Medium or High")
	return cmd
}

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one incident by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid incident id %q", args[0])
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			inc, err := opts.client(cmd).GetIncident(ctx, id)
			if err != nil {
				return err
			}
			printDetail(cmd.OutOrStdout(), inc)
			return nil
		},
	}
}

func newShowCmd(opts *options) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the latest incident with an exact title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			inc, err := opts.client(cmd).GetIncidentByTitle(ctx, title)
			if err != nil {
				return err
			}
			printDetail(cmd.OutOrStdout(), inc)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "incident title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	var (
		title string
		id    string
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an incident by title (case-insensitive) or id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			c := opts.client(cmd)
			if id != "" {
				parsed, err := uuid.Parse(id)
				if err != nil {
					return fmt.Errorf("invalid incident id %q", id)
				}
				if err := c.DeleteIncidentByID(ctx, parsed); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Incident %s deleted\n", parsed)
				return nil
			}

			if err := c.DeleteIncident(ctx, title); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Incident %q deleted\n", title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "incident title")
	cmd.Flags().StringVar(&id, "id", "", "incident id")
	cmd.MarkFlagsOneRequired("title", "id")
	cmd.MarkFlagsMutuallyExclusive("title", "id")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Incident counts by severity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			s, err := opts.client(cmd).Stats(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Total\t%d\n", s.Total)
			fmt.Fprintf(tw, "High\t%d\n", s.High)
			fmt.Fprintf(tw, "Medium\t%d\n", s.Medium)
			fmt.Fprintf(tw, "Low\t%d\n", s.Low)
			return tw.Flush()
		},
	}
}

func printTable(out io.Writer, incidents []domain.Incident) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPORTED\tSEVERITY\tTITLE\tID")
	for _, inc := range incidents {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			formatTime(inc.ReportedAt), inc.Severity, inc.Title, inc.ID)
	}
	return tw.Flush()
}

func printDetail(out io.Writer, inc *domain.Incident) {
	fmt.Fprintf(out, "%s [%s]\n", inc.Title, inc.Severity)
	fmt.Fprintf(out, "Reported: %s\n", formatTime(inc.ReportedAt))
	fmt.Fprintf(out, "ID:       %s\n\n", inc.ID)
	fmt.Fprintln(out, strings.TrimSpace(inc.Description))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}
