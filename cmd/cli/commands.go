package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/uptimewatch/internal/domain"
)

type clientFn func() *Client

func statusCmd(c clientFn) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current status of every service",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := c().Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch status: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "no services configured")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tSTATUS\tCODE\tTIME\tUPTIME\tURL")
			for _, r := range rows {
				code, rt := "-", "-"
				if r.StatusCode != nil {
					code = fmt.Sprint(*r.StatusCode)
				}
				if r.ResponseTimeMs != nil {
					rt = fmt.Sprintf("%dms", *r.ResponseTimeMs)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s%%\t%s\n", r.Name, r.Status, code, rt, r.Uptime, r.URL)
			}
			return w.Flush()
		},
	}
}

func checkCmd(c clientFn) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a check cycle now and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c().CheckNow(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tSTATUS\tTIME\tERROR")
			for _, r := range doc.Results {
				fmt.Fprintf(w, "%s\t%s\t%dms\t%s\n", r.Name, r.Status, r.ResponseTimeMs, r.Error)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "checked %d service(s)\n", doc.Checked)
			return nil
		},
	}
}

func addCmd(c clientFn) *cobra.Command {
	var timeoutMs, expected int
	cmd := &cobra.Command{
		Use:   "add NAME [URL]",
		Short: "Add a service and check it immediately",
		Long:  "Add a service. When URL is omitted it is read from stdin; a missing scheme defaults to https.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) == 2 {
				raw = args[1]
			} else {
				fmt.Fprint(cmd.OutOrStdout(), "Enter a site URL to monitor (e.g., https://example.com): ")
				var err error
				if raw, err = readLine(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			u := normalizeURL(raw)
			if !domain.IsValidHTTPURL(u) {
				return fmt.Errorf("invalid url %q", raw)
			}
			res, err := c().AddService(cmd.Context(), domain.ServiceSpec{
				Name:               args[0],
				URL:                u,
				TimeoutMs:          timeoutMs,
				ExpectedStatusCode: expected,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s: %s (%dms)\n", res.Name, res.Status, res.ResponseTimeMs)
			return nil
		},
	}
	cmd.Flags().IntVar(&timeoutMs, "timeout", 0, "probe timeout in milliseconds (default 5000)")
	cmd.Flags().IntVar(&expected, "expect", 0, "expected HTTP status code (default 200)")
	return cmd
}

func removeCmd(c clientFn) *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a service and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c().RemoveService(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func historyCmd(c clientFn) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history NAME",
		Short: "Show the recorded history of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c().History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s uptime %s%% (%d entries)\n", doc.Name, doc.Uptime, len(doc.History))
			entries := doc.History
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSTATUS\tCODE\tTIME_MS\tERROR")
			for _, e := range entries {
				code := "-"
				if e.StatusCode != nil {
					code = fmt.Sprint(*e.StatusCode)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.Timestamp.Format(time.RFC3339), e.Status, code, e.ResponseTimeMs, e.Error)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "last", 20, "show only the last N entries (0 for all)")
	return cmd
}

func notifyCmd(c clientFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Inspect and test notification channels",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the notification config with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c().Notifications(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHANNEL\tENABLED\tREADY")
			for _, ch := range domain.Channels {
				fmt.Fprintf(w, "%s\t%t\t%t\n", ch, cfg.Enabled(ch), cfg.Ready(ch))
			}
			return w.Flush()
		},
	}, &cobra.Command{
		Use:       "test CHANNEL",
		Short:     "Send a synthetic alert through one channel",
		Args:      cobra.ExactArgs(1),
		ValidArgs: channelNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c().TestChannel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test alert sent via %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func channelNames() []string {
	out := make([]string, 0, len(domain.Channels))
	for _, ch := range domain.Channels {
		out = append(out, string(ch))
	}
	return out
}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return raw
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
