package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd prints the persisted error state of every endpoint.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which endpoints are failing",
	Long: `Show the error state of every configured endpoint.

The state is read from the error markers written by a running or previous
poller; no endpoint is checked. Safe to run while "uptimerobot run" holds
the lock.

Example:
  uptimerobot status --base-dir /srv/uptimerobot`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m, err := buildMonitor(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENDPOINT\tSTATE\tSINCE\tURL")
	for _, st := range m.States() {
		state, since := "up", "-"
		if st.Failing {
			state = "failing"
			if !st.FailingSince.IsZero() {
				since = st.FailingSince.Format(time.DateTime)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Name, state, since, st.URL)
	}
	return w.Flush()
}
