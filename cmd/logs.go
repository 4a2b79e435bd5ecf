package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evsession/core/decisionlog"
	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/pkg/export"
)

var logsOpts struct {
	since   time.Duration
	outcome string
	brand   string
	limit   int
	format  string
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query the decision log",
	RunE:  runLogs,
}

func init() {
	f := logsCmd.Flags()
	f.DurationVar(&logsOpts.since, "since", 0, "only records newer than this duration")
	f.StringVar(&logsOpts.outcome, "outcome", "", "ask_missing or predict")
	f.StringVar(&logsOpts.brand, "brand", "", "query brand")
	f.IntVar(&logsOpts.limit, "limit", 20, "most recent records to show, 0 for all")
	f.StringVar(&logsOpts.format, "format", "table", "output format: table, json or csv")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DecisionLog.Backend == "" {
		return decisionlog.ErrDisabled
	}
	store, err := decisionlog.Open(cfg.DecisionLog)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	q := decisionlog.LogQuery{
		Outcome: model.OutcomeKind(logsOpts.outcome),
		Brand:   logsOpts.brand,
		Limit:   logsOpts.limit,
	}
	if logsOpts.since > 0 {
		q.Start = time.Now().Add(-logsOpts.since)
	}
	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch logsOpts.format {
	case "json":
		return export.WriteJSON(w, recs)
	case "csv":
		return export.WriteCSV(w, recs)
	case "table":
	default:
		return fmt.Errorf("unknown format %q", logsOpts.format)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOUTCOME\tSTAGE\tBRAND\tMODEL\tPREDICTION\tERROR")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format(time.RFC3339), r.Outcome, r.Stage, r.Query.Brand, r.Query.Model, r.Prediction, r.Error)
	}
	return tw.Flush()
}
