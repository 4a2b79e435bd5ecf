package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evsession/qa/scenarios"
)

var checkCmd = &cobra.Command{
	Use:   "check <scenario.yaml>...",
	Short: "Run resolution scenarios and report mismatches",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			sc, err := scenarios.Load(path)
			if err != nil {
				return err
			}
			res := scenarios.Run(sc)
			if res.Passed() {
				fmt.Fprintf(w, "ok    %s\n", res.Name)
				continue
			}
			failed++
			fmt.Fprintf(w, "FAIL  %s\n", res.Name)
			for _, f := range res.Failures {
				fmt.Fprintf(w, "      %s\n", f)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
