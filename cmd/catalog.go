package cmd

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	corecatalog "github.com/kilianp07/evsession/core/catalog"
	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/core/session"
	infracatalog "github.com/kilianp07/evsession/infra/catalog"
	"github.com/kilianp07/evsession/infra/logger"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the vehicle catalog",
}

var catalogLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List catalog records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		return printRecords(cmd.OutOrStdout(), cat.Records())
	},
}

var catalogMatchCmd = &cobra.Command{
	Use:   "match <brand> <model>",
	Short: "Resolve a brand and model against the catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		engine := session.New(corecatalog.NewAtomic(cat))
		m, ok := engine.Match(model.VehicleQuery{Brand: args[0], Model: args[1]})
		if !ok {
			return fmt.Errorf("no catalog match for %s %s", args[0], args[1])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.Stage, m.Record)
		return nil
	},
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Battery capacity statistics per brand",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		return printStats(cmd.OutOrStdout(), BrandStats(cat.Records()))
	},
}

func init() {
	catalogCmd.AddCommand(catalogLsCmd, catalogMatchCmd, catalogStatsCmd)
	rootCmd.AddCommand(catalogCmd)
}

func openCatalog(cmd *cobra.Command) (*corecatalog.Catalog, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Catalog.Validate(); err != nil {
		return nil, err
	}
	return infracatalog.LoadFile(cfg.Catalog.Path, logger.New("catalog"))
}

func printRecords(w io.Writer, recs []model.VehicleRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BRAND\tMODEL\tBATTERY_KWH\tYEAR\tVARIANT")
	for _, r := range recs {
		year := "-"
		if r.HasModelYear() {
			year = fmt.Sprint(r.ModelYear)
		}
		fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%s\n", r.Brand, r.Model, r.BatteryKWh, year, r.Variant)
	}
	return tw.Flush()
}

// BatteryStats summarizes the battery capacities of one brand.
type BatteryStats struct {
	Brand  string
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Median float64
	Max    float64
}

// BrandStats groups records by brand, in brand order.
func BrandStats(recs []model.VehicleRecord) []BatteryStats {
	byBrand := map[string][]float64{}
	for _, r := range recs {
		byBrand[r.Brand] = append(byBrand[r.Brand], r.BatteryKWh)
	}
	brands := make([]string, 0, len(byBrand))
	for b := range byBrand {
		brands = append(brands, b)
	}
	sort.Strings(brands)

	out := make([]BatteryStats, 0, len(brands))
	for _, b := range brands {
		x := byBrand[b]
		sort.Float64s(x)
		mean, std := stat.MeanStdDev(x, nil)
		if len(x) < 2 || math.IsNaN(std) {
			std = 0
		}
		out = append(out, BatteryStats{
			Brand:  b,
			Count:  len(x),
			Mean:   mean,
			StdDev: std,
			Min:    x[0],
			Median: stat.Quantile(0.5, stat.Empirical, x, nil),
			Max:    x[len(x)-1],
		})
	}
	return out
}

func printStats(w io.Writer, stats []BatteryStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BRAND\tCOUNT\tMEAN\tSTDDEV\tMIN\tMEDIAN\tMAX")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\n",
			s.Brand, s.Count, s.Mean, s.StdDev, s.Min, s.Median, s.Max)
	}
	return tw.Flush()
}
