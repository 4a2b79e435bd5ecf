package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	corecatalog "github.com/kilianp07/evsession/core/catalog"
	"github.com/kilianp07/evsession/core/decisionlog"
	"github.com/kilianp07/evsession/core/extract"
	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/core/scoring"
	"github.com/kilianp07/evsession/core/session"
	infracatalog "github.com/kilianp07/evsession/infra/catalog"
	"github.com/kilianp07/evsession/infra/logger"
	_ "github.com/kilianp07/evsession/infra/scoring" // registers the http scorer
)

var resolveOpts struct {
	brand, model, text string
	battery, socStart  float64
	socEnd, duration   float64
	year               int
	asJSON             bool
	timeout            time.Duration
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve one charging session and predict its energy",
	Example: `  evsession resolve --brand Tesla --model "Model 3" --soc-start 10 --soc-end 60 --duration 2
  evsession resolve --text "Zoe charged from 20% to 80% in 3 hours" --brand Renault --model Zoe`,
	RunE: runResolve,
}

func init() {
	f := resolveCmd.Flags()
	f.StringVar(&resolveOpts.brand, "brand", "", "vehicle brand")
	f.StringVar(&resolveOpts.model, "model", "", "vehicle model")
	f.Float64Var(&resolveOpts.battery, "battery", 0, "battery capacity in kWh")
	f.Float64Var(&resolveOpts.socStart, "soc-start", 0, "state of charge at plug-in, percent")
	f.Float64Var(&resolveOpts.socEnd, "soc-end", 0, "state of charge at unplug, percent")
	f.Float64Var(&resolveOpts.duration, "duration", 0, "charging duration in hours")
	f.IntVar(&resolveOpts.year, "year", 0, "vehicle year")
	f.StringVar(&resolveOpts.text, "text", "", "free text to extract values from; flags win")
	f.BoolVar(&resolveOpts.asJSON, "json", false, "print the decision record as JSON")
	f.DurationVar(&resolveOpts.timeout, "timeout", 30*time.Second, "scoring timeout")
	rootCmd.AddCommand(resolveCmd)
}

// flagFields returns the fields set explicitly on the command line.
func flagFields(cmd *cobra.Command) extract.Fields {
	f := extract.Fields{}
	set := func(flag, key string, v any) {
		if cmd.Flags().Changed(flag) {
			f[key] = v
		}
	}
	set("brand", extract.KeyBrand, resolveOpts.brand)
	set("model", extract.KeyModel, resolveOpts.model)
	set("battery", extract.KeyBatteryKWh, resolveOpts.battery)
	set("soc-start", extract.KeySoCStartPct, resolveOpts.socStart)
	set("soc-end", extract.KeySoCEndPct, resolveOpts.socEnd)
	set("duration", extract.KeyDurationHours, resolveOpts.duration)
	set("year", extract.KeyVehicleYear, resolveOpts.year)
	return f
}

func runResolve(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return err
	}
	log := logger.New("resolve")
	opts := []session.Option{session.WithLogger(log), session.WithEfficiency(cfg.Engine.ChargeEfficiency)}
	var engine *session.Engine
	if cfg.Catalog.Path != "" {
		cat, err := infracatalog.LoadFile(cfg.Catalog.Path, log)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		engine = session.New(corecatalog.NewAtomic(cat), opts...)
	} else {
		engine = session.New(nil, opts...)
	}
	scorer, err := scoring.New(cfg.Scoring)
	if err != nil {
		return fmt.Errorf("scorer %s: %w", cfg.Scoring.Type, err)
	}

	fields := flagFields(cmd)
	if resolveOpts.text != "" {
		fields = extract.Merge(extract.FromText(resolveOpts.text), fields)
	}
	q := extract.ToQuery(fields)

	ctx, cancel := context.WithTimeout(cmd.Context(), resolveOpts.timeout)
	defer cancel()
	reply, runErr := engine.Run(ctx, q, scorer)
	rec := decisionlog.NewRecord(q, reply, runErr, time.Now().UTC())

	if cfg.DecisionLog.Backend != "" {
		store, err := decisionlog.Open(cfg.DecisionLog)
		if err != nil {
			return fmt.Errorf("decision log: %w", err)
		}
		if err := decisionlog.AppendDetached(ctx, store, rec); err != nil {
			log.Errorf("append decision: %v", err)
		}
		if err := store.Close(); err != nil {
			log.Errorf("close decision log: %v", err)
		}
	}

	if err := renderRecord(cmd.OutOrStdout(), rec, resolveOpts.asJSON); err != nil {
		return err
	}
	return runErr
}

func renderRecord(w io.Writer, rec decisionlog.Record, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	if rec.Vehicle != nil {
		fmt.Fprintf(w, "vehicle: %s (%s)\n", rec.Vehicle, rec.Stage)
	}
	switch rec.Outcome {
	case model.KindAskMissing:
		fmt.Fprintln(w, "more information is needed:")
		for _, q := range rec.Questions {
			fmt.Fprintf(w, "  - %s\n", q)
		}
	case model.KindPredict:
		if v, ok := rec.Prediction.Get(); ok {
			fmt.Fprintf(w, "predicted energy: %.2f kWh\n", v)
		} else {
			fmt.Fprintln(w, "session complete, prediction unavailable")
		}
	}
	return nil
}
