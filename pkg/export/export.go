// Package export writes decision records in formats suited to offline
// analysis and model retraining.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/evsession/core/decisionlog"
	"github.com/kilianp07/evsession/core/model"
)

// WriteJSON writes records as JSON lines.
func WriteJSON(w io.Writer, records []decisionlog.Record) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// Header returns the CSV columns: record metadata followed by the feature
// names in scoring order.
func Header() []string {
	h := []string{"id", "timestamp", "outcome", "stage", "brand", "model"}
	h = append(h, model.SessionInfo{}.Features().Names()...)
	return append(h, "prediction_kwh", "error")
}

// WriteCSV writes records with one column per feature. Unknown values are
// empty cells.
func WriteCSV(w io.Writer, records []decisionlog.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Timestamp.Format(time.RFC3339),
			string(r.Outcome),
			r.Stage,
			r.Query.Brand,
			r.Query.Model,
		}
		for _, f := range r.Session.Features() {
			row = append(row, cell(f.Value))
		}
		row = append(row, cell(r.Prediction), r.Error)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v model.Value) string {
	f, ok := v.Get()
	if !ok {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
