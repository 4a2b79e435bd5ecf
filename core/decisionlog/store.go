// Package decisionlog keeps an audit trail of session decisions.
package decisionlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/core/normalize"
	"github.com/kilianp07/evsession/core/session"
)

// Record captures one session decision and, when scored, its prediction.
type Record struct {
	ID         string               `json:"id"`
	Timestamp  time.Time            `json:"timestamp"`
	Query      session.Query        `json:"query"`
	Outcome    model.OutcomeKind    `json:"outcome"`
	Stage      string               `json:"stage"`
	Vehicle    *model.VehicleRecord `json:"vehicle,omitempty"`
	Questions  []string             `json:"questions,omitempty"`
	Session    model.SessionInfo    `json:"session"`
	Prediction model.Value          `json:"prediction"`
	Error      string               `json:"error,omitempty"`
}

// NewRecord builds the record of q answered by reply. err is the error
// returned by Engine.Run, if any.
func NewRecord(q session.Query, reply session.Reply, err error, now time.Time) Record {
	r := Record{
		ID:         uuid.NewString(),
		Timestamp:  now,
		Query:      q,
		Stage:      reply.Stage(q),
		Session:    reply.Session,
		Prediction: reply.Prediction,
	}
	if reply.Outcome != nil {
		r.Outcome = reply.Outcome.Kind()
	}
	if ask, ok := reply.Outcome.(model.AskMissing); ok {
		r.Questions = ask.Questions
	}
	if reply.Vehicle != nil {
		v := reply.Vehicle.Record
		r.Vehicle = &v
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// LogQuery defines filters for retrieving records. Zero fields match
// everything.
type LogQuery struct {
	Start   time.Time
	End     time.Time
	Outcome model.OutcomeKind
	// Brand matches the normalized query brand.
	Brand string
	// Limit keeps the most recent records when positive.
	Limit int
}

// Matches reports whether r passes the filters of q, ignoring Limit.
func (q LogQuery) Matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	if q.Brand != "" && normalize.Normalize(r.Query.Brand) != normalize.Normalize(q.Brand) {
		return false
	}
	return true
}

func (q LogQuery) limit(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q LogQuery) ([]Record, error)
	Close() error
}

// AppendTimeout bounds the write done by AppendDetached.
const AppendTimeout = 5 * time.Second

// AppendDetached appends rec with a context that keeps the values of ctx but
// not its cancellation, so a decision is still logged after the request or
// the scoring deadline that produced it has expired.
func AppendDetached(ctx context.Context, s Store, rec Record) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), AppendTimeout)
	defer cancel()
	return s.Append(ctx, rec)
}

// Config selects and configures a Store.
type Config struct {
	// Backend is "jsonl" or "sqlite". Empty disables the log.
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// Rotation applies to the jsonl backend when MaxSizeMB is positive.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// ErrDisabled is returned by Open when no backend is configured.
var ErrDisabled = errors.New("decision log disabled")

// Validate checks the configuration.
func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("decision_log.path is required for backend %s", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown decision_log backend %q", c.Backend)
	}
}

// Open creates the store described by cfg.
func Open(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Backend) {
	case "jsonl":
		if cfg.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return NewJSONLStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	}
	return nil, ErrDisabled
}
