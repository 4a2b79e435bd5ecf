package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/evsession/core/factory"
	"github.com/kilianp07/evsession/core/model"
)

// ErrScoring is the sentinel matched by every scoring failure.
var ErrScoring = errors.New("scoring failed")

// Error wraps the cause of a scoring failure.
type Error struct {
	Scorer string
	Err    error
}

func (e *Error) Error() string {
	if e.Scorer == "" {
		return fmt.Sprintf("scoring failed: %v", e.Err)
	}
	return fmt.Sprintf("scoring failed (%s): %v", e.Scorer, e.Err)
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrScoring) true for any *Error.
func (e *Error) Is(target error) bool { return target == ErrScoring }

// Wrap turns err into a *Error unless it already is one. A nil err stays nil.
func Wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Scorer: name, Err: err}
}

// Scorer predicts the energy delivered during a session.
type Scorer interface {
	// Score returns the prediction in kWh, honoring ctx for cancellation.
	Score(ctx context.Context, features model.FeatureVector) (float64, error)
}

// Func adapts a function to the Scorer interface.
type Func func(ctx context.Context, features model.FeatureVector) (float64, error)

// Score calls f.
func (f Func) Score(ctx context.Context, features model.FeatureVector) (float64, error) {
	return f(ctx, features)
}

var registry = factory.NewRegistry[Scorer]()

// Register adds a scorer factory identified by name.
func Register(name string, f factory.Factory[Scorer]) error {
	return registry.Register(name, f)
}

// New creates the scorer described by cfg. An empty type selects the
// physics baseline.
func New(cfg factory.ModuleConfig) (Scorer, error) {
	if cfg.Type == "" {
		cfg.Type = "physics"
	}
	return registry.Create(cfg)
}

func init() {
	_ = Register("physics", func(conf map[string]any) (Scorer, error) {
		var c struct {
			Efficiency float64 `json:"efficiency"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return Physics{Efficiency: c.Efficiency}, nil
	})
	_ = Register("static", func(conf map[string]any) (Scorer, error) {
		var c struct {
			Value float64 `json:"value"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return &Mock{Value: c.Value}, nil
	})
}
