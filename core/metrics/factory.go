package metrics

import (
	"fmt"

	"github.com/kilianp07/evsession/core/factory"
)

var sinks = factory.NewRegistry[MetricsSink]()

// RegisterSink makes a sink type available to NewSink.
func RegisterSink(name string, f factory.Factory[MetricsSink]) error {
	return sinks.Register(name, f)
}

// NewSink builds the sinks listed in cfg. No sink gives a NopSink, several
// give a MultiSink in configuration order. When one sink fails, the ones
// already built are closed.
func NewSink(cfg Config) (MetricsSink, error) {
	built := make([]MetricsSink, 0, len(cfg.Sinks))
	for i, c := range cfg.Sinks {
		s, err := sinks.Create(c)
		if err != nil {
			closeAll(built)
			return nil, fmt.Errorf("metrics sink %d (%s): %w", i, c.Type, err)
		}
		built = append(built, s)
	}
	switch len(built) {
	case 0:
		return NopSink{}, nil
	case 1:
		return built[0], nil
	}
	return NewMultiSink(built...), nil
}

func closeAll(built []MetricsSink) {
	for _, s := range built {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
