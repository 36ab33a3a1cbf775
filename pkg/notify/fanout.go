package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// FanoutSink delivers every notification to all of its sinks in parallel.
// A failing sink does not stop delivery to the others.
type FanoutSink struct {
	sinks []Sink
}

// NewFanoutSink combines sinks. With one sink, prefer using it directly.
func NewFanoutSink(sinks ...Sink) *FanoutSink {
	return &FanoutSink{sinks: sinks}
}

// Deliver sends n to every sink and joins their errors.
func (f *FanoutSink) Deliver(ctx context.Context, n Notification) error {
	errs := make([]error, len(f.sinks))

	var g errgroup.Group
	for i, sink := range f.sinks {
		g.Go(func() error {
			if err := sink.Deliver(ctx, n); err != nil {
				errs[i] = fmt.Errorf("%s: %w", sink.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// Name lists the member sinks, e.g. "fanout(log,webhook)".
func (f *FanoutSink) Name() string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	return "fanout(" + strings.Join(names, ",") + ")"
}

// Close closes every sink and joins their errors.
func (f *FanoutSink) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
