package metrics

import (
	"errors"
	"io"
)

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordStep forwards the step to all sinks, returning the first error encountered.
func (m *MultiSink) RecordStep(ev StepEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordStep(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun forwards run outcomes to sinks implementing RunRecorder.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RunRecorder); ok {
			if err := rec.RecordRun(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordOscillation forwards findings to sinks implementing OscillationRecorder.
func (m *MultiSink) RecordOscillation(evs []OscillationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(OscillationRecorder); ok {
			if err := rec.RecordOscillation(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordProgress forwards progress to sinks implementing ProgressRecorder.
func (m *MultiSink) RecordProgress(ev ProgressEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ProgressRecorder); ok {
			if err := rec.RecordProgress(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink implementing io.Closer and joins their errors.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
