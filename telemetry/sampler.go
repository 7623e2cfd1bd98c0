// Package telemetry samples a running field's population into CSV rows.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/lguibr/gonwayish/field"
)

// Source is the snapshot provider sampled. *field.Field satisfies it.
type Source interface {
	Snapshot() field.Snapshot
}

// Record is one population sample.
type Record struct {
	Timestamp string  `csv:"timestamp"` // RFC 3339 with nanoseconds
	ElapsedMS int64   `csv:"elapsed_ms"`
	Alive     int     `csv:"alive"`
	Total     int     `csv:"total"`
	Ratio     float64 `csv:"ratio"`
	MeanAgeMS float64 `csv:"mean_age_ms"` // Over live cells, 0 when none
}

// Sampler writes a Record to out every interval.
type Sampler struct {
	source   Source
	out      io.Writer
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	started       time.Time
	headerWritten bool
}

// NewSampler creates a sampler. A nil logger falls back to slog.Default().
func NewSampler(source Source, out io.Writer, interval time.Duration, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		source:   source,
		out:      out,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Sample takes one record from the current snapshot.
func (s *Sampler) Sample() Record {
	now := s.now()
	if s.started.IsZero() {
		s.started = now
	}
	snapshot := s.source.Snapshot()

	rec := Record{
		Timestamp: now.Format(time.RFC3339Nano),
		ElapsedMS: now.Sub(s.started).Milliseconds(),
		Total:     len(snapshot),
	}
	var totalAge time.Duration
	for _, info := range snapshot {
		if info.Alive {
			rec.Alive++
			totalAge += info.Age(now)
		}
	}
	if rec.Total > 0 {
		rec.Ratio = float64(rec.Alive) / float64(rec.Total)
	}
	if rec.Alive > 0 {
		rec.MeanAgeMS = float64(totalAge.Milliseconds()) / float64(rec.Alive)
	}
	return rec
}

// Write appends rec to the output, preceded by the header on first use.
func (s *Sampler) Write(rec Record) error {
	records := []Record{rec}

	if !s.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, s.out); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		s.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, s.out); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// Run samples every interval until ctx is done, then writes a final sample.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.Write(s.Sample())
		case <-ticker.C:
			rec := s.Sample()
			if err := s.Write(rec); err != nil {
				return err
			}
			s.logger.Debug("population sampled", "alive", rec.Alive, "total", rec.Total)
		}
	}
}
