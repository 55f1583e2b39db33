// Package maker runs the note generator loop: it makes sure the store
// exists, then appends one random record per cycle until cancelled.
package maker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"notegen/internal/notes"
	"notegen/internal/store"
)

// Maker appends synthetic notes to a store.
type Maker struct {
	cfg     Config
	store   *store.Store
	gen     *notes.Generator
	rand    notes.Source
	logger  zerolog.Logger
	written int64
}

// New creates a Maker drawing its randomness from src.
func New(cfg Config, src notes.Source) (*Maker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	m := &Maker{
		cfg:    cfg,
		store:  store.New(cfg.Store, cfg.Flags.Has("crlf")),
		gen:    notes.NewGenerator(cfg.Limits, src),
		rand:   src,
		logger: log.With().Str("component", "maker").Logger(),
	}
	m.logger.Info().Msgf("config: %+v", cfg)
	return m, nil
}

// Generator returns the record generator, e.g. to replace its clock.
func (m *Maker) Generator() *notes.Generator {
	return m.gen
}

// Written returns the number of records appended so far.
func (m *Maker) Written() int64 {
	return m.written
}

// Init creates the store and its header if needed.
func (m *Maker) Init() error {
	_, err := m.store.Ensure()
	return err
}

// Run appends records until ctx is cancelled or MaxRecords have been
// written. Cancellation is not an error. Any I/O failure ends the loop.
func (m *Maker) Run(ctx context.Context) error {
	m.logger.Info().Msgf("writing notes to %s", m.store.Path())
	for m.cfg.MaxRecords == 0 || m.written < m.cfg.MaxRecords {
		if err := m.Step(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				m.logger.Info().Int64("records", m.written).Msg("stopped")
				return nil
			}
			return err
		}
	}
	m.logger.Info().Int64("records", m.written).Msg("record limit reached")
	return nil
}

// Step runs one cycle: append a record, then pause. Cancellation is checked
// before the write and before the pause; the pause itself is interruptible.
func (m *Maker) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := m.gen.Next()
	if err := m.store.Append(rec.Row()); err != nil {
		return err
	}
	m.written++
	m.logger.Trace().Int64("timestamp", rec.Timestamp).Int("user_id", rec.UserID).Msg("note written")

	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(m.pause())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Maker) pause() time.Duration {
	return time.Duration(m.rand.Float64()*float64(m.cfg.IntervalMax)) + m.cfg.IntervalOffset
}
