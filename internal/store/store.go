// Package store manages the append-only CSV file notes are written to.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"notegen/internal/notes"
)

// ErrStoreMissing is returned by Append when the store file no longer exists.
// It wraps fs.ErrNotExist.
var ErrStoreMissing = errors.New("store missing")

// Store is a CSV file on disk. It holds no open handle between calls.
type Store struct {
	path   string
	crlf   bool
	logger zerolog.Logger
}

// New returns a store at path. If crlf is set rows end with \r\n instead of \n.
func New(path string, crlf bool) *Store {
	return &Store{
		path:   path,
		crlf:   crlf,
		logger: log.With().Str("component", "store").Logger(),
	}
}

// Path returns the file name of the store.
func (s *Store) Path() string {
	return s.path
}

// Ensure creates the store with its header row if it does not exist yet.
// An existing file is left untouched, whatever it contains.
// It reports whether the file was created.
func (s *Store) Ensure() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return false, fmt.Errorf("could not create directory for store %s: %w", s.path, err)
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		s.logger.Info().Msgf("using existing store %s", s.path)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not create store %s: %w", s.path, err)
	}
	if err := s.write(f, notes.Header); err != nil {
		f.Close()
		return true, fmt.Errorf("could not write header to store %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return true, fmt.Errorf("could not close store %s: %w", s.path, err)
	}
	s.logger.Info().Msgf("created store %s", s.path)
	return true, nil
}

// Append opens the store, writes rows at its end and closes it again.
// The store is not created if it is missing.
func (s *Store) Append(rows ...[]string) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", ErrStoreMissing, s.path, err)
	}
	if err != nil {
		return fmt.Errorf("could not open store %s: %w", s.path, err)
	}
	if err := s.write(f, rows...); err != nil {
		f.Close()
		return fmt.Errorf("could not write record to store %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close store %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) write(w io.Writer, rows ...[]string) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = s.crlf
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
