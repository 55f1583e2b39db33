package collect

import (
	"bytes"

	"github.com/rs/zerolog"

	"notegen/internal/notes"
)

// maxLineSize bounds the bytes held for a line whose newline has not
// arrived yet. Longer lines are counted as malformed and skipped.
const maxLineSize = 64 * 1024

// lineChecker counts the note rows in a byte stream that may split lines
// across messages. It never alters the stream.
type lineChecker struct {
	partial   []byte
	oversize  bool // skipping the rest of an overlong line
	headers   int
	records   int
	malformed int
}

func (lc *lineChecker) feed(data []byte, logger zerolog.Logger) {
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			lc.hold(data, logger)
			return
		}
		lc.hold(data[:i], logger)
		if !lc.oversize {
			lc.check(string(bytes.TrimSuffix(lc.partial, []byte{'\r'})), logger)
		}
		lc.partial = lc.partial[:0]
		lc.oversize = false
		data = data[i+1:]
	}
}

func (lc *lineChecker) hold(b []byte, logger zerolog.Logger) {
	if lc.oversize {
		return
	}
	if len(lc.partial)+len(b) > maxLineSize {
		lc.oversize = true
		lc.malformed++
		lc.partial = lc.partial[:0]
		logger.Warn().Msgf("bad record: longer than %d bytes", maxLineSize)
		return
	}
	lc.partial = append(lc.partial, b...)
}

func (lc *lineChecker) check(line string, logger zerolog.Logger) {
	if line == "" {
		return
	}
	row, err := notes.ParseLine(line)
	if err == nil && notes.IsHeader(row) {
		lc.headers++
		return
	}
	if err == nil {
		_, err = notes.ParseRow(row)
	}
	if err != nil {
		lc.malformed++
		logger.Warn().Msgf("bad record %q: %s", line, err)
		return
	}
	lc.records++
}
