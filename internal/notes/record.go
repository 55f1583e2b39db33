// Package notes describes the synthetic note records written to a store and
// the generator that produces them.
package notes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FieldCount is the number of CSV fields in every row, header included.
const FieldCount = 4

// Header is written once, when a store is created. Like data rows it ends
// with an empty fourth field, so it only names three columns.
var Header = []string{"timestamp", "user_id", "note", ""}

// ErrMalformedRow is returned when a row does not have the note layout.
var ErrMalformedRow = errors.New("malformed note row")

// Record is one synthetic note entry.
type Record struct {
	Timestamp int64 // milliseconds since epoch, UTC
	UserID    int
	Note      string
}

// Row returns the CSV fields of r, including the empty trailing field.
func (r Record) Row() []string {
	return []string{
		strconv.FormatInt(r.Timestamp, 10),
		strconv.Itoa(r.UserID),
		r.Note,
		"",
	}
}

// IsHeader reports whether row is the store header.
func IsHeader(row []string) bool {
	return len(row) > 0 && row[0] == Header[0]
}

// ParseRow converts the fields of a data row back into a Record.
func ParseRow(row []string) (Record, error) {
	if len(row) != FieldCount {
		return Record{}, fmt.Errorf("%w: %d fields", ErrMalformedRow, len(row))
	}
	if row[3] != "" {
		return Record{}, fmt.Errorf("%w: trailing field %q not empty", ErrMalformedRow, row[3])
	}
	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedRow, err)
	}
	uid, err := strconv.Atoi(row[1])
	if err != nil {
		return Record{}, fmt.Errorf("%w: user_id: %v", ErrMalformedRow, err)
	}
	return Record{Timestamp: ts, UserID: uid, Note: row[2]}, nil
}

// ParseLine splits a single CSV line into its fields. The line must carry
// exactly FieldCount fields.
func ParseLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = FieldCount
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	return row, nil
}
