package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Letters is the alphabet notes are drawn from, lowercase first.
const Letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Limits bounds the random fields of generated records. All bounds are inclusive.
type Limits struct {
	UserIDMin  int `yaml:"user_id_min"`
	UserIDMax  int `yaml:"user_id_max"`
	NoteMinLen int `yaml:"note_min_len"`
	NoteMaxLen int `yaml:"note_max_len"`
}

// DefaultLimits returns user ids 1..1000 and notes of 4..64 letters.
func DefaultLimits() Limits {
	return Limits{
		UserIDMin:  1,
		UserIDMax:  1000,
		NoteMinLen: 4,
		NoteMaxLen: 64,
	}
}

// Validate checks that every range is non-empty and its width fits in an int.
func (l Limits) Validate() error {
	if l.UserIDMin > l.UserIDMax {
		return fmt.Errorf("user id range [%d, %d] is empty", l.UserIDMin, l.UserIDMax)
	}
	if l.UserIDMax-l.UserIDMin+1 <= 0 {
		return fmt.Errorf("user id range [%d, %d] is too wide", l.UserIDMin, l.UserIDMax)
	}
	if l.NoteMinLen < 1 {
		return errors.New("note_min_len must be at least 1")
	}
	if l.NoteMinLen > l.NoteMaxLen {
		return fmt.Errorf("note length range [%d, %d] is empty", l.NoteMinLen, l.NoteMaxLen)
	}
	return nil
}

// Generator produces synthetic note records.
type Generator struct {
	limits Limits
	rand   Source
	now    func() time.Time
}

// NewGenerator creates a generator drawing from r within limits l.
// The limits are assumed to be valid.
func NewGenerator(l Limits, r Source) *Generator {
	return &Generator{
		limits: l,
		rand:   r,
		now:    time.Now,
	}
}

// SetClock replaces the wall clock used for timestamps.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Next returns a new record stamped with the current time. The user id is
// drawn first, then the note length, then each letter.
func (g *Generator) Next() Record {
	ts := g.now().UTC().UnixMilli()
	uid := between(g.rand, g.limits.UserIDMin, g.limits.UserIDMax)
	return Record{
		Timestamp: ts,
		UserID:    uid,
		Note:      g.note(),
	}
}

func (g *Generator) note() string {
	n := between(g.rand, g.limits.NoteMinLen, g.limits.NoteMaxLen)
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(Letters[g.rand.IntN(len(Letters))])
	}
	return sb.String()
}
