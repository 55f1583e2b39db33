package maker

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notegen/internal/notes"
	"notegen/internal/notes/notestest"
	"notegen/internal/store"
)

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Store = filepath.Join(t.TempDir(), "notes.csv")
	cfg.IntervalMax = time.Millisecond
	return cfg
}

func lines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	s := strings.TrimSuffix(string(b), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestScriptedRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRecords = 3
	src := &notestest.Source{Ints: notestest.Note(1, 42, 4, "abcd")}

	m, err := New(cfg, src)
	require.NoError(t, err)
	require.NoError(t, m.Init())
	assert.Equal(t, []string{"timestamp,user_id,note,"}, lines(t, cfg.Store))

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, int64(3), m.Written())

	got := lines(t, cfg.Store)
	require.Len(t, got, 4)
	var last int64
	for _, line := range got[1:] {
		fields := strings.Split(line, ",")
		require.Len(t, fields, 4)
		assert.Equal(t, []string{"42", "abcd", ""}, fields[1:])
		ts, err := strconv.ParseInt(fields[0], 10, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ts, last)
		last = ts
	}
}

func TestStepUsesClock(t *testing.T) {
	cfg := testConfig(t)
	src := &notestest.Source{Ints: notestest.Note(1, 7, 4, "WxYz")}
	m, err := New(cfg, src)
	require.NoError(t, err)
	require.NoError(t, m.Init())

	now := time.UnixMilli(1700000000000)
	m.Generator().SetClock(func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	})
	ctx := context.Background()
	require.NoError(t, m.Step(ctx))
	require.NoError(t, m.Step(ctx))

	assert.Equal(t, []string{
		"timestamp,user_id,note,",
		"1700000000001,7,WxYz,",
		"1700000000002,7,WxYz,",
	}, lines(t, cfg.Store))
}

func TestStepAppendsOnly(t *testing.T) {
	cfg := testConfig(t)
	m, err := New(cfg, notes.NewSource(7))
	require.NoError(t, err)
	require.NoError(t, m.Init())

	ctx := context.Background()
	prev := lines(t, cfg.Store)
	for i := 0; i < 20; i++ {
		require.NoError(t, m.Step(ctx))
		cur := lines(t, cfg.Store)
		require.Len(t, cur, len(prev)+1)
		assert.Equal(t, prev, cur[:len(prev)])

		row, err := notes.ParseLine(cur[len(cur)-1])
		require.NoError(t, err)
		rec, err := notes.ParseRow(row)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rec.UserID, 1)
		assert.LessOrEqual(t, rec.UserID, 1000)
		prev = cur
	}
}

func TestInitKeepsExistingStore(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Store, []byte("1,2,abcd,\n"), 0644))

	m, err := New(cfg, notes.NewSource(0))
	require.NoError(t, err)
	require.NoError(t, m.Init())
	require.NoError(t, m.Init())
	assert.Equal(t, []string{"1,2,abcd,"}, lines(t, cfg.Store))
}

func TestRunCancelledBeforeWrite(t *testing.T) {
	cfg := testConfig(t)
	m, err := New(cfg, notes.NewSource(0))
	require.NoError(t, err)
	require.NoError(t, m.Init())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Run(ctx))
	assert.Equal(t, int64(0), m.Written())
	assert.Len(t, lines(t, cfg.Store), 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.IntervalMax = 0
	cfg.IntervalOffset = time.Hour
	m, err := New(cfg, notes.NewSource(0))
	require.NoError(t, err)
	require.NoError(t, m.Init())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(lines(t, cfg.Store)) == 2 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Len(t, lines(t, cfg.Store), 2)
}

func TestRunFailsWhenStoreRemoved(t *testing.T) {
	cfg := testConfig(t)
	m, err := New(cfg, notes.NewSource(0))
	require.NoError(t, err)
	require.NoError(t, m.Init())
	require.NoError(t, m.Step(context.Background()))
	require.NoError(t, os.Remove(cfg.Store))

	err = m.Run(context.Background())
	assert.True(t, errors.Is(err, store.ErrStoreMissing))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, statErr := os.Stat(cfg.Store)
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))
}

func TestPauseRange(t *testing.T) {
	cfg := DefaultConfig()
	m, err := New(cfg, &notestest.Source{Floats: []float64{0, 0.5, 0.999999}})
	require.NoError(t, err)

	assert.Equal(t, 10*time.Microsecond, m.pause())
	assert.Equal(t, 50*time.Millisecond+10*time.Microsecond, m.pause())
	p := m.pause()
	assert.Less(t, int64(p), int64(100*time.Millisecond+10*time.Microsecond))
	assert.Greater(t, int64(p), int64(99*time.Millisecond))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Store = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.UserIDMax = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.IntervalOffset = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxRecords = -1
	_, err := New(cfg, notes.NewSource(0))
	assert.Error(t, err)
}
