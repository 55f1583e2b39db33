package collect

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (Config, *httptest.Server) {
	cfg := DefaultConfig()
	cfg.LogDirectory = t.TempDir()
	srv := httptest.NewServer(NewMux(cfg))
	t.Cleanup(srv.Close)
	return cfg, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func handshake(t *testing.T, c *websocket.Conn, session string) string {
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(session)))
	mtype, msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mtype)
	return string(msg)
}

func closeNormal(t *testing.T, c *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))
}

func TestSessionAppendsAndResumes(t *testing.T) {
	cfg, srv := newServer(t)
	filename := filepath.Join(cfg.LogDirectory, "s1")

	c := dial(t, srv, "/notes")
	assert.Equal(t, "0", handshake(t, c, "s1"))
	require.NoError(t, c.WriteMessage(websocket.BinaryMessage, []byte("timestamp,user_id,note,\n1,2,ab")))
	require.NoError(t, c.WriteMessage(websocket.BinaryMessage, []byte("cd,\n")))
	closeNormal(t, c)

	want := "timestamp,user_id,note,\n1,2,abcd,\n"
	assert.Eventually(t, func() bool {
		b, _ := os.ReadFile(filename)
		return string(b) == want
	}, 5*time.Second, 10*time.Millisecond)

	c = dial(t, srv, "/notes")
	assert.Equal(t, "34", handshake(t, c, "s1\nextra header line"))
	require.NoError(t, c.WriteMessage(websocket.BinaryMessage, []byte("3,4,efgh,\n")))
	closeNormal(t, c)

	assert.Eventually(t, func() bool {
		b, _ := os.ReadFile(filename)
		return string(b) == want+"3,4,efgh,\n"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRejectsUnsafeSession(t *testing.T) {
	cfg, srv := newServer(t)

	for _, id := range []string{"../escape", "a/b", "..", ""} {
		c := dial(t, srv, "/notes")
		require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(id)))
		_, _, err := c.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "session %q: %v", id, err)
	}

	entries, err := os.ReadDir(cfg.LogDirectory)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRejectsBinaryGreeting(t *testing.T) {
	_, srv := newServer(t)
	c := dial(t, srv, "/notes")
	require.NoError(t, c.WriteMessage(websocket.BinaryMessage, []byte("s1")))
	_, _, err := c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseUnsupportedData), "%v", err)
}

func TestUnknownPath(t *testing.T) {
	_, srv := newServer(t)
	resp, err := http.Get(srv.URL + "/other")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidSession(t *testing.T) {
	assert.True(t, ValidSession("20240102-030405-alice-host-42"))
	assert.False(t, ValidSession(""))
	assert.False(t, ValidSession("."))
	assert.False(t, ValidSession("a\\b"))
}

func TestLineChecker(t *testing.T) {
	var lc lineChecker
	logger := zerolog.Nop()
	lc.feed([]byte("timestamp,user_id,note,\r\n1,2,abcd,\r\n3,x,ab"), logger)
	assert.Equal(t, 1, lc.headers)
	assert.Equal(t, 1, lc.records)
	assert.Equal(t, 0, lc.malformed)

	lc.feed([]byte("cd,\n\n5,6,ef,\n"), logger)
	assert.Equal(t, 2, lc.records)
	assert.Equal(t, 1, lc.malformed)
}

func TestLineCheckerOverlongLine(t *testing.T) {
	var lc lineChecker
	logger := zerolog.Nop()
	chunk := []byte(strings.Repeat("a", 1000))
	for i := 0; i < 3*maxLineSize/len(chunk); i++ {
		lc.feed(chunk, logger)
		assert.LessOrEqual(t, len(lc.partial), maxLineSize)
		assert.LessOrEqual(t, cap(lc.partial), 2*maxLineSize)
	}
	assert.Equal(t, 1, lc.malformed)
	assert.True(t, lc.oversize)

	lc.feed([]byte("aaaa\n1,2,abcd,\n"), logger)
	assert.Equal(t, 1, lc.malformed)
	assert.Equal(t, 1, lc.records)
	assert.False(t, lc.oversize)
	assert.Empty(t, lc.partial)
}
