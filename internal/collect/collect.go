// Package collect receives note stores shipped by forwarders and appends
// them to one file per session.
package collect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls the collector.
type Config struct {
	ListenPort       string        `yaml:"listenport"`
	ListenName       string        `yaml:"listenname"`
	LogDirectory     string        `yaml:"logdirectory"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// DefaultConfig serves /notes on port 8090 into ./collected.
func DefaultConfig() Config {
	return Config{
		ListenPort:       "8090",
		ListenName:       "notes",
		LogDirectory:     "collected",
		HandshakeTimeout: 5 * time.Second,
	}
}

// Handler accepts forwarder sessions over websocket.
type Handler struct {
	cfg      Config
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler returns a session handler writing below cfg.LogDirectory.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		cfg:    cfg,
		logger: log.With().Str("component", "collector").Logger(),
	}
}

// ValidSession reports whether id can be used as a file name in the log
// directory.
func ValidSession(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`+"\x00")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With().Str("conn", uuid.NewString()).Str("remote", r.RemoteAddr).Logger()

	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Msgf("connection upgrade failure: %s", err)
		return
	}
	defer c.Close()

	// first message is text and carries the session id
	logger.Debug().Msg("handshaking new connection request")
	c.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout))
	mtype, msg, err := c.ReadMessage()
	if err != nil {
		logger.Warn().Msgf("handshake read: %s", err)
		return
	}
	if mtype != websocket.TextMessage {
		h.reject(c, websocket.CloseUnsupportedData, "invalid remote greeting")
		logger.Warn().Msg("invalid remote greeting, closing connection")
		return
	}
	session := strings.Split(strings.ReplaceAll(string(msg), "\r\n", "\n"), "\n")[0]
	if !ValidSession(session) {
		h.reject(c, websocket.ClosePolicyViolation, "invalid session id")
		logger.Warn().Msgf("invalid session id %q, closing connection", session)
		return
	}
	logger = logger.With().Str("session", session).Logger()

	filename := filepath.Join(h.cfg.LogDirectory, session)
	out, err := os.OpenFile(filename, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		h.reject(c, websocket.CloseInternalServerErr, "cannot open session file")
		logger.Error().Msgf("open %s: %s", filename, err)
		return
	}
	defer out.Close()
	st, err := out.Stat()
	if err != nil {
		h.reject(c, websocket.CloseInternalServerErr, "cannot open session file")
		logger.Error().Msgf("stat %s: %s", filename, err)
		return
	}

	c.SetWriteDeadline(time.Now().Add(h.cfg.HandshakeTimeout))
	if err := c.WriteMessage(websocket.TextMessage, []byte(strconv.FormatInt(st.Size(), 10))); err != nil {
		logger.Warn().Msgf("unable to complete handshake: %s", err)
		return
	}
	c.SetReadDeadline(time.Time{})
	logger.Info().Msgf("opened %s at position %d", filename, st.Size())

	var check lineChecker
	var written int64
	for {
		mtype, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info().Msg("connection closed")
			} else {
				logger.Warn().Msgf("read: %s", err)
			}
			break
		}
		if mtype != websocket.BinaryMessage {
			logger.Warn().Msg("unexpected non-binary data encountered")
			break
		}
		if _, err := out.Write(data); err != nil {
			logger.Error().Msgf("write %s: %s", filename, err)
			return
		}
		written += int64(len(data))
		check.feed(data, logger)
	}
	logger.Info().
		Int64("bytes", written).
		Int("records", check.records).
		Int("malformed", check.malformed).
		Msg("connection dropped")
}

func (h *Handler) reject(c *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// NewMux routes /<ListenName> to a Handler and answers everything else with 404.
func NewMux(cfg Config) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/"+cfg.ListenName, NewHandler(cfg))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return mux
}

// ListenAndServe serves the collector until ctx is cancelled.
func ListenAndServe(ctx context.Context, cfg Config) error {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return fmt.Errorf("create log directory %s: %w", cfg.LogDirectory, err)
	}
	srv := &http.Server{
		Addr:    ":" + cfg.ListenPort,
		Handler: NewMux(cfg),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("opening server on port %s", cfg.ListenPort)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Monitor logs a heartbeat every interval until ctx is cancelled.
func Monitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			log.Info().Str("component", "monitor").Msg("monitor")
		}
	}
}
