package forward

import (
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"
)

// NewSessionID builds a session id from the start time, user, host and pid,
// e.g. 20240102-150405-alice-buildhost-4242.
func NewSessionID(start time.Time) string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}
	username := "unknown"
	if u, err := user.Current(); err == nil {
		// strip a windows domain prefix
		parts := strings.Split(u.Username, `\`)
		username = parts[len(parts)-1]
	}
	id := fmt.Sprintf("%s-%s-%s-%d", start.Format("20060102-150405"), username, hostname, os.Getpid())
	return strings.NewReplacer("/", "_", `\`, "_").Replace(id)
}
