// Package userdb persists the SOCKS5 proxy's user database to a
// line-oriented text file, one active user per line: "username:password\n".
//
// This mirrors the teacher's internal/database package in spirit (load at
// startup, rewrite-all on every mutation) but the format is spec-mandated
// flat text rather than SQLite — user counts are tiny (MAX_USERS, default
// 10) so rewrite-all is cheap and keeps the on-disk format readable without
// a migration tool.
package userdb

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Record is one username:password pair loaded from or written to the file.
type Record struct {
	Username string
	Password string
}

// Load reads the user database file, truncating to maxUsers and keeping the
// first entry on duplicate usernames. A missing file is not an error — it
// yields an empty database, matching spec §4.2: "Failures to open the file
// on load are non-fatal."
func Load(path string, maxUsers int) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, nil //nolint:nilerr // load failures are non-fatal per spec
	}
	defer f.Close()

	seen := make(map[string]struct{}, maxUsers)
	records := make([]Record, 0, maxUsers)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(records) >= maxUsers {
			break
		}
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		user, pass, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if _, dup := seen[user]; dup {
			continue
		}
		seen[user] = struct{}{}
		records = append(records, Record{Username: user, Password: pass})
	}
	return records, nil
}

// Save rewrites the entire user database file from the given active records.
// Write failures are logged, not returned, matching spec §4.2: "Failures to
// open for write are logged but do not abort the mutation."
func Save(path string, records []Record, logger *slog.Logger) {
	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(r.Username)
		sb.WriteByte(':')
		sb.WriteString(r.Password)
		sb.WriteByte('\n')
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o600); err != nil {
		logWriteFailure(logger, path, err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		logWriteFailure(logger, path, err)
	}
}

func logWriteFailure(logger *slog.Logger, path string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("failed to persist user database", "path", path, "error", fmt.Sprintf("%v", err))
}
