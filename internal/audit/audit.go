package audit

import (
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`      // RFC3339 with microseconds.
	Session   string `json:"session"` // One UUID per mops process.
	User      string `json:"user"`    // Local account running mops.
	Operation string `json:"op"`      // Operation name.

	// Optional fields depending on operation.
	File      string   `json:"file,omitempty"`      // Document path.
	Backends  []string `json:"backends,omitempty"`  // Configured backend slots.
	Entries   int      `json:"entries,omitempty"`   // Key vault entries in metadata.
	Ciphers   int      `json:"ciphers,omitempty"`   // Candidate ciphers resolved.
	Values    int      `json:"values,omitempty"`    // Leaves in the document.
	Decrypted int      `json:"decrypted,omitempty"` // Leaves decrypted.
	Failures  int      `json:"failures,omitempty"`  // Entry and leaf failures.
	Error     string   `json:"error,omitempty"`     // Fatal error, if any.
}

var sessionID = uuid.NewString()

// Session returns the identifier stamped on every entry of this process.
func Session() string {
	return sessionID
}

// New returns an entry with session and user pre-populated.
func New(op string) Entry {
	entry := Entry{Operation: op, Session: sessionID}
	if u, err := user.Current(); err == nil {
		entry.User = u.Username
	}
	return entry
}

// Log appends an entry to the audit log at path.
// Failures are ignored. Decryption never fails because the audit log could
// not be written.
func Log(path string, entry Entry) {
	if path == "" {
		return
	}

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}
	if entry.Session == "" {
		entry.Session = sessionID
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// Tail returns the last n entries, or all of them when n <= 0.
func Tail(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}
