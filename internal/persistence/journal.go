package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/83ace42/fish-tycoon/internal/engine"
)

// Entry is one journal line.
type Entry struct {
	Time       time.Time          `json:"time"`
	SessionID  string             `json:"session_id"`
	Resolution *engine.Resolution `json:"resolution"`
}

// Journal appends resolutions as zstd-compressed JSON lines, one file per session.
type Journal struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	current string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewJournal creates a journal under baseDir. Files are opened lazily.
func NewJournal(baseDir, prefix string) *Journal {
	return &Journal{baseDir: baseDir, prefix: prefix}
}

// Write appends one resolution, switching files when the session changes.
func (j *Journal) Write(sessionID string, res *engine.Resolution) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if sessionID != j.current {
		if err := j.rotateLocked(sessionID); err != nil {
			return err
		}
	}

	b, err := json.Marshal(Entry{Time: time.Now().UTC(), SessionID: sessionID, Resolution: res})
	if err != nil {
		return err
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := j.w.Flush(); err != nil {
		return err
	}
	// Push each line's block to the file rather than holding it until Close.
	return j.enc.Flush()
}

// Hook adapts the journal to a coordinator resolve hook.
func (j *Journal) Hook(sessionID string, res *engine.Resolution) {
	if err := j.Write(sessionID, res); err != nil {
		slog.Error("journal write failed", "session", sessionID, "round", res.Round, "error", err)
	}
}

// Close flushes and closes the current file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

// Path returns the file a session's entries are written to.
func (j *Journal) Path(sessionID string) string {
	return filepath.Join(j.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", j.prefix, sessionID))
}

func (j *Journal) rotateLocked(sessionID string) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(j.Path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	j.f = f
	j.enc = enc
	j.w = bufio.NewWriterSize(enc, 64*1024)
	j.current = sessionID
	return nil
}

func (j *Journal) closeLocked() error {
	var err error
	if j.w != nil {
		_ = j.w.Flush()
	}
	if j.enc != nil {
		err = j.enc.Close()
		j.enc = nil
	}
	if j.f != nil {
		_ = j.f.Close()
		j.f = nil
	}
	j.w = nil
	j.current = ""
	return err
}

// Files lists the journal files under baseDir, oldest name first.
func (j *Journal) Files() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(j.baseDir, j.prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadJournal decodes every entry of a journal file in write order.
func ReadJournal(path string, fn func(Entry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return DecodeJournal(f, fn)
}

// DecodeJournal decodes zstd-compressed JSON lines from r.
func DecodeJournal(r io.Reader, fn func(Entry) error) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("journal line %d: %w", line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}
