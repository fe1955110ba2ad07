// Package tlog implements the append-only, line-delimited transaction log
// that backs the ConfigTree: every mutation is appended here before it is
// considered durable, and the log can be replayed into an empty tree to
// reconstruct state after a crash or restart.
//
// On-disk format: one entry per line, UTF-8,
// "<timestamp>\t<op>\t<path>\t<jsonValue?>\n", op in {s, r}. Paths are
// slash-joined with backslash-escaping of "/" and "\t" in segment names
// (see EncodePath/DecodePath).
package tlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
)

const fieldSep = '\t'

// TLog is a durable, append-only writer and reader over one on-disk
// transaction log file.
type TLog struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *bufio.Writer
	closed bool
}

// Open opens (creating if necessary) the transaction log at path for
// appending.
func Open(path string) (*TLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open tlog %s: %w", path, err)
	}
	return &TLog{
		path:   path,
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// Append writes one entry to the log. The write is buffered; call Flush to
// make it durable.
func (t *TLog) Append(e Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("tlog %s: append after close", t.path)
	}

	line, err := encodeLine(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if _, err := t.writer.WriteString(line); err != nil {
		return fmt.Errorf("write tlog entry: %w", err)
	}
	return nil
}

// Flush makes all buffered appends durable (buffer flush + fsync).
func (t *TLog) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("flush tlog: %w", err)
	}
	if err := t.file.Sync(); err != nil {
		return fmt.Errorf("fsync tlog: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (t *TLog) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.writer.Flush(); err != nil {
		_ = t.file.Close()
		return fmt.Errorf("flush tlog on close: %w", err)
	}
	return t.file.Close()
}

// Path returns the log's file path.
func (t *TLog) Path() string {
	return t.path
}

// Size returns the current on-disk size of the log file.
func (t *TLog) Size() (int64, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		return 0, fmt.Errorf("stat tlog %s: %w", t.path, err)
	}
	return info.Size(), nil
}

// Swap atomically replaces the log's contents with entries (a compacted
// snapshot) and reopens the file for further appends. Callers must ensure
// no concurrent Append calls race with Swap beyond the internal lock —
// the lock only protects TLog's own state, not a caller's decision to
// snapshot, so compaction must hold whatever higher-level serialization
// (the publish thread) guarantees entries reflects the state as of the
// swap.
func (t *TLog) Swap(entries []Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("tlog %s: swap after close", t.path)
	}
	if err := t.writer.Flush(); err != nil {
		return fmt.Errorf("flush before swap: %w", err)
	}
	if err := t.file.Close(); err != nil {
		return fmt.Errorf("close before swap: %w", err)
	}
	if err := Dump(t.path, entries); err != nil {
		return fmt.Errorf("dump snapshot during swap: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("reopen tlog after swap: %w", err)
	}
	t.file = f
	t.writer = bufio.NewWriter(f)
	return nil
}

func encodeLine(e Entry) (string, error) {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(e.Timestamp, 10))
	b.WriteByte(fieldSep)
	b.WriteByte(byte(e.Op))
	b.WriteByte(fieldSep)
	b.WriteString(EncodePath(e.Path))
	if e.Op == OpSet {
		b.WriteByte(fieldSep)
		if len(e.Value) == 0 {
			b.WriteString("null")
		} else {
			b.Write(e.Value)
		}
	}
	b.WriteByte('\n')
	return b.String(), nil
}

// Replay reads every well-formed entry from the log at path, in file order.
// A truncated final line (e.g. from a crash mid-write) is dropped silently
// rather than treated as an error — replay is defined to tolerate exactly
// that failure mode.
func Replay(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open tlog %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// A non-empty line with no trailing newline is a
				// truncated write; drop it.
				break
			}
			return entries, fmt.Errorf("read tlog %s: %w", path, err)
		}
		entry, ok := decodeLine(strings.TrimSuffix(line, "\n"))
		if !ok {
			logging.Warn().Str("tlog", path).Str("line", line).Msg("discarding malformed tlog line")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeLine(line string) (Entry, bool) {
	parts := strings.SplitN(line, string(fieldSep), 4)
	if len(parts) < 3 {
		return Entry{}, false
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Entry{}, false
	}
	if len(parts[1]) != 1 {
		return Entry{}, false
	}
	op := Op(parts[1][0])
	if op != OpSet && op != OpRemove {
		return Entry{}, false
	}
	path := DecodePath(parts[2])

	entry := Entry{Timestamp: ts, Op: op, Path: path}
	if op == OpSet {
		if len(parts) < 4 {
			return Entry{}, false
		}
		raw := json.RawMessage(parts[3])
		if !json.Valid(raw) {
			return Entry{}, false
		}
		entry.Value = raw
	}
	return entry, true
}

// Dump atomically (over)writes path with entries, one per line, via a
// write-temp-then-rename so a reader never observes a partial snapshot.
func Dump(path string, entries []Entry) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create tlog snapshot: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, e := range entries {
		line, err := encodeLine(e)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("encode snapshot entry: %w", err)
		}
		if _, err := w.WriteString(line); err != nil {
			_ = f.Close()
			return fmt.Errorf("write snapshot entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("fsync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}
