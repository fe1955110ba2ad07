package tlog

import (
	"strings"

	"github.com/goccy/go-json"
)

// Op identifies the kind of mutation a log entry records.
type Op byte

const (
	// OpSet records a leaf value being written.
	OpSet Op = 's'
	// OpRemove records a node being removed.
	OpRemove Op = 'r'
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Entry is a single append-only transaction log record: a ConfigTree
// mutation at a point in (monotonic, per-node) time.
type Entry struct {
	// Timestamp is the node modtime this entry was written under, in
	// milliseconds.
	Timestamp int64
	Op        Op
	// Path is the ordered sequence of segment names from the tree root to
	// the mutated node; EncodePath slash-joins it on disk.
	Path []string
	// Value is the JSON-encoded leaf value. Empty for OpRemove.
	Value json.RawMessage
}

// EncodePath joins path segments with "/", backslash-escaping any literal
// "/" or tab character within a segment so the join is unambiguous and
// reversible.
func EncodePath(segments []string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		r := strings.NewReplacer(`\`, `\\`, "/", `\/`, "\t", `\t`)
		escaped[i] = r.Replace(s)
	}
	return strings.Join(escaped, "/")
}

// DecodePath reverses EncodePath.
func DecodePath(encoded string) []string {
	if encoded == "" {
		return nil
	}
	var segments []string
	var cur strings.Builder
	escaped := false
	for _, r := range encoded {
		switch {
		case escaped:
			switch r {
			case '\\':
				cur.WriteByte('\\')
			case '/':
				cur.WriteByte('/')
			case 't':
				cur.WriteByte('\t')
			default:
				cur.WriteRune(r)
			}
			escaped = false
		case r == '\\':
			escaped = true
		case r == '/':
			segments = append(segments, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	segments = append(segments, cur.String())
	return segments
}
