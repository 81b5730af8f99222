package commitlog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ChangeType is the single-letter change code understood by the renderer.
type ChangeType byte

const (
	ChangeAdd    ChangeType = 'A'
	ChangeModify ChangeType = 'M'
	ChangeDelete ChangeType = 'D'
)

func (c ChangeType) String() string { return string(rune(c)) }

// Valid reports whether c is one of the three recognised change codes.
func (c ChangeType) Valid() bool {
	return c == ChangeAdd || c == ChangeModify || c == ChangeDelete
}

// ParseChangeType maps a git name-status letter onto a ChangeType. Type
// changes count as modifications. Anything else is rejected.
func ParseChangeType(status string) (ChangeType, bool) {
	status = strings.TrimSpace(status)
	if status == "" {
		return 0, false
	}
	switch status[0] {
	case 'A':
		return ChangeAdd, true
	case 'M', 'T':
		return ChangeModify, true
	case 'D':
		return ChangeDelete, true
	default:
		return 0, false
	}
}

// Record is one changed path within one commit.
type Record struct {
	Timestamp        int64
	Author           string
	AuthorEmail      string
	ResolvedUsername string
	PathPrefix       string
	Change           ChangeType
	Path             string
}

// DisplayName is the author label written to the log. A resolved external
// username wins over the commit author name.
func (r Record) DisplayName() string {
	if name := strings.TrimSpace(r.ResolvedUsername); name != "" {
		return name
	}
	return strings.TrimSpace(r.Author)
}

// FullPath joins the repository prefix and the repository-relative path.
func (r Record) FullPath() string {
	path := strings.TrimPrefix(r.Path, "/")
	if r.PathPrefix == "" {
		return "/" + path
	}
	return r.PathPrefix + path
}

var prefixSanitizer = regexp.MustCompile(`[^\w-]`)

// Prefix builds the per-repository path prefix from a repository name.
// Characters other than letters, digits, underscore, and hyphen are dropped.
func Prefix(name string) string {
	cleaned := prefixSanitizer.ReplaceAllString(name, "")
	if cleaned == "" {
		return "/"
	}
	return "/" + cleaned + "/"
}

var (
	fieldReplacer = strings.NewReplacer("|", " ", "\n", " ", "\r", " ")
	pathReplacer  = strings.NewReplacer("\n", "", "\r", "")
)

// FormatLine renders r in the custom log format without the trailing newline.
func FormatLine(r Record) string {
	var b strings.Builder
	b.Grow(32 + len(r.Author) + len(r.PathPrefix) + len(r.Path))
	b.WriteString(strconv.FormatInt(r.Timestamp, 10))
	b.WriteByte('|')
	b.WriteString(fieldReplacer.Replace(r.DisplayName()))
	b.WriteByte('|')
	b.WriteByte(byte(r.Change))
	b.WriteByte('|')
	b.WriteString(pathReplacer.Replace(r.FullPath()))
	return b.String()
}

// ParseLine decodes one custom log line. The returned record carries the
// display name in Author and the prefixed path in Path.
func ParseLine(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.SplitN(line, "|", 4)
	if len(parts) != 4 {
		return Record{}, fmt.Errorf("commit log line %q: expected 4 fields, got %d", line, len(parts))
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("commit log line %q: timestamp: %w", line, err)
	}
	if len(parts[2]) != 1 || !ChangeType(parts[2][0]).Valid() {
		return Record{}, fmt.Errorf("commit log line %q: invalid change type %q", line, parts[2])
	}
	return Record{
		Timestamp: ts,
		Author:    parts[1],
		Change:    ChangeType(parts[2][0]),
		Path:      parts[3],
	}, nil
}
