package commitlog

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
)

// Stats summarises a written log.
type Stats struct {
	Count int
	First int64
	Last  int64
}

// Span returns the seconds between the first and last record.
func (s Stats) Span() int64 {
	if s.Count == 0 {
		return 0
	}
	return s.Last - s.First
}

// Write drains records into w in the custom log format.
func Write(w io.Writer, records iter.Seq2[Record, error]) (Stats, error) {
	var stats Stats
	bw := bufio.NewWriter(w)
	for rec, err := range records {
		if err != nil {
			return stats, err
		}
		if !rec.Change.Valid() {
			return stats, fmt.Errorf("write commit log: record for %q has invalid change type %q", rec.Path, rec.Change)
		}
		if _, err := bw.WriteString(FormatLine(rec)); err != nil {
			return stats, fmt.Errorf("write commit log: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return stats, fmt.Errorf("write commit log: %w", err)
		}
		if stats.Count == 0 {
			stats.First = rec.Timestamp
		}
		stats.Last = rec.Timestamp
		stats.Count++
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("write commit log: %w", err)
	}
	return stats, nil
}

// WriteFile materializes records to path, creating parent directories. The
// file is removed again when writing fails.
func WriteFile(path string, records iter.Seq2[Record, error]) (Stats, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Stats{}, fmt.Errorf("create commit log directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return Stats{}, fmt.Errorf("create commit log: %w", err)
	}
	stats, writeErr := Write(file, records)
	closeErr := file.Close()
	if writeErr == nil && closeErr != nil {
		writeErr = fmt.Errorf("close commit log: %w", closeErr)
	}
	if writeErr != nil {
		_ = os.Remove(path)
		return stats, writeErr
	}
	return stats, nil
}

// Slice adapts an in-memory slice to a record sequence.
func Slice(records []Record) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, rec := range records {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Collect drains a sequence into a slice.
func Collect(records iter.Seq2[Record, error]) ([]Record, error) {
	var out []Record
	for rec, err := range records {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}
