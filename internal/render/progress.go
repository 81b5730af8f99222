package render

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// DefaultDiagnosticLimit bounds captured tool output per process.
const DefaultDiagnosticLimit = 4096

// encoderProgressCap keeps encoder-derived progress below 100 until the
// job actually completes.
const encoderProgressCap = 99

var (
	percentPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)%`)
	timePattern    = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// ParseRendererProgress extracts an "N%" marker from a renderer line.
func ParseRendererProgress(line string) (float64, bool) {
	m := percentPattern.FindAllStringSubmatch(line, -1)
	if len(m) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[len(m)-1][1], 64)
	if err != nil || v > 100 {
		return 0, false
	}
	return v, true
}

// ParseEncoderTime extracts the elapsed output time in seconds from an
// encoder status line such as "frame=120 ... time=00:00:02.00 ...".
func ParseEncoderTime(line string) (float64, bool) {
	m := timePattern.FindAllStringSubmatch(line, -1)
	if len(m) == 0 {
		return 0, false
	}
	last := m[len(m)-1]
	h, err1 := strconv.Atoi(last[1])
	mins, err2 := strconv.Atoi(last[2])
	secs, err3 := strconv.ParseFloat(last[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return float64(h)*3600 + float64(mins)*60 + secs, true
}

// EncoderPercent converts elapsed encoder time into a capped percentage.
func EncoderPercent(elapsed, expected float64) (float64, bool) {
	if expected <= 0 || elapsed < 0 {
		return 0, false
	}
	return min(elapsed/expected*100, encoderProgressCap), true
}

// tailBuffer keeps the final limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	if limit <= 0 {
		limit = DefaultDiagnosticLimit
	}
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(strings.ToValidUTF8(string(t.buf), ""))
}

// lineWriter splits a diagnostic stream on CR or LF, feeding complete
// lines to onLine and every byte to tail.
type lineWriter struct {
	tail    *tailBuffer
	onLine  func(string)
	pending []byte
}

const maxPendingLine = 64 * 1024

func (w *lineWriter) Write(p []byte) (int, error) {
	_, _ = w.tail.Write(p)
	for _, b := range p {
		if b == '\n' || b == '\r' {
			w.flush()
			continue
		}
		if len(w.pending) < maxPendingLine {
			w.pending = append(w.pending, b)
		}
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if len(w.pending) == 0 {
		return
	}
	line := string(w.pending)
	w.pending = w.pending[:0]
	if w.onLine != nil {
		w.onLine(line)
	}
}

// Close delivers a trailing line without a terminator.
func (w *lineWriter) Close() error {
	w.flush()
	return nil
}
