package file

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/run"
)

const (
	runLogTitle = "# Match Notification Log"
	// 2026-03-01T18:04:05.000Z
	entryTimeLayout = "2006-01-02T15:04:05.000Z"
)

var _ run.Log = (*RunLog)(nil)

// RunLog renders the run log as markdown: one bold-timestamped line per entry
// followed by a totals trailer. Only the newest maxEntries entries survive a
// rewrite.
type RunLog struct {
	mu         sync.Mutex
	path       string
	maxEntries int
}

func NewRunLog(path string, maxEntries int) *RunLog {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &RunLog{path: path, maxEntries: maxEntries}
}

func (l *RunLog) Append(_ context.Context, entries []run.Entry, t run.Trailer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.read()
	if err != nil {
		return err
	}
	all := append(existing, entries...)
	if len(all) > l.maxEntries {
		all = all[len(all)-l.maxEntries:]
	}

	if err := writeAtomic(l.path, render(all, t), 0o644); err != nil {
		return fmt.Errorf("write run log: %w", err)
	}
	return nil
}

func (l *RunLog) Recent(_ context.Context, limit int) ([]run.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.read()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (l *RunLog) read() ([]run.Entry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}

	var out []run.Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if e, ok := parseEntry(sc.Text()); ok {
			out = append(out, e)
		}
	}
	return out, sc.Err()
}

func parseEntry(line string) (run.Entry, bool) {
	if !strings.HasPrefix(line, "**") {
		return run.Entry{}, false
	}
	ts, msg, ok := strings.Cut(line[2:], "** - ")
	if !ok {
		return run.Entry{}, false
	}
	at, err := time.Parse(entryTimeLayout, ts)
	if err != nil {
		return run.Entry{}, false
	}
	return run.Entry{At: at, Message: msg}, true
}

func render(entries []run.Entry, t run.Trailer) []byte {
	var b bytes.Buffer
	b.WriteString(runLogTitle + "\n\n")
	for _, e := range entries {
		b.WriteString("**" + e.At.UTC().Format(entryTimeLayout) + "** - " + oneLine(e.Message) + "\n")
	}
	b.WriteString("\n---\n")
	b.WriteString("**Total notifications sent:** " + strconv.Itoa(t.TotalSent) + "\n")
	if !t.LastCheck.IsZero() {
		b.WriteString("**Last check:** " + t.LastCheck.UTC().Format(entryTimeLayout) + "\n")
	}
	return b.Bytes()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
