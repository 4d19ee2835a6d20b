// Package decisionlog appends decisions as JSON lines, one file per UTC day,
// and enforces bounded retention on the directory.
package decisionlog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"regime-engine/internal/types"
)

const (
	dayLayout = "2006-01-02"
	ext       = ".jsonl"
	gzExt     = ".jsonl.gz"
)

type Log struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) *Log {
	if dir == "" {
		dir = "logs/decisions"
	}
	return &Log{dir: dir}
}

func (l *Log) Dir() string { return l.dir }

func (l *Log) dailyFilepath(day time.Time) string {
	return filepath.Join(l.dir, day.UTC().Format(dayLayout)+ext)
}

// Append writes d to the file of the day its timestamp falls on.
func (l *Log) Append(d types.Decision) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.dailyFilepath(time.UnixMilli(d.Timestamp))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// Read returns the decisions logged for day, from the plain or compressed file.
func (l *Log) Read(day time.Time) ([]types.Decision, error) {
	p := l.dailyFilepath(day)
	var r io.Reader
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		f, err = os.Open(strings.TrimSuffix(p, ext) + gzExt)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		r = gr
	} else if err != nil {
		return nil, err
	} else {
		defer f.Close()
		r = f
	}

	var out []types.Decision
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var d types.Decision
		if err := json.Unmarshal(line, &d); err != nil {
			return out, fmt.Errorf("decode %s: %w", filepath.Base(p), err)
		}
		out = append(out, d)
	}
	return out, sc.Err()
}

type dayFile struct {
	path string
	day  time.Time
	gz   bool
}

func (l *Log) files() ([]dayFile, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []dayFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		gz := strings.HasSuffix(name, gzExt)
		stem := strings.TrimSuffix(strings.TrimSuffix(name, gzExt), ext)
		if !gz && !strings.HasSuffix(name, ext) {
			continue
		}
		day, err := time.Parse(dayLayout, stem)
		if err != nil {
			continue
		}
		out = append(out, dayFile{path: filepath.Join(l.dir, name), day: day, gz: gz})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].day.Before(out[j].day) })
	return out, nil
}

func cutoff(now time.Time, days int) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}

// CompressOlder gzips day files older than days before now.
func (l *Log) CompressOlder(days int, now time.Time) (int, error) {
	if days <= 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	files, err := l.files()
	if err != nil {
		return 0, err
	}
	limit := cutoff(now, days)
	n := 0
	for _, f := range files {
		if f.gz || !f.day.Before(limit) {
			continue
		}
		gz := strings.TrimSuffix(f.path, ext) + gzExt
		// if already gz exists, remove original
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(f.path)
			continue
		}
		if err := compress(f.path, gz); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("compress %s: %w", filepath.Base(src), err)
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// Purge deletes day files, compressed or not, older than days before now.
func (l *Log) Purge(days int, now time.Time) (int, error) {
	if days <= 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	files, err := l.files()
	if err != nil {
		return 0, err
	}
	limit := cutoff(now, days)
	n := 0
	for _, f := range files {
		if !f.day.Before(limit) {
			continue
		}
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return n, err
		}
		n++
	}
	return n, nil
}
