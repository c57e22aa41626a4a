// Package source exposes GC log files, plain or compressed, single or a
// rotated set, as one ordered line stream ending in model.EndOfData.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/atikulmunna/gclens/internal/model"
)

// MaxLineLength bounds a single log line.
const MaxLineLength = 1 << 20

// ReadError is an unrecoverable failure to read a log file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// Log is one logical GC log: a single file or the files of one rotation set
// in the order they were written.
type Log struct {
	name   string
	paths  []string
	logger *zap.Logger
}

// Option configures a Log.
type Option func(*Log)

func WithLogger(l *zap.Logger) Option {
	return func(g *Log) {
		if l != nil {
			g.logger = l
		}
	}
}

// New returns a log reading paths as one stream, ordered by modification
// time and then by name.
func New(name string, paths []string, opts ...Option) (*Log, error) {
	if len(paths) == 0 {
		return nil, &ReadError{Path: name, Err: fs.ErrNotExist}
	}
	ordered, err := Order(paths)
	if err != nil {
		return nil, err
	}
	l := &Log{name: name, paths: ordered, logger: zap.NewNop()}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

func (l *Log) Name() string    { return l.name }
func (l *Log) Paths() []string { return l.paths }

// Order sorts a rotation set by modification time, oldest first, breaking
// ties by name.
func Order(paths []string) ([]string, error) {
	type entry struct {
		path  string
		mtime int64
	}
	entries := make([]entry, 0, len(paths))
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, &ReadError{Path: p, Err: err}
		}
		entries = append(entries, entry{path: p, mtime: fi.ModTime().UnixNano()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].mtime != entries[j].mtime {
			return entries[i].mtime < entries[j].mtime
		}
		return entries[i].path < entries[j].path
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.path
	}
	return out, nil
}

// Stream sends every line of the log to out, numbered from 1 across file
// boundaries, then model.EndOfData. out is closed on return. On failure the
// sentinel is not sent and the error is a *ReadError or the context error.
func (l *Log) Stream(ctx context.Context, out chan<- model.LogLine) error {
	defer close(out)

	number := 0
	for _, p := range l.paths {
		n, err := l.streamFile(ctx, p, number, out)
		if err != nil {
			return err
		}
		l.logger.Debug("read log file", zap.String("path", p), zap.Int("lines", n-number))
		number = n
	}

	select {
	case out <- model.EndOfData:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Log) streamFile(ctx context.Context, path string, number int, out chan<- model.LogLine) (int, error) {
	r, err := open(path)
	if err != nil {
		return number, &ReadError{Path: path, Err: err}
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)
	for scanner.Scan() {
		number++
		line := model.LogLine{Text: strings.TrimSuffix(scanner.Text(), "\r"), Number: number}
		select {
		case out <- line:
		case <-ctx.Done():
			return number, ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return number, &ReadError{Path: path, Err: err}
	}
	return number, nil
}

// ReadAll collects the lines of l, without the sentinel.
func ReadAll(ctx context.Context, l *Log) ([]model.LogLine, error) {
	ch := make(chan model.LogLine, 256)
	errc := make(chan error, 1)
	go func() { errc <- l.Stream(ctx, ch) }()

	var lines []model.LogLine
	for line := range ch {
		if !line.IsEndOfData() {
			lines = append(lines, line)
		}
	}
	return lines, <-errc
}
