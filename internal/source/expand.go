package source

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand resolves a path or glob pattern to the files it names. Recursive
// patterns such as logs/**/gc*.log are supported.
func Expand(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, &ReadError{Path: pattern, Err: err}
	}
	if len(matches) == 0 {
		return nil, &ReadError{Path: pattern, Err: fs.ErrNotExist}
	}
	for i, m := range matches {
		if abs, err := filepath.Abs(m); err == nil {
			matches[i] = abs
		}
	}
	return matches, nil
}

// Resolve turns each pattern into one Log. A pattern matching several files
// is read as a rotation set.
func Resolve(patterns []string, opts ...Option) ([]*Log, error) {
	logs := make([]*Log, 0, len(patterns))
	for _, p := range patterns {
		paths, err := Expand(p)
		if err != nil {
			return nil, err
		}
		l, err := New(p, paths, opts...)
		if err != nil {
			return nil, fmt.Errorf("log %s: %w", p, err)
		}
		logs = append(logs, l)
	}
	return logs, nil
}
