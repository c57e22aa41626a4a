package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte("PK\x03\x04")
)

// open returns a reader of the decoded text of path. The container is
// recognised by its magic bytes, not its name.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	head, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &stacked{Reader: gz, closers: []io.Closer{gz, f}}, nil
	case bytes.HasPrefix(head, zipMagic):
		f.Close()
		return openZip(path)
	default:
		return &stacked{Reader: br, closers: []io.Closer{f}}, nil
	}
}

// stacked closes its layers innermost first.
type stacked struct {
	io.Reader
	closers []io.Closer
}

func (s *stacked) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// zipEntries reads the regular files of an archive in name order as one
// stream. Entries are separate files, so a newline is inserted after an entry
// that does not end with one.
type zipEntries struct {
	archive *zip.ReadCloser
	files   []*zip.File
	current io.ReadCloser
	last    byte
	newline bool
}

func openZip(path string) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("zip: %w", err)
	}
	z := &zipEntries{archive: zr}
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			z.files = append(z.files, f)
		}
	}
	sort.Slice(z.files, func(i, j int) bool { return z.files[i].Name < z.files[j].Name })
	return z, nil
}

func (z *zipEntries) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if z.newline {
			z.newline = false
			p[0] = '\n'
			return 1, nil
		}
		if z.current == nil {
			if len(z.files) == 0 {
				return 0, io.EOF
			}
			rc, err := z.files[0].Open()
			if err != nil {
				return 0, fmt.Errorf("zip entry %s: %w", z.files[0].Name, err)
			}
			z.files = z.files[1:]
			z.current, z.last = rc, '\n'
		}
		n, err := z.current.Read(p)
		if n > 0 {
			z.last = p[n-1]
		}
		if errors.Is(err, io.EOF) {
			z.current.Close()
			z.current = nil
			z.newline = z.last != '\n'
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (z *zipEntries) Close() error {
	if z.current != nil {
		z.current.Close()
	}
	return z.archive.Close()
}
