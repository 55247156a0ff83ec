package demo

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

var (
	bzip2Magic = []byte("BZh")
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

type readCloser struct {
	io.Reader
	close func() error
}

func (rc readCloser) Close() error {
	return rc.close()
}

// Open opens a demo file, transparently unwrapping bzip2 (.dem.bz2, as
// served by Valve replay servers) and zstd (.dem.zst) archives. The format
// is detected from the leading bytes, not the file name.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open demo: %w", err)
	}
	rc, err := Unwrap(f, f.Close)
	if err != nil {
		f.Close()
		return nil, err
	}
	return rc, nil
}

// Unwrap sniffs r for a compression container and returns a reader over the
// raw demo bytes. closeFn is called by the returned Close.
func Unwrap(r io.Reader, closeFn func() error) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("sniff demo: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return readCloser{Reader: zr, close: func() error {
			zr.Close()
			return closeFn()
		}}, nil
	case bytes.HasPrefix(head, bzip2Magic):
		return readCloser{Reader: bzip2.NewReader(br), close: closeFn}, nil
	default:
		return readCloser{Reader: br, close: closeFn}, nil
	}
}
