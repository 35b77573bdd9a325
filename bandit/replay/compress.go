package replay

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ZstdSuffix marks table files stored zstd-compressed.
const ZstdSuffix = ".zst"

// IsCompressed reports whether path names a zstd-compressed table.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ZstdSuffix)
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// OpenTable opens path for reading, transparently decompressing ".zst" files.
func OpenTable(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !IsCompressed(path) {
		return file, nil
	}
	zr, err := zstd.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("opening zstd stream %s: %w", path, err)
	}
	return readCloser{Reader: zr, close: func() error {
		zr.Close()
		return file.Close()
	}}, nil
}

type writeCloser struct {
	io.Writer
	close func() error
}

func (w writeCloser) Close() error { return w.close() }

// CreateTable creates path for writing, compressing with zstd when the name
// ends in ".zst". Close flushes the compressor before closing the file.
func CreateTable(path string) (io.WriteCloser, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !IsCompressed(path) {
		return file, nil
	}
	zw, err := zstd.NewWriter(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("creating zstd stream %s: %w", path, err)
	}
	return writeCloser{Writer: zw, close: func() error {
		if err := zw.Close(); err != nil {
			_ = file.Close()
			return err
		}
		return file.Close()
	}}, nil
}
