package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"featnav/internal/store"
)

// Compression suffixes recognized by WriteFile.
const (
	SuffixZstd = ".zst"
	SuffixLZ4  = ".lz4"
)

// WriteFile exports s to path. The table format comes from opts or, when
// empty, from the file extension. A trailing .zst or .lz4 compresses the
// output with zstd or lz4 framing. The file is written to a temporary name
// and renamed into place, so a failed export never leaves a partial file.
func WriteFile(path string, s *store.Store, opts Options) (n int, err error) {
	if opts.Format == "" {
		if opts.Format, err = FormatForPath(path); err != nil {
			return 0, err
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create export: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	w, closeCompressor, err := compressor(path, f)
	if err != nil {
		return 0, err
	}
	if n, err = Write(w, s, opts); err != nil {
		_ = closeCompressor()
		return 0, err
	}
	if err = closeCompressor(); err != nil {
		return 0, fmt.Errorf("finish compression: %w", err)
	}
	if err = f.Sync(); err != nil {
		return 0, fmt.Errorf("sync export: %w", err)
	}
	if err = f.Close(); err != nil {
		return 0, fmt.Errorf("close export: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("rename export: %w", err)
	}

	exportlog.Info("export written", "path", path, "format", string(opts.Format), "rows", n)
	return n, nil
}

func compressor(path string, w io.Writer) (io.Writer, func() error, error) {
	switch {
	case strings.HasSuffix(path, SuffixZstd):
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, nil, fmt.Errorf("zstd writer: %w", err)
		}
		return enc, enc.Close, nil
	case strings.HasSuffix(path, SuffixLZ4):
		zw := lz4.NewWriter(w)
		return zw, zw.Close, nil
	default:
		return w, func() error { return nil }, nil
	}
}

// Open returns a reader over an export file, undoing the compression its
// suffix names.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(path, SuffixZstd):
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return &readCloser{Reader: dec, close: func() error { dec.Close(); return f.Close() }}, nil
	case strings.HasSuffix(path, SuffixLZ4):
		return &readCloser{Reader: lz4.NewReader(f), close: f.Close}, nil
	default:
		return f, nil
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error {
	if r.close == nil {
		return errors.New("export: reader already closed")
	}
	err := r.close()
	r.close = nil
	return err
}
