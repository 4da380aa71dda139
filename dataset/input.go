package dataset

import (
	"bufio"
	"io"
	"os"

	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

type inputFile struct {
	io.Reader
	closers []io.Closer
}

func (f *inputFile) Close() error {
	var first error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenInput opens path for reading, transparently decompressing gzip
// content detected by its magic bytes. The caller must Close the result.
func OpenInput(path string) (io.ReadCloser, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInputFileError(path, err)
	}

	br := bufio.NewReaderSize(fh, 1<<16)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		fh.Close()
		return nil, errors.NewInputFileError(path, err)
	}
	if len(head) == len(gzipMagic) && head[0] == gzipMagic[0] && head[1] == gzipMagic[1] {
		zr, err := gzip.NewReader(br)
		if err != nil {
			fh.Close()
			return nil, errors.NewInputFileError(path, err)
		}
		return &inputFile{Reader: zr, closers: []io.Closer{fh, zr}}, nil
	}
	return &inputFile{Reader: br, closers: []io.Closer{fh}}, nil
}
