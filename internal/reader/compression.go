// Package reader implements the Stream Reader (§4.1): it opens an uploaded
// file, transparently decompresses it if needed, and streams
// (line, line-number) pairs to the parser without ever loading the whole
// file into memory.
package reader

import (
	"io"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// codec opens a streaming decompressing reader for one compression format.
// Adapted from the teacher's parser/compression.go codec abstraction.
type codec struct {
	name   string
	opener func(io.Reader) (io.ReadCloser, error)
}

var (
	gzipCodec = codec{name: "gzip", opener: func(r io.Reader) (io.ReadCloser, error) {
		return newParallelGzipReader(r)
	}}
	zstdCodec = codec{name: "zstd", opener: func(r io.Reader) (io.ReadCloser, error) {
		return newZstdDecoder(r)
	}}
)

// detectCodec maps a file name's suffix onto a decompression codec and the
// name stripped of its compression suffix (for extension-based format
// detection downstream). ok is false when the name carries no recognized
// compression suffix, in which case callers should read the file as-is.
func detectCodec(fileName string) (c codec, baseName string, ok bool) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return gzipCodec, fileName[:len(fileName)-len(".gz")], true
	case strings.HasSuffix(lower, ".zstd"):
		return zstdCodec, fileName[:len(fileName)-len(".zstd")], true
	case strings.HasSuffix(lower, ".zst"):
		return zstdCodec, fileName[:len(fileName)-len(".zst")], true
	default:
		return codec{}, fileName, false
	}
}

// newParallelGzipReader returns a pgzip reader configured for parallel
// decompression, capped to avoid excessive goroutine churn on large hosts.
func newParallelGzipReader(r io.Reader) (*pgzip.Reader, error) {
	threads := runtime.GOMAXPROCS(0)
	if threads < 1 {
		threads = 1
	}
	if threads > 8 {
		threads = 8
	}
	const blockSize = 1 << 20 // 1 MiB blocks balance throughput and memory usage
	return pgzip.NewReaderN(r, blockSize, threads)
}

type zstdReadCloser struct{ *zstd.Decoder }

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

func newZstdDecoder(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &zstdReadCloser{Decoder: dec}, nil
}
