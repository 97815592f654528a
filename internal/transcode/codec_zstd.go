package transcode

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdDecoder wraps r in a zstd frame reader. klauspost/compress picks a
// multi-threaded decode path automatically when the input allows it.
func zstdDecoder(r io.Reader) (io.Reader, func() error, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return zr, func() error {
		zr.Close()
		return nil
	}, nil
}
