package transcode

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Decoder wraps r in an LZ4 frame reader.
func lz4Decoder(r io.Reader) (io.Reader, func() error, error) {
	zr := lz4.NewReader(r)
	return zr, func() error { return nil }, nil
}
