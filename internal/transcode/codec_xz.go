package transcode

import (
	"io"

	"github.com/ulikunitz/xz"
)

// xzDecoder wraps r in an XZ/LZMA stream reader. No file in the retrieval
// pack touches XZ or LZMA; this is a named, out-of-pack dependency (see
// DESIGN.md).
func xzDecoder(r io.Reader) (io.Reader, func() error, error) {
	zr, err := xz.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return zr, func() error { return nil }, nil
}
