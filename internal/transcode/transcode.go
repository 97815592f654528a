// Package transcode peels a .vrcaz compression envelope and writes the
// decompressed canonical .vrca payload, atomically, without buffering the
// whole file in memory.
package transcode

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Codec is the one-byte tag at the start of a .vrcaz envelope.
type Codec byte

const (
	CodecNone Codec = 0x00
	CodecLZ4  Codec = 0x01
	CodecXZ   Codec = 0x02
	CodecZstd Codec = 0x03
)

var (
	ErrEnvelopeInvalid  = errors.New("transcode: envelope is empty or truncated")
	ErrUnsupportedCodec = errors.New("transcode: unsupported codec tag")
)

// CodecFailureError wraps a decompressor-level failure, keeping the
// underlying cause available via errors.Unwrap.
type CodecFailureError struct {
	Codec Codec
	Err   error
}

func (e *CodecFailureError) Error() string {
	return fmt.Sprintf("transcode: codec 0x%02x failed: %v", byte(e.Codec), e.Err)
}

func (e *CodecFailureError) Unwrap() error { return e.Err }

// decoderFactory wraps r (the envelope body, after the tag byte) in a
// decompressing reader for the given codec.
type decoderFactory func(r io.Reader) (io.Reader, func() error, error)

var decoders = map[Codec]decoderFactory{
	CodecNone: noneDecoder,
	CodecLZ4:  lz4Decoder,
	CodecXZ:   xzDecoder,
	CodecZstd: zstdDecoder,
}

// Transcode reads the .vrcaz envelope at srcPath and writes the decoded
// canonical bundle to dstPath. The destination is written to dstPath+".tmp"
// and renamed into place so a crash mid-transcode never leaves a partial
// canonical file visible to the rest of the pipeline.
func Transcode(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("transcode: open %s: %w", srcPath, err)
	}
	defer src.Close()

	br := bufio.NewReader(src)
	tagByte, err := br.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEnvelopeInvalid
		}
		return fmt.Errorf("transcode: read codec tag: %w", err)
	}
	codec := Codec(tagByte)

	factory, ok := decoders[codec]
	if !ok {
		return ErrUnsupportedCodec
	}

	decoded, closeDecoder, err := factory(br)
	if err != nil {
		return &CodecFailureError{Codec: codec, Err: err}
	}

	tmpPath := dstPath + ".tmp"
	dst, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("transcode: create %s: %w", tmpPath, err)
	}

	_, copyErr := io.Copy(dst, decoded)
	closeErr := closeDecoder()
	syncErr := dst.Sync()
	cerr := dst.Close()

	if copyErr != nil {
		os.Remove(tmpPath)
		return &CodecFailureError{Codec: codec, Err: copyErr}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return &CodecFailureError{Codec: codec, Err: closeErr}
	}
	if syncErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("transcode: sync %s: %w", tmpPath, syncErr)
	}
	if cerr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("transcode: close %s: %w", tmpPath, cerr)
	}

	if err := os.Rename(tmpPath, dstPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("transcode: rename %s to %s: %w", tmpPath, dstPath, err)
	}
	return nil
}

func noneDecoder(r io.Reader) (io.Reader, func() error, error) {
	return r, func() error { return nil }, nil
}
