// Package compress wraps archive streams with the supported compression
// codecs. Readers autodetect the codec from magic bytes, so extraction and
// listing never need the caller to name the compression.
package compress

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// Codec identifies a compression algorithm.
type Codec string

const (
	CodecNone Codec = "none"
	CodecGzip Codec = "gzip"
	CodecXz   Codec = "xz"
	CodecZstd Codec = "zstd"
)

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicXz   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Valid returns nil iff the codec is known.
func (c Codec) Valid() error {
	switch c {
	case CodecNone, CodecGzip, CodecXz, CodecZstd:
		return nil
	}
	return fmt.Errorf("unknown compression codec %q", string(c))
}

// Detect guesses the codec from the stream's leading bytes.
func Detect(header []byte) Codec {
	switch {
	case bytes.HasPrefix(header, magicGzip):
		return CodecGzip
	case bytes.HasPrefix(header, magicXz):
		return CodecXz
	case bytes.HasPrefix(header, magicZstd):
		return CodecZstd
	}
	return CodecNone
}

// NewReader wraps r with a decompressor chosen by magic-byte detection and
// reports which codec it found.
func NewReader(r io.Reader) (io.ReadCloser, Codec, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(len(magicXz))
	if err != nil && err != io.EOF {
		return nil, CodecNone, fmt.Errorf("detect compression: %w", err)
	}

	codec := Detect(header)
	switch codec {
	case CodecGzip:
		zr, err := pgzip.NewReader(br)
		if err != nil {
			return nil, codec, fmt.Errorf("open gzip stream: %w", err)
		}
		return zr, codec, nil
	case CodecXz:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, codec, fmt.Errorf("open xz stream: %w", err)
		}
		return io.NopCloser(xr), codec, nil
	case CodecZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, codec, fmt.Errorf("open zstd stream: %w", err)
		}
		return zr.IOReadCloser(), codec, nil
	}
	return io.NopCloser(br), CodecNone, nil
}

// NewWriter wraps w with the requested codec. Closing the returned writer
// finalizes the compressed stream but does not close w.
func NewWriter(w io.Writer, codec Codec) (io.WriteCloser, error) {
	switch codec {
	case CodecNone:
		return nopWriteCloser{w}, nil
	case CodecGzip:
		return pgzip.NewWriter(w), nil
	case CodecXz:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("open xz writer: %w", err)
		}
		return xw, nil
	case CodecZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("open zstd writer: %w", err)
		}
		return zw, nil
	}
	return nil, codec.Valid()
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
