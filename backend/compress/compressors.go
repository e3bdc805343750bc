package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Zstd compresses with Zstandard.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstd produces a Zstd compressor at the given level.
// Both the encoder and decoder are safe for concurrent use in this stateless mode.
func NewZstd(level zstd.EncoderLevel) (*Zstd, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, errors.Wrap(err, "creating zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating zstd decoder")
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

// Compress implements Compressor.
func (z *Zstd) Compress(inp []byte) ([]byte, error) {
	return z.enc.EncodeAll(inp, nil), nil
}

// Uncompress implements Compressor.
func (z *Zstd) Uncompress(inp []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(inp, nil)
	return out, errors.Wrap(err, "zstd-decoding")
}

// Gzip compresses with gzip.
// A Level outside the gzip range means gzip.DefaultCompression.
type Gzip struct {
	Level int
}

// Compress implements Compressor.
func (g Gzip) Compress(inp []byte) ([]byte, error) {
	level := g.Level
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	buf := new(bytes.Buffer)
	w, err := gzip.NewWriterLevel(buf, level)
	if err != nil {
		return nil, errors.Wrap(err, "creating gzip writer")
	}
	if _, err = w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "gzip-encoding")
	}
	if err = w.Close(); err != nil {
		return nil, errors.Wrap(err, "closing gzip writer")
	}
	return buf.Bytes(), nil
}

// Uncompress implements Compressor.
func (g Gzip) Uncompress(inp []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(inp))
	if err != nil {
		return nil, errors.Wrap(err, "creating gzip reader")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	return out, errors.Wrap(err, "gzip-decoding")
}

// ByName produces the Compressor with the given name: "zstd" or "gzip".
func ByName(name string) (Compressor, error) {
	switch name {
	case "", "zstd":
		return NewZstd(zstd.SpeedDefault)
	case "gzip":
		return Gzip{Level: gzip.DefaultCompression}, nil
	}
	return nil, fmt.Errorf("unknown compressor %s", name)
}
