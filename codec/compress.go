// Package codec implements compression codec descriptions: parsing,
// canonical rendering, and construction of the underlying compressors.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package codec

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v3"
	"github.com/pkg/errors"
)

const lz4hcDefaultLevel = 9

var ErrUnknownCodec = errors.New("unknown codec")

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter constructs the compressor for a single-codec description.
// Codec chains are declarative only and cannot be constructed directly.
func (d Desc) NewWriter(w io.Writer) (io.WriteCloser, error) {
	spec, err := d.single()
	if err != nil {
		return nil, err
	}
	switch spec.Name {
	case None, "":
		return nopWriteCloser{w}, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case LZ4HC:
		zw := lz4.NewWriter(w)
		zw.Header.CompressionLevel = spec.level(lz4hcDefaultLevel)
		return zw, nil
	case ZSTD:
		level := zstd.EncoderLevelFromZstd(spec.level(3))
		return zstd.NewWriter(w, zstd.WithEncoderLevel(level))
	case GZIP:
		return gzip.NewWriterLevel(w, spec.level(gzip.DefaultCompression))
	}
	return nil, errors.Wrap(ErrUnknownCodec, spec.Name)
}

// NewReader constructs the matching decompressor.
func (d Desc) NewReader(r io.Reader) (io.ReadCloser, error) {
	spec, err := d.single()
	if err != nil {
		return nil, err
	}
	switch spec.Name {
	case None, "":
		return io.NopCloser(r), nil
	case LZ4, LZ4HC:
		return io.NopCloser(lz4.NewReader(r)), nil
	case ZSTD:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case GZIP:
		return gzip.NewReader(r)
	}
	return nil, errors.Wrap(ErrUnknownCodec, spec.Name)
}

func (d Desc) single() (Spec, error) {
	switch len(d.specs) {
	case 0:
		return Spec{Name: None}, nil
	case 1:
		return d.specs[0], nil
	}
	return Spec{}, errors.Errorf("codec chain %q: direct construction supports a single codec", d)
}

func (spec Spec) level(dflt int) int {
	if spec.HasLevel {
		return spec.Level
	}
	return dflt
}
