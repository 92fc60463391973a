package enc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

// ErrNotCompressed is returned by Decompress if the data doesn't start with a zstd frame.
var ErrNotCompressed = errors.New("not a zstd frame")

// zstdMagic starts every frame written by Compress (0xFD2FB528, little endian).
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Compress packs a serialized vault state before it is encrypted into a snapshot
// (@see package backup). The JSON ledger repeats the same keys for every pad and
// segment, so the best zstd level is used; snapshots are small and written rarely.
//
// ratio is len(out)/len(in). Empty input gives empty output and ratio 1.
func Compress(in []byte) (out []byte, ratio float32, err error) {
	if len(in) == 0 {
		return []byte{}, 1, nil
	}

	w, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		log.Errorf("%s/Compress: %v", packageName, err)
		return []byte{}, 1, err
	}
	defer w.Close()

	out = w.EncodeAll(in, make([]byte, 0, len(in)/2))
	return out, float32(len(out)) / float32(len(in)), nil
}

// Decompress unpacks a snapshot payload written by Compress.
// Empty input gives empty output.
func Decompress(in []byte) ([]byte, error) {
	if len(in) == 0 {
		return []byte{}, nil
	}
	if !bytes.HasPrefix(in, zstdMagic) {
		return []byte{}, ErrNotCompressed
	}

	r, err := zstd.NewReader(nil)
	if err != nil {
		log.Errorf("%s/Decompress: %v", packageName, err)
		return []byte{}, err
	}
	defer r.Close()

	out, err := r.DecodeAll(in, make([]byte, 0, 4*len(in)))
	if err != nil {
		return []byte{}, fmt.Errorf("%w: %v", ErrNotCompressed, err)
	}
	return out, nil
}
