package enc

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrInputTooLong is returned when the input has more bytes than the pad segment.
	// The pad is never wrapped or reused.
	ErrInputTooLong = errors.New("input is longer than the pad segment")

	// ErrPadTooShort is returned by XORBytes if the pad has fewer bytes than the data.
	ErrPadTooShort = errors.New("pad is shorter than the data")
)

// XORBytes writes src XOR pad to dst. The same call encrypts and decrypts.
// dst and src may be the same slice. Only len(src) pad bytes are used.
func XORBytes(dst, src, pad []byte) error {
	if len(pad) < len(src) {
		return fmt.Errorf("%w: %d < %d", ErrPadTooShort, len(pad), len(src))
	}
	if len(dst) < len(src) {
		return fmt.Errorf("dst is shorter than src: %d < %d", len(dst), len(src))
	}
	for i := range src {
		dst[i] = src[i] ^ pad[i]
	}
	return nil
}

//--------------------------------------------------------------------------------------------------------------------//

var _ io.Reader = (*_PadReader)(nil)

type _PadReader struct {
	pad    []byte
	inner  io.Reader
	offset int64
}

// PadReader encrypts or decrypts a given reader with a pad segment.
// The first byte of the reader is combined with pad[0].
// Reading more than len(pad) bytes from the inner reader returns ErrInputTooLong.
func PadReader(r io.Reader, pad []byte) io.Reader {
	return &_PadReader{
		pad:    pad,
		inner:  r,
		offset: 0,
	}
}

func (pr *_PadReader) Read(p []byte) (n int, err error) {
	// nil reader check
	if pr.inner == nil {
		return 0, errors.New("inner reader is nil")
	}

	// read
	n, err = pr.inner.Read(p)

	// the pad is exhausted: don't hand out a single byte more
	if pr.offset+int64(n) > int64(len(pr.pad)) {
		return 0, fmt.Errorf("%w: more than %d bytes", ErrInputTooLong, len(pr.pad))
	}

	// crypt and update offset
	_ = XORBytes(p[:n], p[:n], pr.pad[pr.offset:])
	pr.offset += int64(n)

	// return n AND error
	return n, err
}
