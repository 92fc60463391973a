package enc_test

import (
	"bytes"
	"errors"
	"testing"

	enc "github.com/SchnorcherSepp/otpvault/encoding"
)

func TestCompress(t *testing.T) {

	// wrong input
	b, r, err := enc.Compress(nil)
	if err != nil || len(b) != 0 || r != 1 {
		t.Fatalf("fail")
	}
	b, r, err = enc.Compress(make([]byte, 0))
	if err != nil || len(b) != 0 || r != 1 {
		t.Fatalf("fail")
	}
	//----------------------------------
	b, err = enc.Decompress(nil)
	if err != nil || len(b) != 0 {
		t.Fatalf("fail")
	}
	_, err = enc.Decompress(make([]byte, 3))
	if !errors.Is(err, enc.ErrNotCompressed) {
		t.Fatalf("wrong error: %v", err)
	}
	_, err = enc.Decompress([]byte(`{"pads":{}}`)) // plain JSON
	if !errors.Is(err, enc.ErrNotCompressed) {
		t.Fatalf("wrong error: %v", err)
	}
	_, err = enc.Decompress([]byte{0x28, 0xB5, 0x2F, 0xFD, 0x00}) // broken frame
	if !errors.Is(err, enc.ErrNotCompressed) {
		t.Fatalf("wrong error: %v", err)
	}

	// TEST: single byte
	data := []byte{0x00}
	out, _, err := enc.Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	out, err = enc.Decompress(out)
	if !bytes.Equal(out, data) || err != nil {
		t.Fatalf("fail: l=%d, e=%v", len(out), err)
	}

	// TEST: a state ledger compresses well
	data = []byte(`{"pads":{"0b6a3c47":{"id":"0b6a3c47","file_name":"0b6a3c47.pad","size":1048576,` +
		`"used_segments":[{"start":0,"end":40},{"start":40,"end":80},{"start":80,"end":120}],"is_fully_used":false},` +
		`"1c7b4d58":{"id":"1c7b4d58","file_name":"1c7b4d58.pad","size":1048576,` +
		`"used_segments":[{"start":0,"end":40},{"start":40,"end":80},{"start":80,"end":120}],"is_fully_used":false}}}`)
	out, ratio, err := enc.Compress(data)
	if err != nil || ratio >= 0.8 {
		t.Fatalf("fail: r=%f, l=%d, e=%v", ratio, len(out), err)
	}
	out, err = enc.Decompress(out)
	if !bytes.Equal(out, data) || err != nil {
		t.Fatalf("fail: l=%d, e=%v", len(out), err)
	}
}
