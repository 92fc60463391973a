package enc_test

import (
	"bytes"
	"errors"
	"io"
	"io/ioutil"
	"testing"

	enc "github.com/SchnorcherSepp/otpvault/encoding"
)

func TestXORBytes(t *testing.T) {
	pad := []byte{1, 2, 3, 4, 5}
	plain := []byte("HELLO")

	out := make([]byte, len(plain))
	if err := enc.XORBytes(out, plain, pad); err != nil {
		t.Fatal(err)
	}
	want := []byte{'H' ^ 1, 'E' ^ 2, 'L' ^ 3, 'L' ^ 4, 'O' ^ 5}
	if !bytes.Equal(out, want) {
		t.Fatalf("%x is not %x", out, want)
	}

	// self-inverse (in place)
	if err := enc.XORBytes(out, out, pad); err != nil {
		t.Fatal(err)
	}
	if string(out) != "HELLO" {
		t.Fatalf("wrong plain text: %s", out)
	}

	// pad too short
	if err := enc.XORBytes(out, plain, pad[:4]); !errors.Is(err, enc.ErrPadTooShort) {
		t.Fatalf("wrong error: %v", err)
	}
}

func TestPadReader(t *testing.T) {
	pad := make([]byte, 32*1024+1)
	for i := range pad {
		pad[i] = byte(i*7 + 3)
	}

	// reader is nil
	r := enc.PadReader(nil, pad)
	if n, err := r.Read(make([]byte, 12)); n != 0 || err == nil {
		t.Error("no error")
	}

	// empty inner reader
	buf := make([]byte, 4)
	r = enc.PadReader(bytes.NewReader([]byte{}), pad)
	if n, err := r.Read(buf); n != 0 || err != io.EOF {
		t.Errorf("n=%d, err=%v", n, err)
	}

	// plain text
	plain := make([]byte, len(pad))
	for i := range plain {
		plain[i] = byte(i % 256)
	}

	// encrypt/decrypt the whole text
	r1 := enc.PadReader(bytes.NewReader(plain), pad)
	r2 := enc.PadReader(enc.PadReader(bytes.NewReader(plain), pad), pad)
	b1, err := ioutil.ReadAll(r1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := ioutil.ReadAll(r2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b2, plain) {
		t.Fatal("round trip failed")
	}

	// statistic check
	hitCount := 0 // enc and plain equal (can happen)
	for i := range b1 {
		if b1[i] == plain[i] {
			hitCount++
		}
	}
	if hitCount > int(float32(len(plain))*0.1) {
		t.Errorf("enc error: hit=%d", hitCount)
	}

	// input longer than the pad
	r = enc.PadReader(bytes.NewReader(append(plain, 'X')), pad)
	if _, err := ioutil.ReadAll(r); !errors.Is(err, enc.ErrInputTooLong) {
		t.Fatalf("wrong error: %v", err)
	}
}
