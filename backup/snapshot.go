package backup

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	enc "github.com/SchnorcherSepp/otpvault/encoding"
	"github.com/SchnorcherSepp/otpvault/vault"
	log "github.com/sirupsen/logrus"
)

// ErrCorruptSnapshot is returned if a snapshot can't be decrypted or fails the checksum.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// A snapshot is the vault state (JSON), compressed (zstd), prefixed with a
// crc32 checksum and encrypted with AES-GCM:
//
//   nonce(12) | gcm( crc32(4) | zstd( state json ) )
//
// Pad bytes are never part of a snapshot.

// ToWriter serializes, compresses, encrypts and writes a state snapshot to a writer.
func ToWriter(st *vault.State, key []byte, w io.Writer) error {
	p, err := state2json(st)
	if err != nil {
		return err // logging in sub function
	}

	zip, err := json2zip(p)
	if err != nil {
		return err // logging in sub function
	}

	encByt, err := zip2enc(zip, key)
	if err != nil {
		return err // logging in sub function
	}

	if _, err = w.Write(encByt); err != nil {
		log.Errorf("%s/ToWriter: %v", packageName, err)
		return err
	}
	return nil
}

// ToFile writes a state snapshot to a file (overwrite).
func ToFile(st *vault.State, key []byte, path string) error {
	fh, err := os.Create(path)
	if err != nil {
		log.Errorf("%s/ToFile: %v", packageName, err)
		return err
	}

	if err := ToWriter(st, key, fh); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

// ------------------------------------------------------------------------------------------------------------------ //

// FromFile loads a state snapshot from a file.
func FromFile(path string, key []byte) (*vault.State, error) {
	fh, err := os.Open(path)
	if err != nil {
		log.Errorf("%s/FromFile: %v", packageName, err)
		return nil, err
	}
	defer fh.Close()

	return FromReader(fh, key)
}

// FromReader loads a state snapshot from a reader.
func FromReader(r io.Reader, key []byte) (*vault.State, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		log.Errorf("%s/FromReader: %v", packageName, err)
		return nil, err
	}

	zip, err := enc2zip(b, key)
	if err != nil {
		return nil, err // logging in sub function
	}

	p, err := zip2json(zip)
	if err != nil {
		return nil, err // logging in sub function
	}

	return vault.FromReader(bytes.NewReader(p))
}

// ----------  HELPER  -----------------------------------------------------------------------------------------------//

// state2json serializes the state like the state file.
func state2json(st *vault.State) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := vault.ToWriter(st, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// json2zip uses Compress() and adds a crc32 checksum.
func json2zip(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return nil, errors.New("input is nul or empty")
	}

	b, ratio, err := enc.Compress(p)
	if err != nil {
		log.Errorf("%s/json2zip: %v", packageName, err)
		return nil, err
	}
	log.Tracef("%s/json2zip: %d bytes, ratio %.2f", packageName, len(p), ratio)

	c := make([]byte, checkSumSize)
	binary.LittleEndian.PutUint32(c, crc32.ChecksumIEEE(b))
	return append(c, b...), nil
}

// zip2enc encrypts bytes (AES Galois Counter Mode).
func zip2enc(zip []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		log.Errorf("%s/zip2enc: nonce: %v", packageName, err)
		return nil, err
	}

	// encrypts and authenticates
	return append(nonce, gcm.Seal(nil, nonce, zip, nil)...), nil
}

// enc2zip decrypts bytes (AES Galois Counter Mode).
func enc2zip(b []byte, key []byte) ([]byte, error) {
	if len(b) <= gcmStandardNonceSize {
		log.Errorf("%s/enc2zip: size check fail", packageName)
		return nil, fmt.Errorf("%w: size check fail", ErrCorruptSnapshot)
	}
	nonce, b := b[:gcmStandardNonceSize], b[gcmStandardNonceSize:]

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	// decrypts and authenticates
	zip, err := gcm.Open(nil, nonce, b, nil)
	if err != nil {
		log.Errorf("%s/enc2zip: %v", packageName, err)
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return zip, nil
}

// zip2json checks the crc32 checksum and uses Decompress().
func zip2json(zip []byte) ([]byte, error) {
	if len(zip) <= checkSumSize {
		log.Errorf("%s/zip2json: size check fail", packageName)
		return nil, fmt.Errorf("%w: size check fail", ErrCorruptSnapshot)
	}
	sum, b := zip[:checkSumSize], zip[checkSumSize:]

	if binary.LittleEndian.Uint32(sum) != crc32.ChecksumIEEE(b) {
		log.Errorf("%s/zip2json: checksum fail", packageName)
		return nil, fmt.Errorf("%w: checksum fail", ErrCorruptSnapshot)
	}

	p, err := enc.Decompress(b)
	if err != nil {
		log.Errorf("%s/zip2json: %v", packageName, err)
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return p, nil
}

// newGCM creates AES-GCM with a 16, 24 or 32 bytes key.
func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		log.Errorf("%s/newGCM: NewCipher: %v", packageName, err)
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		log.Errorf("%s/newGCM: NewGCM: %v", packageName, err)
		return nil, err
	}
	return gcm, nil
}
