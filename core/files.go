package core

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/SchnorcherSepp/otpvault/vault"
	log "github.com/sirupsen/logrus"
)

// EncryptFile encrypts inPath to outPath and writes the metadata sidecar
// (@see MetadataPath). An empty outPath is inPath + CiphertextExt.
// Existing output files are NOT overwritten.
func EncryptFile(l vault.Layout, st *vault.State, inPath, outPath string, opt EncryptOptions) (Metadata, string, error) {
	if outPath == "" {
		outPath = inPath + CiphertextExt
	}

	// input
	in, err := os.Open(inPath)
	if err != nil {
		return Metadata{}, outPath, err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return Metadata{}, outPath, err
	}

	// output
	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		log.Errorf("%s/EncryptFile: %v", packageName, err)
		return Metadata{}, outPath, err
	}

	meta, err := Encrypt(l, st, out, in, info.Size(), opt)
	if cErr := out.Close(); err == nil && cErr != nil {
		err = cErr
	}

	// the ciphertext is only useful if the cipher pass finished
	if err != nil && !errors.Is(err, ErrStateNotPersisted) {
		_ = os.Remove(outPath)
		return meta, outPath, err
	}

	if mErr := WriteMetadata(MetadataPath(outPath), meta); mErr != nil {
		return meta, outPath, fmt.Errorf("ciphertext written, but no metadata: %w", mErr)
	}
	return meta, outPath, err
}

// DecryptFile decrypts inPath to outPath.
// The parameters usually come from ReadMetadata(MetadataPath(inPath)).
// Existing output files are NOT overwritten.
func DecryptFile(l vault.Layout, st *vault.State, inPath, outPath string, prm DecryptParams) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	// integrity check before any output file exists
	if prm.Hash != "" {
		if err := CheckIntegrity(in, prm.Hash); err != nil {
			log.Errorf("%s/DecryptFile: '%s': %v", packageName, inPath, err)
			return &OpError{Op: "decrypt", PadID: prm.PadID, Start: prm.Start, Length: prm.Length, Err: err}
		}
		if _, err := in.Seek(0, io.SeekStart); err != nil {
			return err
		}
		prm.Hash = "" // verified
	}

	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		log.Errorf("%s/DecryptFile: %v", packageName, err)
		return err
	}

	err = Decrypt(l, st, out, in, prm)
	if cErr := out.Close(); err == nil && cErr != nil {
		err = cErr
	}
	if err != nil && !errors.Is(err, ErrStateNotPersisted) {
		_ = os.Remove(outPath)
	}
	return err
}
