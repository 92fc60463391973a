package core

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// Metadata is written next to every ciphertext.
// It is the only record of the pad bytes that were used.
type Metadata struct {

	// PadID is the pad used for the encryption.
	PadID string `json:"pad_id"`

	// StartByte is the first pad byte of the segment.
	StartByte int64 `json:"start_byte"`

	// Length is the segment length (= ciphertext size).
	Length int64 `json:"length"`

	// CiphertextHash is the hex SHA-256 of the ciphertext.
	// Example: ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad
	CiphertextHash string `json:"ciphertext_hash"`
}

// Params converts the metadata into decryption parameters.
func (m Metadata) Params() DecryptParams {
	return DecryptParams{
		PadID:  m.PadID,
		Start:  m.StartByte,
		Length: m.Length,
		Hash:   m.CiphertextHash,
	}
}

// MetadataPath returns the sidecar path of a ciphertext file.
func MetadataPath(ciphertextPath string) string {
	return ciphertextPath + MetadataExt
}

// WriteMetadata writes the metadata sidecar as indented JSON.
func WriteMetadata(path string, m Metadata) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(b, '\n'), 0600); err != nil {
		log.Errorf("%s/WriteMetadata: %v", packageName, err)
		return err
	}
	return nil
}

// ReadMetadata reads a metadata sidecar.
func ReadMetadata(path string) (Metadata, error) {
	var m Metadata

	b, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("%s/ReadMetadata: %v", packageName, err)
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		log.Errorf("%s/ReadMetadata: %v", packageName, err)
		return m, fmt.Errorf("invalid metadata file '%s': %w", path, err)
	}

	// check
	if m.PadID == "" || m.StartByte < 0 || m.Length < 0 {
		return m, fmt.Errorf("invalid metadata file '%s': pad_id=%q, start_byte=%d, length=%d", path, m.PadID, m.StartByte, m.Length)
	}
	return m, nil
}
