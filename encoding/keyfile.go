package enc

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

// KeyFileSize is the exact size of a key file.
const KeyFileSize = 128

// KeyFile manages the secrets for vault state snapshots (@see package backup).
// The derived keys only protect the exported ledger (pad ids and used ranges).
// Pads and the XOR path never use them.
type KeyFile struct {
	snapshotSecret []byte // for snapshot encryption
	nameSecret     []byte // for snapshot names in a storage
}

// LoadKeyFile read the 128 bytes key file and generate the secrets.
func LoadKeyFile(path string) (*KeyFile, error) {

	// read key file
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// file size == 128 bytes
	if len(b) != KeyFileSize {
		return nil, fmt.Errorf("key file must be exactly %d bytes long", KeyFileSize)
	}

	// keys:
	//   snapshotSecret the first 64 bytes,
	//   nameSecret the last 64 bytes.
	k := new(KeyFile)
	k.snapshotSecret = pbkdf2.Key(b[:64], []byte("snapshot_secret"), 60000, 64, sha512.New)
	k.nameSecret = pbkdf2.Key(b[64:], []byte("name_secret"), 60000, 64, sha512.New)
	return k, nil
}

// SnapshotKey calculates the key for vault state snapshots.
// return 32 bytes (AES 256 key)
func (k *KeyFile) SnapshotKey() []byte {
	return pbkdf2.Key(k.snapshotSecret, []byte("SnapshotKey"), 5000, 32, sha256.New)
}

// SnapshotName calculates the storage file name of the snapshot for one vault.
// Different vaults backed up with the same key file get different names.
// return 64 bytes (SHA 512) as hex string
func (k *KeyFile) SnapshotName(vaultName string) string {
	key := pbkdf2.Key(k.nameSecret, []byte(vaultName), 500, 64, sha512.New)
	return fmt.Sprintf("%x", key)
}

//--------------------------------------------------------------------------------------------------------------------//

// CreateKeyFile creates a new key file that contains exactly 128 random bytes.
// Existing files are NOT overwritten.
func CreateKeyFile(path string) error {
	// random key
	randKey := make([]byte, KeyFileSize)
	if _, err := io.ReadFull(rand.Reader, randKey); err != nil {
		return err
	}

	// don't overwrite files
	if _, err := os.Stat(path); err == nil {
		return errors.New("file already exists")
	}

	// write key file
	if err := os.WriteFile(path, randKey, 0600); err != nil {
		return err
	}

	// read test
	k, err := LoadKeyFile(path)
	if err != nil {
		return err
	}
	k.SnapshotKey() // get key

	// success
	return nil
}
