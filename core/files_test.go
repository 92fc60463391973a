package core_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/SchnorcherSepp/otpvault/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptFile(t *testing.T) {
	pad := padBytes(4096, 13)
	sender, sst := testVault(t, map[string][]byte{"p": pad})
	receiver, rst := testVault(t, map[string][]byte{"p": pad})

	dir := t.TempDir()
	in := filepath.Join(dir, "letter.txt")
	plain := []byte("Dear friend,\nthe package arrived.\n")
	require.NoError(t, os.WriteFile(in, plain, 0600))

	// encrypt with default output
	meta, out, err := core.EncryptFile(sender, sst, in, "", core.EncryptOptions{})
	require.NoError(t, err)
	assert.Equal(t, in+core.CiphertextExt, out)
	assert.Equal(t, xor(plain, pad[:len(plain)]), fileContent(out))

	// sidecar
	m, err := core.ReadMetadata(core.MetadataPath(out))
	require.NoError(t, err)
	assert.Equal(t, meta, m)

	// existing output
	_, _, err = core.EncryptFile(sender, sst, in, out, core.EncryptOptions{})
	assert.Error(t, err)
	assert.Equal(t, int64(len(plain)), loadPad(t, sender, "p").TotalUsedBytes())

	// decrypt
	dec := filepath.Join(dir, "letter.dec.txt")
	require.NoError(t, core.DecryptFile(receiver, rst, out, dec, m.Params()))
	assert.Equal(t, plain, fileContent(dec))

	// tampered: no output file
	data := fileContent(out)
	data[0] ^= 0xFF
	require.NoError(t, os.WriteFile(out, data, 0600))
	bad := filepath.Join(dir, "bad.txt")
	err = core.DecryptFile(receiver, rst, out, bad, m.Params())
	assert.True(t, errors.Is(err, core.ErrIntegrityMismatch), err)
	assert.NoFileExists(t, bad)
}

func TestEncryptFile_NoPadSpace(t *testing.T) {
	l, st := testVault(t, map[string][]byte{"p": padBytes(4, 0)})

	in := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(in, []byte("too long"), 0600))

	_, out, err := core.EncryptFile(l, st, in, "", core.EncryptOptions{})
	assert.True(t, errors.Is(err, core.ErrNoSuitablePad), err)
	assert.NoFileExists(t, out)
	assert.NoFileExists(t, core.MetadataPath(out))
}

func TestReadMetadata(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "a.enc.metadata.json")
	raw := `{"pad_id":"p","start_byte":7,"length":3,"ciphertext_hash":"ab"}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0600))
	m, err := core.ReadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, core.Metadata{PadID: "p", StartByte: 7, Length: 3, CiphertextHash: "ab"}, m)

	require.NoError(t, os.WriteFile(path, []byte(`{"pad_id":"","start_byte":0,"length":1}`), 0600))
	_, err = core.ReadMetadata(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0600))
	_, err = core.ReadMetadata(path)
	assert.Error(t, err)

	_, err = core.ReadMetadata(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
