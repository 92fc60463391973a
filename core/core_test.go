package core_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/SchnorcherSepp/otpvault/vault"
	"github.com/stretchr/testify/require"
)

// testVault creates a vault with the given pads (id -> pad bytes) in the available area.
func testVault(t *testing.T, pads map[string][]byte) (vault.Layout, *vault.State) {
	l := vault.NewLayout(filepath.Join(t.TempDir(), "vault"))
	require.NoError(t, l.Init())

	st := vault.NewState()
	for id, data := range pads {
		p := st.AddPad(id, id+vault.PadExt, int64(len(data)))
		require.NoError(t, os.WriteFile(l.AvailablePath(p), data, 0400))
	}
	require.NoError(t, vault.Save(l.Root, st))
	return l, st
}

// padBytes returns n deterministic, not constant pad bytes.
func padBytes(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7) + seed
	}
	return b
}

// xor returns a XOR b (len(a)).
func xor(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// loadPad reads the pad record from the state file on disk.
func loadPad(t *testing.T, l vault.Layout, id string) vault.Pad {
	st, err := vault.Load(l.Root)
	require.NoError(t, err)
	p, err := st.Pad(id)
	require.NoError(t, err)
	return p
}

// fileContent reads a file or returns nil.
func fileContent(path string) []byte {
	b, _ := os.ReadFile(path)
	return b
}

func reader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
