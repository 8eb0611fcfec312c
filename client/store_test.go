package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := fs.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, fs.Set("start_time_2025-06-15", []byte("1750000000000")))
	v, ok, err := fs.Get("start_time_2025-06-15")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1750000000000", string(v))

	require.NoError(t, fs.Delete("start_time_2025-06-15"))
	_, ok, err = fs.Get("start_time_2025-06-15")
	require.NoError(t, err)
	require.False(t, ok)

	// Deleting a missing key is not an error.
	require.NoError(t, fs.Delete("start_time_2025-06-15"))
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, fs.Set("../evil/key", []byte("x")))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotContains(t, entries[0].Name(), "/")

	v, ok, err := fs.Get("../evil/key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", string(v))
}

func TestFileStorePersistsAcrossOpens(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, fs.Set("wallet_key", []byte("aabb")))

	fs2, err := NewFileStore(dir)
	require.NoError(t, err)
	v, ok, err := fs2.Get("wallet_key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "aabb", string(v))
}

func TestWalletPersistsAcrossLoads(t *testing.T) {
	kv := newMemStore()
	w1, err := LoadWallet(kv)
	require.NoError(t, err)
	w2, err := LoadWallet(kv)
	require.NoError(t, err)
	require.Equal(t, w1.Address(), w2.Address())

	sig, err := w1.SignMessage([]byte("challenge"))
	require.NoError(t, err)
	require.NotEmpty(t, sig)
}
