package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "media"), "http://localhost:8080/media/")
	require.NoError(t, err)

	require.NoError(t, store.Upload(context.Background(), "img_1_u1.png", strings.NewReader("png-bytes")))

	data, err := os.ReadFile(filepath.Join(dir, "media", "img_1_u1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "http://localhost:8080/media/img_1_u1.png", store.PublicURL("img_1_u1.png"))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStoresRejectEscapingNames(t *testing.T) {
	local, err := NewLocalStore(t.TempDir(), "http://x")
	require.NoError(t, err)
	remote := NewFTPStore("127.0.0.1", "1", "u", "p", "chat", "http://cdn")

	for _, name := range []string{"", "../etc/passwd", "a/b.png", `a\b.png`} {
		assert.ErrorIs(t, local.Upload(context.Background(), name, strings.NewReader("x")), ErrInvalidName, name)
		assert.ErrorIs(t, remote.Upload(context.Background(), name, strings.NewReader("x")), ErrInvalidName, name)
	}
}

func TestFTPStoreUnreachable(t *testing.T) {
	store := NewFTPStore("127.0.0.1", "1", "u", "p", "/chat/", "https://cdn.example.com/")
	store.timeout = time.Second

	err := store.Upload(context.Background(), "img_1_u1.png", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to FTP")
	assert.Equal(t, "https://cdn.example.com/chat/img_1_u1.png", store.PublicURL("img_1_u1.png"))
	assert.NoError(t, store.Close())
}
