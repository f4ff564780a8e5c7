package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutAndPublicURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8080/")
	require.NoError(t, err)

	name := ObjectName("certs", "Proof.PNG")
	assert.True(t, strings.HasPrefix(name, "certs/"))
	assert.True(t, strings.HasSuffix(name, ".png"))

	require.NoError(t, store.Put(context.Background(), BucketVerifications, name, strings.NewReader("img")))

	data, err := os.ReadFile(filepath.Join(dir, BucketVerifications, filepath.FromSlash(name)))
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))
	assert.Equal(t, "http://localhost:8080/storage/verifications/"+name, store.PublicURL(BucketVerifications, name))
}

func TestLocalStore_RejectsTraversalAndUnknownBucket(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	err = store.Put(context.Background(), BucketEvents, "../../etc/passwd", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)

	err = store.Put(context.Background(), "secrets", "a.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)
}
