package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return s
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestLocal(t)
	key := "loads/abc/images/photo.jpg"

	require.NoError(t, s.Put(ctx, key, strings.NewReader("jpeg bytes"), PutOptions{ContentType: "image/jpeg"}))

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, info, err := s.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
	assert.Equal(t, int64(10), info.Size)
	assert.Equal(t, "image/jpeg", info.ContentType)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "delete is idempotent")

	_, _, err = s.Get(ctx, key)
	assert.True(t, IsNotFound(err))
}

func TestLocalStorage_PutRespectsOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestLocal(t)

	require.NoError(t, s.Put(ctx, "a.png", strings.NewReader("one"), PutOptions{}))
	err := s.Put(ctx, "a.png", strings.NewReader("two"), PutOptions{})
	assert.ErrorIs(t, err, ErrKeyExists)

	require.NoError(t, s.Put(ctx, "a.png", strings.NewReader("two"), PutOptions{Overwrite: true}))
	rc, _, err := s.Get(ctx, "a.png")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "two", string(data))
}

func TestLocalStorage_PutEnforcesMaxSize(t *testing.T) {
	ctx := context.Background()
	s := newTestLocal(t)

	err := s.Put(ctx, "big.jpg", bytes.NewReader(make([]byte, 11)), PutOptions{MaxSize: 10})
	assert.True(t, IsTooLarge(err))

	exists, err := s.Exists(ctx, "big.jpg")
	require.NoError(t, err)
	assert.False(t, exists, "oversized upload must not be left behind")
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := newTestLocal(t)

	for _, key := range []string{"", "../escape.jpg", "loads/../../etc/passwd", "/abs/path"} {
		err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{})
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestKeys(t *testing.T) {
	loadID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	imageID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t, "loads/11111111-1111-1111-1111-111111111111/images/22222222-2222-2222-2222-222222222222.png",
		ImageKey(loadID, imageID, "image/png"))
	assert.Equal(t, "loads/11111111-1111-1111-1111-111111111111/images/22222222-2222-2222-2222-222222222222.jpg",
		ImageKey(loadID, imageID, "image/jpeg"))
	assert.Equal(t, "loads/11111111-1111-1111-1111-111111111111/thumbnails/22222222-2222-2222-2222-222222222222.jpg",
		ThumbnailKey(loadID, imageID))
}

func TestSniffContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 16))
	ct, head, err := SniffContentType(bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, png, head)
	assert.True(t, IsAllowedImageType(ct))
	assert.False(t, IsAllowedImageType("image/gif"))
	assert.True(t, IsAllowedImageType("IMAGE/JPEG; charset=binary"))
}

func TestReadLimited(t *testing.T) {
	data, err := readLimited(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	_, err = readLimited(strings.NewReader("123456"), 5)
	assert.ErrorIs(t, err, ErrTooLarge)
}
