package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vedhaiygl/smart-attendance-api/internal/store"
	"github.com/vedhaiygl/smart-attendance-api/pkg/storage"
)

func newSelfieFixture(t *testing.T) (*SelfieService, string) {
	t.Helper()
	dir := t.TempDir()
	local, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", 5*time.Minute)
	svc := NewSelfieService(local, signer, 1, 1, zap.NewNop())
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc, dir
}

func TestSelfiePersistRoundTrip(t *testing.T) {
	svc, dir := newSelfieFixture(t)

	key := store.SelfieKey("sess-1", "stu-001")
	require.NoError(t, svc.EnqueueSave(key, []byte("jpeg-bytes")))

	path := filepath.Join(dir, key)
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(data))
}

func TestSelfieSignedURLServesFile(t *testing.T) {
	svc, _ := newSelfieFixture(t)

	key := store.SelfieKey("sess-2", "stu-002")
	require.NoError(t, svc.EnqueueSave(key, []byte("payload")))

	token, expires, err := svc.SignedURL("sess-2:stu-002", key)
	require.NoError(t, err)
	require.True(t, expires.After(time.Now()))

	require.Eventually(t, func() bool {
		file, err := svc.OpenSigned(token)
		if err != nil {
			return false
		}
		defer file.Close() //nolint:errcheck
		data, err := io.ReadAll(file)
		return err == nil && string(data) == "payload"
	}, time.Second, 5*time.Millisecond)
}

func TestSelfieEnqueueNoopWithoutData(t *testing.T) {
	svc, _ := newSelfieFixture(t)
	require.NoError(t, svc.EnqueueSave("sess-3/stu-003.jpg", nil))
}
