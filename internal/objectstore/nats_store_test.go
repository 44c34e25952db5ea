// Package objectstore_test tests the NATS object store implementation.
package objectstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/mediagen/internal/objectstore"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StartTestServer starts an in-memory NATS server for testing purposes.
func StartTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func newStore(t *testing.T, bucket string) (*objectstore.NatsObjectStore, nats.JetStreamContext) {
	t.Helper()

	natsServer, natsConnection := StartTestServer(t)
	t.Cleanup(natsServer.Shutdown)
	t.Cleanup(natsConnection.Close)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, bucket)
	require.NoError(t, err)

	return store, jetstreamContext
}

func TestNatsObjectStore_UploadDownload(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "test-bucket")
	ctx := context.Background()
	uploadData := []byte("ID3 fake mp3 payload")

	err := store.Upload(ctx, "page-1.mp3", uploadData)
	require.NoError(t, err)

	downloadData, err := store.Download(ctx, "page-1.mp3")
	require.NoError(t, err)
	require.Equal(t, uploadData, downloadData)
}

func TestNatsObjectStore_DownloadMissing(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "missing-bucket")

	_, err := store.Download(context.Background(), "nope.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.txt")
}

func TestNatsObjectStore_BindsExistingBucket(t *testing.T) {
	t.Parallel()

	store, jetstreamContext := newStore(t, "shared-bucket")
	require.NoError(t, store.Upload(context.Background(), "intro.mp3", []byte("intro")))

	again, err := objectstore.New(jetstreamContext, "shared-bucket")
	require.NoError(t, err)
	assert.Equal(t, "shared-bucket", again.Bucket())

	data, err := again.Download(context.Background(), "intro.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("intro"), data)
}

func TestNatsObjectStore_UploadFileAndList(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "podcast-bucket")
	ctx := context.Background()

	empty, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	path := filepath.Join(t.TempDir(), "closing.mp3")
	require.NoError(t, os.WriteFile(path, []byte("closing audio"), 0o600))

	require.NoError(t, store.UploadFile(ctx, "closing.mp3", path, "Closing part"))
	require.NoError(t, store.Upload(ctx, "affirmation_01.mp3", []byte("a1")))

	objects, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 2)

	assert.Equal(t, "affirmation_01.mp3", objects[0].Name)
	assert.Equal(t, uint64(2), objects[0].Size)
	assert.Equal(t, "closing.mp3", objects[1].Name)
	assert.Equal(t, "Closing part", objects[1].Description)
	assert.Equal(t, uint64(len("closing audio")), objects[1].Size)
}

func TestNatsObjectStore_UploadFileMissing(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "file-bucket")

	err := store.UploadFile(context.Background(), "x.mp3", filepath.Join(t.TempDir(), "missing.mp3"), "")
	require.Error(t, err)
}

func TestContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "audio/mpeg", objectstore.ContentType("intro.mp3"))
	assert.Equal(t, "application/json", objectstore.ContentType("summary.json"))
	assert.Equal(t, "text/plain; charset=utf-8", objectstore.ContentType("page.txt"))
	assert.Equal(t, "application/octet-stream", objectstore.ContentType("blob"))
}
