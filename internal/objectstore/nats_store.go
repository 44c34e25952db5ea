// Package objectstore stores text and audio objects in a NATS JetStream
// object store bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const contentTypeHeader = "Content-Type"

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Name        string
	Description string
	Size        uint64
}

// NatsObjectStore implements core.ObjectStore on a JetStream object store.
type NatsObjectStore struct {
	jetstreamContext nats.JetStreamContext
	bucket           string
	store            nats.ObjectStore
}

// New creates the bucket, or binds to it when it already exists.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*NatsObjectStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Generated media for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &NatsObjectStore{
		jetstreamContext: jetstreamContext,
		bucket:           bucketName,
		store:            store,
	}, nil
}

// Bucket returns the bucket name.
func (n *NatsObjectStore) Bucket() string {
	return n.bucket
}

// Download retrieves an object.
func (n *NatsObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload stores data under key, tagged with the MIME type of the key's extension.
func (n *NatsObjectStore) Upload(_ context.Context, key string, data []byte) error {
	return n.put(key, "", bytes.NewReader(data))
}

// UploadFile streams the file at path into the bucket under key.
func (n *NatsObjectStore) UploadFile(_ context.Context, key, path, description string) error {
	file, openErr := os.Open(path)
	if openErr != nil {
		return fmt.Errorf("failed to open %s: %w", path, openErr)
	}
	defer file.Close()

	return n.put(key, description, file)
}

// List returns the objects in the bucket sorted by name. An empty bucket
// yields an empty list.
func (n *NatsObjectStore) List(_ context.Context) ([]ObjectInfo, error) {
	infos, err := n.store.List()
	if errors.Is(err, nats.ErrNoObjectsFound) {
		return []ObjectInfo{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list bucket '%s': %w", n.bucket, err)
	}

	objects := make([]ObjectInfo, 0, len(infos))
	for _, info := range infos {
		objects = append(objects, ObjectInfo{
			Name:        info.Name,
			Description: info.Description,
			Size:        info.Size,
		})
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })

	return objects, nil
}

func (n *NatsObjectStore) put(key, description string, reader io.Reader) error {
	headers := nats.Header{}
	headers.Set(contentTypeHeader, ContentType(key))

	_, err := n.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: description,
		Headers:     headers,
		Metadata:    nil,
		Opts:        nil,
	}, reader)
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}

	return nil
}

// ContentType returns the MIME type stored with an object key.
func ContentType(key string) string {
	switch filepath.Ext(key) {
	case ".mp3":
		return "audio/mpeg"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
