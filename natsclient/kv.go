package natsclient

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
)

// KVStore is a thin wrapper over a JetStream key-value bucket. It
// satisfies the identity package's persistence contract. Chat protocol
// identifiers carry characters JetStream keys reject (!, @, :), so
// every key is encoded before hitting the bucket.
type KVStore struct {
	bucket jetstream.KeyValue
}

// EnsureKV creates or opens the named bucket. ttl bounds entry age in
// the bucket, mirroring the in-memory mapping TTL.
func (c *Client) EnsureKV(ctx context.Context, bucket string, ttl time.Duration) (*KVStore, error) {
	js := c.JetStream()
	if js == nil {
		return nil, errors.ErrNotStarted
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "natsclient.Client", "EnsureKV", "bucket "+bucket)
	}
	return &KVStore{bucket: kv}, nil
}

// Put stores a value under an encoded key, last writer wins.
func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.bucket.Put(ctx, encodeKey(key), value); err != nil {
		return errors.WrapTransient(err, "natsclient.KVStore", "Put", "key "+key)
	}
	return nil
}

// Get retrieves a value. A missing key is errors.ErrKeyNotFound.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.bucket.Get(ctx, encodeKey(key))
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, errors.ErrKeyNotFound
		}
		return nil, errors.WrapTransient(err, "natsclient.KVStore", "Get", "key "+key)
	}
	return entry.Value(), nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, encodeKey(key)); err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		return errors.WrapTransient(err, "natsclient.KVStore", "Delete", "key "+key)
	}
	return nil
}

// Keys lists the decoded keys currently in the bucket.
func (s *KVStore) Keys(ctx context.Context) ([]string, error) {
	lister, err := s.bucket.ListKeys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsclient.KVStore", "Keys", "list")
	}

	var out []string
	for key := range lister.Keys() {
		decoded, err := decodeKey(key)
		if err != nil {
			continue
		}
		out = append(out, decoded)
	}
	return out, nil
}

func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func decodeKey(key string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
