package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

const (
	kvMaxBytes  = 256 * 1024 * 1024
	bucketSetup = 10 * time.Second
)

// NATSStore is a Store backed by a JetStream key-value bucket, shared by every
// instance connected to the same NATS cluster.
type NATSStore struct {
	kv     jetstream.KeyValue
	bucket string
	logger *slog.Logger
}

// NewNATSStore opens (or creates) bucket on conn. The caller owns conn.
func NewNATSStore(ctx context.Context, conn *nats.Conn, bucket string, logger *slog.Logger) (*NATSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryCache, "failed to create JetStream context").Build()
	}

	ctx, cancel := context.WithTimeout(ctx, bucketSetup)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "PageBuilder content response cache",
			MaxBytes:    kvMaxBytes,
			History:     1,
		})
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryCache, "failed to create KV bucket").
				WithContext("bucket", bucket).
				Build()
		}
		logger.Info("Created KV bucket for response cache", slog.String("bucket", bucket))
	}
	return &NATSStore{kv: kv, bucket: bucket, logger: logger}, nil
}

func (s *NATSStore) Get(ctx context.Context, key string) (*Entry, error) {
	kve, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryCache, "failed to get cache entry").
			WithContext("key", key).
			Build()
	}
	var e Entry
	if err := json.Unmarshal(kve.Value(), &e); err != nil {
		// Unreadable entries are treated as misses and overwritten on the next Set.
		s.logger.Warn("Discarding undecodable cache entry", slog.String("key", key), slog.String("error", err.Error()))
		return nil, nil
	}
	return &e, nil
}

func (s *NATSStore) Set(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if _, err := s.kv.Put(ctx, entry.Key, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCache, "failed to put cache entry").
			WithContext("key", entry.Key).
			Build()
	}
	return nil
}

func (s *NATSStore) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return ferrors.WrapError(err, ferrors.CategoryCache, "failed to delete cache entry").
			WithContext("key", key).
			Build()
	}
	return nil
}

func (s *NATSStore) keys(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryCache, "failed to list cache keys").Build()
	}
	return keys, nil
}

func (s *NATSStore) DeleteTagged(ctx context.Context, tags ...string) (int, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		e, err := s.Get(ctx, key)
		if err != nil {
			return removed, err
		}
		if e == nil || !matchesAny(e, tags) {
			continue
		}
		if err := s.Delete(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *NATSStore) Purge(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *NATSStore) Len(ctx context.Context) (int, error) {
	keys, err := s.keys(ctx)
	return len(keys), err
}

// Close is a no-op; the connection belongs to the caller.
func (s *NATSStore) Close() error { return nil }
