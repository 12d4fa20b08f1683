package mappify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache stores encoded rows for FindByID. The cache package provides an
// in-memory LRU implementation; any shared store works as well.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}

// CacheKey identifies one cached row.
type CacheKey struct {
	Table string
	ID    any
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%v", k.Table, k.ID)
}

func encodeRow(row map[string]any) ([]byte, error) {
	return msgpack.Marshal(row)
}

func decodeRow(b []byte) (map[string]any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.UseLooseInterfaceDecoding(true)
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	return row, nil
}

// cacheable reports whether the row cache may serve ctx. Reads and writes
// inside a transaction bypass it.
func (m *Model[T]) cacheable(ctx context.Context) bool {
	return m.client.cache != nil && TxFromContext(ctx) == nil
}

func (m *Model[T]) cached(ctx context.Context, id any) (*T, bool) {
	if !m.cacheable(ctx) {
		return nil, false
	}
	key := CacheKey{Table: m.schema.Table, ID: id}.String()
	b, err := m.client.cache.Get(ctx, key)
	if err != nil || b == nil {
		if err != nil {
			m.client.log.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	row, err := decodeRow(b)
	if err == nil {
		var e *T
		if e, err = m.hydrate(row); err == nil {
			return e, true
		}
	}
	m.client.log.WarnContext(ctx, "dropping unreadable cache entry", "key", key, "error", err)
	_ = m.client.cache.Delete(ctx, key)
	return nil, false
}

func (m *Model[T]) remember(ctx context.Context, id any, row map[string]any) {
	if !m.cacheable(ctx) {
		return
	}
	key := CacheKey{Table: m.schema.Table, ID: id}.String()
	b, err := encodeRow(row)
	if err == nil {
		err = m.client.cache.Set(ctx, key, b)
	}
	if err != nil {
		m.client.log.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
}

// forget drops the cached row of id. Inside a transaction the row is
// dropped again after commit, since reads outside the transaction may
// cache the old row in between.
func (m *Model[T]) forget(ctx context.Context, id any) {
	if m.client.cache == nil {
		return
	}
	key := CacheKey{Table: m.schema.Table, ID: id}.String()
	m.drop(ctx, key)
	if tx := TxFromContext(ctx); tx != nil {
		ctx := context.WithoutCancel(ctx)
		tx.afterCommit(func() { m.drop(ctx, key) })
	}
}

func (m *Model[T]) drop(ctx context.Context, key string) {
	if err := m.client.cache.Delete(ctx, key); err != nil {
		m.client.log.WarnContext(ctx, "cache delete failed", "key", key, "error", err)
	}
}
