// Package docstore wraps the CN region's document database: JSON
// documents kept in a hash per collection, ordered by a companion
// sorted set scored with the document creation time.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nicepick/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ScanCap bounds the full-scan search fallback. Search beyond this many
// candidate documents is degraded, never attempted.
const ScanCap = 5000

// listChunkSize is the page size used when walking the index
const listChunkSize = 500

// Client is a connection to the CN document store
type Client struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// ClientOption is a functional option for Client
type ClientOption func(*Client)

// WithLogger sets a custom logger for the client
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a document store client and verifies connectivity
func New(cfg config.RegionCNConfig, opts ...ClientOption) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.SecretID,
		Password: cfg.SecretKey,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	c := &Client{rdb: rdb, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewWithRedis wraps an existing redis client (testing)
func NewWithRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb, logger: zap.NewNop()}
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Collection is a named set of documents
type Collection struct {
	c    *Client
	name string
}

// Collection returns a handle for the named collection
func (c *Client) Collection(name string) Collection {
	return Collection{c: c, name: name}
}

func (col Collection) dataKey() string  { return "doc:" + col.name }
func (col Collection) indexKey() string { return "doc:" + col.name + ":idx" }

// Count returns the number of documents in the collection
func (col Collection) Count(ctx context.Context) (int64, error) {
	n, err := col.c.rdb.ZCard(ctx, col.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", col.name, err)
	}
	return n, nil
}

// List returns up to limit documents starting at skip, newest first.
func (col Collection) List(ctx context.Context, skip, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := col.c.rdb.ZRevRange(ctx, col.indexKey(), int64(skip), int64(skip+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", col.name, err)
	}
	return col.fetchDocs(ctx, ids)
}

// Get returns one document by id, or nil when absent
func (col Collection) Get(ctx context.Context, id string) (map[string]any, error) {
	raw, err := col.c.rdb.HGet(ctx, col.dataKey(), id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", col.name, id, err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", col.name, id, err)
	}
	return doc, nil
}

// Insert stores a document and indexes it by creation time
func (col Collection) Insert(ctx context.Context, id string, doc any, createdAt time.Time) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", col.name, id, err)
	}
	pipe := col.c.rdb.TxPipeline()
	pipe.HSet(ctx, col.dataKey(), id, raw)
	pipe.ZAdd(ctx, col.indexKey(), redis.Z{Score: float64(createdAt.UnixMilli()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert %s/%s: %w", col.name, id, err)
	}
	return nil
}

// Update merges fields into an existing document
func (col Collection) Update(ctx context.Context, id string, fields map[string]any) error {
	doc, err := col.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("update %s/%s: document not found", col.name, id)
	}
	for k, v := range fields {
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", col.name, id, err)
	}
	if err := col.c.rdb.HSet(ctx, col.dataKey(), id, raw).Err(); err != nil {
		return fmt.Errorf("update %s/%s: %w", col.name, id, err)
	}
	return nil
}

// Delete removes a document and its index entry
func (col Collection) Delete(ctx context.Context, id string) error {
	pipe := col.c.rdb.TxPipeline()
	pipe.HDel(ctx, col.dataKey(), id)
	pipe.ZRem(ctx, col.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", col.name, id, err)
	}
	return nil
}

// Scan returns the newest documents up to the given cap, for the
// client-side search/filter fallback.
func (col Collection) Scan(ctx context.Context, max int) ([]map[string]any, error) {
	if max <= 0 || max > ScanCap {
		max = ScanCap
	}
	return col.List(ctx, 0, max)
}

func (col Collection) fetchDocs(ctx context.Context, ids []string) ([]map[string]any, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	fields := make([]string, len(ids))
	copy(fields, ids)
	raws, err := col.c.rdb.HMGet(ctx, col.dataKey(), fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch %s docs: %w", col.name, err)
	}
	docs := make([]map[string]any, 0, len(raws))
	for i, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			// Index entry without a document; skip rather than fail.
			col.c.logger.Warn("dangling index entry",
				zap.String("collection", col.name),
				zap.String("id", ids[i]),
			)
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			col.c.logger.Warn("undecodable document",
				zap.String("collection", col.name),
				zap.String("id", ids[i]),
				zap.Error(err),
			)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
