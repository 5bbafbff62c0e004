// Package embedcache memoizes embeddings in Redis so re-imports and repeated
// queries do not pay for the provider twice.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"raggedbooks/internal/contextutil"
	"raggedbooks/internal/llm"
)

const keyPrefix = "raggedbooks:embedding:"

// Backend is the subset of the Redis client the cache uses.
type Backend interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cache is an llm.Embedder that serves known texts from Redis and forwards
// the rest to next in one batch. Redis failures degrade to cache misses.
type Cache struct {
	next    llm.Embedder
	backend Backend
	model   string
	ttl     time.Duration
}

var _ llm.Embedder = (*Cache)(nil)

// New wraps next. Keys include model so that switching models never serves
// stale vectors. A zero ttl keeps entries forever.
func New(next llm.Embedder, backend Backend, model string, ttl time.Duration) *Cache {
	return &Cache{next: next, backend: backend, model: model, ttl: ttl}
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// EmbedTexts implements llm.Embedder.
func (c *Cache) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return c.next.EmbedTexts(ctx, texts)
	}
	logger := contextutil.LoggerFromContext(ctx)

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	out := make([][]float32, len(texts))
	cached, err := c.backend.MGet(ctx, keys...).Result()
	if err != nil {
		logger.WarnContext(ctx, "embedding cache unavailable", "error", err)
		cached = nil
	}
	for i, v := range cached {
		if i >= len(out) {
			break
		}
		if s, ok := v.(string); ok {
			if vec, ok := decode(s); ok {
				out[i] = vec
			}
		}
	}

	var missTexts []string
	var missIdx []int
	for i, vec := range out {
		if vec == nil {
			missTexts = append(missTexts, texts[i])
			missIdx = append(missIdx, i)
		}
	}
	logger.DebugContext(ctx, "embedding cache lookup", "texts", len(texts), "misses", len(missTexts))
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.next.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(missTexts), len(fresh))
	}

	for j, i := range missIdx {
		out[i] = fresh[j]
		if err := c.backend.Set(ctx, keys[i], encode(fresh[j]), c.ttl).Err(); err != nil {
			logger.WarnContext(ctx, "failed to store embedding in cache", "error", err)
		}
	}
	return out, nil
}

func (c *Cache) key(text string) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func encode(vec []float32) string {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return string(buf)
}

func decode(s string) ([]float32, bool) {
	if len(s) == 0 || len(s)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(s)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[4*i : 4*i+4])))
	}
	return vec, true
}
