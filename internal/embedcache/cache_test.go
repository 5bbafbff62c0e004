package embedcache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/mock/gomock"

	llm_mocks "raggedbooks/internal/llm/mocks"
)

// mapBackend is an in-memory Backend.
type mapBackend struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failGet bool
}

func newMapBackend() *mapBackend {
	return &mapBackend{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (b *mapBackend) MGet(_ context.Context, keys ...string) *redis.SliceCmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failGet {
		return redis.NewSliceResult(nil, errors.New("connection refused"))
	}
	vals := make([]any, len(keys))
	for i, k := range keys {
		if v, ok := b.data[k]; ok {
			vals[i] = v
		}
	}
	return redis.NewSliceResult(vals, nil)
}

func (b *mapBackend) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value.(string)
	b.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestCache_EmbedTexts(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	next := llm_mocks.NewMockEmbedder(ctrl)
	backend := newMapBackend()
	cache := New(next, backend, "nomic-embed-text", time.Hour)

	next.EXPECT().EmbedTexts(gomock.Any(), []string{"alpha", "beta"}).
		Return([][]float32{{1, 2}, {3, 4}}, nil)
	got, err := cache.EmbedTexts(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if !reflect.DeepEqual(got, [][]float32{{1, 2}, {3, 4}}) {
		t.Errorf("EmbedTexts() = %v", got)
	}
	if len(backend.data) != 2 {
		t.Errorf("cache holds %d entries, want 2", len(backend.data))
	}
	for _, ttl := range backend.ttls {
		if ttl != time.Hour {
			t.Errorf("ttl = %v, want 1h", ttl)
		}
	}

	// Only the miss reaches the provider and order is preserved.
	next.EXPECT().EmbedTexts(gomock.Any(), []string{"gamma"}).
		Return([][]float32{{5, 6}}, nil)
	got, err = cache.EmbedTexts(ctx, []string{"beta", "gamma", "alpha"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if !reflect.DeepEqual(got, [][]float32{{3, 4}, {5, 6}, {1, 2}}) {
		t.Errorf("EmbedTexts() = %v", got)
	}

	// All hits: no provider call.
	if _, err := cache.EmbedTexts(ctx, []string{"alpha", "gamma"}); err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
}

func TestCache_KeysIncludeModel(t *testing.T) {
	a := New(nil, nil, "model-a", 0)
	b := New(nil, nil, "model-b", 0)
	if a.key("text") == b.key("text") {
		t.Error("keys for different models should differ")
	}
	if a.key("text") != a.key("text") {
		t.Error("keys should be deterministic")
	}
}

func TestCache_Degrades(t *testing.T) {
	ctx := context.Background()

	t.Run("backend down", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := llm_mocks.NewMockEmbedder(ctrl)
		backend := newMapBackend()
		backend.failGet = true
		next.EXPECT().EmbedTexts(gomock.Any(), []string{"alpha"}).Return([][]float32{{1}}, nil)

		got, err := New(next, backend, "m", 0).EmbedTexts(ctx, []string{"alpha"})
		if err != nil || !reflect.DeepEqual(got, [][]float32{{1}}) {
			t.Errorf("EmbedTexts() = %v, %v", got, err)
		}
	})

	t.Run("corrupt entry", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := llm_mocks.NewMockEmbedder(ctrl)
		backend := newMapBackend()
		cache := New(next, backend, "m", 0)
		backend.data[cache.key("alpha")] = "xyz"
		next.EXPECT().EmbedTexts(gomock.Any(), []string{"alpha"}).Return([][]float32{{7, 8}}, nil)

		got, err := cache.EmbedTexts(ctx, []string{"alpha"})
		if err != nil || !reflect.DeepEqual(got, [][]float32{{7, 8}}) {
			t.Errorf("EmbedTexts() = %v, %v", got, err)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		next := llm_mocks.NewMockEmbedder(ctrl)
		want := errors.New("quota exceeded")
		next.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, want)

		if _, err := New(next, newMapBackend(), "m", 0).EmbedTexts(ctx, []string{"alpha"}); !errors.Is(err, want) {
			t.Errorf("EmbedTexts() error = %v, want %v", err, want)
		}
	})
}

func TestEncodeDecode(t *testing.T) {
	vec := []float32{0, -1.5, 3.25, 1e-7}
	got, ok := decode(encode(vec))
	if !ok || !reflect.DeepEqual(got, vec) {
		t.Errorf("decode(encode()) = %v, %v", got, ok)
	}
	if _, ok := decode("abc"); ok {
		t.Error("decode() should reject truncated data")
	}
}
