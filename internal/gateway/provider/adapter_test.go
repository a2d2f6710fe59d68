package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIImagesAdapterGenerate(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"url":"https://cdn.example.com/1.png"}]}`))
	}))
	defer srv.Close()

	a := NewOpenAIImagesAdapter("dalle", true, srv.URL, "sk-test", "gpt-image-1", nil, 5*time.Second, 0)
	result, err := a.Generate(context.Background(), Request{Prompt: "一只猫", Size: "2048x2048"})
	require.NoError(t, err)
	require.Len(t, result.Images, 1)
	assert.Equal(t, "https://cdn.example.com/1.png", result.Images[0].URL)
	assert.Zero(t, result.Images[0].GroupSize)
	assert.Equal(t, "一只猫", captured["prompt"])
	assert.Equal(t, "2048x2048", captured["size"])
}

func TestOpenAIImagesAdapterB64Fallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[{"b64_json":"aGVsbG8="}]}`))
	}))
	defer srv.Close()

	a := NewOpenAIImagesAdapter("dalle", true, srv.URL, "", "m", nil, 5*time.Second, 0)
	result, err := a.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", result.Images[0].URL)
}

func TestOpenAIImagesAdapterEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	a := NewOpenAIImagesAdapter("dalle", true, srv.URL, "", "m", nil, 5*time.Second, 0)
	_, err := a.Generate(context.Background(), Request{Prompt: "p"})
	assert.Error(t, err)
}

func TestSeedreamAdapterBurst(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"data":[{"url":"u1"},{"url":"u2"},{"url":"u3"}]}`))
	}))
	defer srv.Close()

	a := NewSeedreamAdapter("seedream", true, srv.URL, "key", "seedream-4", nil, 5*time.Second, 0)
	result, err := a.Generate(context.Background(), Request{
		Prompt:     "p",
		References: []string{"data:image/png;base64,cmVm"},
		Variations: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "auto", captured["sequential_image_generation"])
	assert.Equal(t, "data:image/png;base64,cmVm", captured["image"], "单参考图传字符串")
	require.Len(t, result.Images, 3)
	for i, img := range result.Images {
		assert.Equal(t, i, img.SequenceIndex)
		assert.Equal(t, 3, img.GroupSize)
	}
}

func TestSeedreamAdapterTruncatesOverDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[{"url":"u1"},{"url":"u2"},{"url":"u3"},{"url":"u4"}]}`))
	}))
	defer srv.Close()

	a := NewSeedreamAdapter("seedream", true, srv.URL, "", "m", nil, 5*time.Second, 0)
	result, err := a.Generate(context.Background(), Request{Prompt: "p", Variations: 2})
	require.NoError(t, err)
	assert.Len(t, result.Images, 2, "超发截断到请求张数")
}

func TestSeedreamAdapterSingleImageNoGroup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[{"url":"u1"}]}`))
	}))
	defer srv.Close()

	a := NewSeedreamAdapter("seedream", true, srv.URL, "", "m", nil, 5*time.Second, 0)
	result, err := a.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Zero(t, result.Images[0].GroupSize, "单图不算组图")
}

func TestHTTPDoerRetriesOn429(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := newHTTPDoer("", nil, 5*time.Second, 2)
	data, err := d.postJSON(context.Background(), srv.URL, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestHTTPDoerNoRetryOn400(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad prompt"}}`))
	}))
	defer srv.Close()

	d := newHTTPDoer("", nil, 5*time.Second, 3)
	_, err := d.postJSON(context.Background(), srv.URL, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad prompt")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "4xx 不重试")
}

func TestRegistryReplaceAndGet(t *testing.T) {
	a := &stubAdapter{id: "a", enabled: true}
	b := &stubAdapter{id: "b", enabled: false}
	reg := NewRegistry(a, b)

	got, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID())

	_, ok = reg.Get("b")
	assert.False(t, ok, "未启用的适配器取不到")
	_, ok = reg.Get("ghost")
	assert.False(t, ok)

	assert.Equal(t, []string{"a"}, reg.IDs())

	reg.Replace([]Adapter{&stubAdapter{id: "c", enabled: true}})
	_, ok = reg.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"c"}, reg.IDs())
}

type stubAdapter struct {
	id      string
	enabled bool
}

func (s *stubAdapter) ID() string          { return s.id }
func (s *stubAdapter) Enabled() bool       { return s.enabled }
func (s *stubAdapter) SupportsBurst() bool { return false }
func (s *stubAdapter) Generate(context.Context, Request) (Result, error) {
	return Result{}, nil
}
