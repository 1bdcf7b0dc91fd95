package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/codecritic/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("ab", "c")
	b := Key("a", "bc")
	if a == b {
		t.Error("length-prefixed parts should not collide")
	}
	if !strings.HasPrefix(a, "codecritic:v1:") {
		t.Errorf("missing namespace prefix: %s", a)
	}
	if Key("x") != Key("x") {
		t.Error("Key must be deterministic")
	}
}

func TestDispatchKey(t *testing.T) {
	base := DispatchKey("pro", "flash", 0.2, 8192, "prompt")
	variants := []string{
		DispatchKey("flash", "pro", 0.2, 8192, "prompt"),
		DispatchKey("pro", "flash", 0.3, 8192, "prompt"),
		DispatchKey("pro", "flash", 0.2, 4096, "prompt"),
		DispatchKey("pro", "flash", 0.2, 8192, "prompt2"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d should change the key", i)
		}
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}
	_ = c.Set("k", []byte("v"), 0)
	if got, ok := c.Get("k"); !ok || string(got) != "v" {
		t.Errorf("Get = %q, %v", got, ok)
	}
	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("x")

	if err := c.Set(key, []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, ok := c.Get(key); !ok || string(got) != "payload" {
		t.Errorf("Get = %q, %v", got, ok)
	}

	path := c.path(key)
	if rel, _ := filepath.Rel(dir, path); strings.Contains(rel, ":") || strings.Count(filepath.ToSlash(rel), "/") != 1 {
		t.Errorf("entry should live in one shard directory with a portable name: %s", rel)
	}

	if err := c.Set(key, []byte("stale"), -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}

	if err := c.Delete(key); err != nil {
		t.Errorf("deleting a missing entry should not fail: %v", err)
	}
}

func TestDiskCache_StoresResultsAsReadableJSON(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	key := Key("result")
	payload := []byte(`{"raw_text":"verdict","model_used":"pro"}`)

	if err := c.Set(key, payload, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if !strings.Contains(string(data), `"raw_text": "verdict"`) {
		t.Errorf("result should be stored inline, got:\n%s", data)
	}
	if got, ok := c.Get(key); !ok || !json.Valid(got) {
		t.Errorf("Get = %q, %v", got, ok)
	}
}

func TestDiskCache_RejectsForeignEntry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	key := Key("mine")
	if err := c.Set(key, []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	// Another key's entry copied over this key's file must not be served
	other := NewDiskCache(t.TempDir(), time.Hour)
	if err := other.Set(Key("theirs"), []byte("w"), 0); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(other.path(Key("theirs")))
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("entry written for a different key should miss")
	}
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	value := []byte("abc")
	_ = c.Set("k", value, 0)
	value[0] = 'x'

	got, _ := c.Get("k")
	if string(got) != "abc" {
		t.Errorf("Set must copy, got %q", got)
	}
	got[1] = 'y'
	if again, _ := c.Get("k"); string(again) != "abc" {
		t.Errorf("Get must copy, got %q", again)
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Hour)

	// Simulate a previous process that only left the disk entry
	_ = NewDiskCache(dir, time.Hour).Set("k", []byte("v"), 0)

	if got, ok := c.Get("k"); !ok || string(got) != "v" {
		t.Fatalf("expected disk hit, got %q, %v", got, ok)
	}
	if got, ok := c.memory.Get("k"); !ok || string(got) != "v" {
		t.Error("disk hit should be promoted to memory")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after clear")
	}
}

func TestResultCache(t *testing.T) {
	rc := NewResultCache(NewMemoryCache(time.Minute, time.Minute), 0)
	want := model.DispatchResult{
		RawText:   "analysis",
		ModelUsed: "gemini-2.5-pro",
		Usage:     model.Usage{PromptTokens: 1, OutputTokens: 2, TotalTokens: 3},
	}

	if err := rc.Put("k", want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := rc.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	backend := NewMemoryCache(time.Minute, time.Minute)
	_ = backend.Set("bad", []byte("not json"), 0)
	if _, ok := NewResultCache(backend, 0).Get("bad"); ok {
		t.Error("undecodable entry should be a miss")
	}
}

func TestFromConfig(t *testing.T) {
	if FromConfig(model.CacheConfig{Enabled: false}) != nil {
		t.Error("disabled cache should be nil")
	}
	if FromConfig(model.CacheConfig{Enabled: true, MemoryTTL: time.Minute}) == nil {
		t.Error("memory-only cache expected")
	}
	if FromConfig(model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute, DiskTTL: time.Hour}) == nil {
		t.Error("layered cache expected")
	}
}
