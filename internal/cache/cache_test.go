package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	a := Key("embedding", "hash-384", "hello")
	b := Key("embedding", "hash-384", "hello")
	if a != b {
		t.Errorf("expected stable keys, got %s and %s", a, b)
	}
	if !strings.HasPrefix(a, "qna:v1:embedding:") {
		t.Errorf("unexpected prefix: %s", a)
	}
	// Part boundaries must matter
	if Key("embedding", "ab", "c") == Key("embedding", "a", "bc") {
		t.Error("expected different keys for different part boundaries")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("expected miss for unknown key")
	}

	_ = c.Set("k", []byte("v"), 0)
	val, found := c.Get("k")
	if !found || string(val) != "v" {
		t.Errorf("expected hit with v, got %q (found=%v)", val, found)
	}

	_ = c.Set("short", []byte("x"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, found := c.Get("short"); found {
		t.Error("expected expired entry to miss")
	}

	_ = c.Delete("k")
	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after clear, got %d items", c.Len())
	}
}

func TestDiskCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewDiskCache(dir, time.Hour)
	key := Key("test", "value")

	if err := c.Set(key, []byte{1, 2, 3}, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, found := c.Get(key)
	if !found || !bytes.Equal(val, []byte{1, 2, 3}) {
		t.Errorf("expected stored bytes, got %v (found=%v)", val, found)
	}

	// A second instance sees the same entry
	if _, found := NewDiskCache(dir, time.Hour).Get(key); !found {
		t.Error("expected entry to persist across instances")
	}

	if err := c.Set("expired", []byte("x"), -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, found := c.Get("expired"); found {
		t.Error("expected expired entry to miss")
	}

	if err := c.Delete(key); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Delete of a missing key should not fail: %v", err)
	}

	if err := c.Clear(); err != nil {
		t.Errorf("Clear failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("expected cache dir removed after clear")
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	if err := os.WriteFile(c.path("bad"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, found := c.Get("bad"); found {
		t.Error("expected corrupt entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	first := NewLayeredCache(time.Minute, dir, time.Hour)
	if err := first.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Fresh memory layer, same disk
	second := NewLayeredCache(time.Minute, dir, time.Hour)
	if _, found := second.memory.Get("k"); found {
		t.Fatal("memory layer should start empty")
	}
	val, found := second.Get("k")
	if !found || string(val) != "v" {
		t.Fatalf("expected disk hit, got %q (found=%v)", val, found)
	}
	if _, found := second.memory.Get("k"); !found {
		t.Error("expected disk hit promoted to memory")
	}

	if err := second.Clear(); err != nil {
		t.Errorf("Clear failed: %v", err)
	}
	if _, found := second.Get("k"); found {
		t.Error("expected miss after clear")
	}
}
