package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always return miss")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}

	if err := c.Set(ctx, "catalog", []byte(`["KEGG_2021_Human"]`), time.Hour); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	data, hit, err := c.Get(ctx, "catalog")
	if err != nil || !hit {
		t.Fatalf("Get() = %v, %v; want hit", hit, err)
	}
	if string(data) != `["KEGG_2021_Human"]` {
		t.Errorf("Get() data = %s", data)
	}

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("Get(missing) reported hit")
	}
}

func TestFileCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "key", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "key"); !hit {
		t.Fatal("fresh entry missed")
	}

	time.Sleep(20 * time.Millisecond)

	if _, hit, err := c.Get(ctx, "key"); hit || err != nil {
		t.Errorf("Get(expired) = %v, %v; want miss", hit, err)
	}
	if _, err := os.Stat(c.path("key")); !os.IsNotExist(err) {
		t.Error("expired entry not removed")
	}
}

func TestFileCache_NoTTL(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	c.Set(ctx, "key", []byte("v"), 0)
	if _, hit, _ := c.Get(ctx, "key"); !hit {
		t.Error("entry without TTL should not expire")
	}
}

func TestFileCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	path := c.path("key")
	os.MkdirAll(filepath.Dir(path), 0o755)
	os.WriteFile(path, []byte("not json"), 0o644)

	if _, hit, err := c.Get(ctx, "key"); hit || err != nil {
		t.Errorf("Get(corrupt) = %v, %v; want miss", hit, err)
	}
}

func TestFileCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}

	for _, k := range []string{"a", "b", "c"} {
		c.Set(ctx, k, []byte(k), time.Hour)
	}
	c.Delete(ctx, "a")
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("deleted key still present")
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear() removed %d, want 2", n)
	}
	if _, hit, _ := c.Get(ctx, "b"); hit {
		t.Error("Clear() left entries behind")
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Error("Clear() removed the cache directory")
	}
}

func TestDefaultDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := DefaultDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg", "goenrichr") {
		t.Errorf("DefaultDir() = %s", dir)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestCatalogKey(t *testing.T) {
	a := CatalogKey("https://maayanlab.cloud/Enrichr")
	b := CatalogKey("http://127.0.0.1:8080")
	if a == b {
		t.Error("different servers should have different catalog keys")
	}
	if a[:8] != "catalog:" {
		t.Errorf("CatalogKey() = %s, want catalog: prefix", a)
	}
}

func TestNewRedisCacheInvalidURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "not-a-url://", "goenrichr:"); err == nil {
		t.Error("expected error for invalid redis url")
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisCacheFromClient(client, "goenrichr:")
	defer c.Close()

	ctx := context.Background()
	if _, ok, err := c.Get(ctx, "k"); err == nil || ok {
		t.Errorf("Get() = ok %v, err %v; want connection error", ok, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err == nil {
		t.Error("Set() should fail without a server")
	}
}
