package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/lumify/internal/model"
)

func TestPopularKey(t *testing.T) {
	a := PopularKey("app-1")
	b := PopularKey("app-2")

	if !strings.HasPrefix(a, "lumify:popular:v1:") {
		t.Errorf("unexpected key prefix: %s", a)
	}
	if len(a) != len("lumify:popular:v1:")+64 {
		t.Errorf("expected hex sha256 suffix, got %s", a)
	}
	if a == b {
		t.Error("different apps must not share a key")
	}
	if a != PopularKey("app-1") {
		t.Error("key must be deterministic")
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyDisk, false},
		{"disk", StrategyDisk, false},
		{"localStorage", StrategyDisk, false},
		{"memory", StrategyMemory, false},
		{"sessionStorage", StrategyMemory, false},
		{"LAYERED", StrategyLayered, false},
		{"none", StrategyNone, false},
		{"redis", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	cfg := model.CacheConfig{Dir: t.TempDir(), MemoryTTL: time.Minute}

	tests := []struct {
		strategy string
		check    func(Cache) bool
	}{
		{"disk", func(c Cache) bool { _, ok := c.(*DiskCache); return ok }},
		{"sessionStorage", func(c Cache) bool { _, ok := c.(*MemoryCache); return ok }},
		{"layered", func(c Cache) bool { _, ok := c.(*LayeredCache); return ok }},
		{"none", func(c Cache) bool { _, ok := c.(NopCache); return ok }},
	}
	for _, tt := range tests {
		c, err := New(tt.strategy, cfg, time.Hour)
		if err != nil {
			t.Fatalf("New(%q): %v", tt.strategy, err)
		}
		if !tt.check(c) {
			t.Errorf("New(%q) returned %T", tt.strategy, c)
		}
	}

	if _, err := New("bogus", cfg, time.Hour); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)

	value := []byte("hello")
	if err := c.Set("k", value, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	value[0] = 'J'

	got, ok := c.Get("k")
	if !ok || string(got) != "hello" {
		t.Fatalf("expected stored copy, got %q (%v)", got, ok)
	}

	if err := c.Set("short", []byte("x"), 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("expected entry to expire")
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to be deleted")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := PopularKey("app")

	if err := c.Set(key, []byte(`["a","b"]`), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, exp, ok := c.GetWithExpiration(key)
	if !ok || string(got) != `["a","b"]` {
		t.Fatalf("unexpected get: %q %v", got, ok)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("expected default ttl, expiry in %v", time.Until(exp))
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*"))
	if len(files) != 1 || strings.Contains(filepath.Base(files[0]), ":") {
		t.Errorf("expected one portable cache file, got %v", files)
	}

	// Survives a new instance over the same directory
	if _, ok := NewDiskCache(dir, time.Hour).Get(key); !ok {
		t.Error("expected entry to persist")
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("deleting a missing entry should not fail: %v", err)
	}
}

func TestDiskCache_Expired(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := c.Set("k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expected expired file to be removed")
	}
}

func TestDiskCache_Corrupt(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("expected corrupt entry to miss")
	}
}

func TestDiskCache_ClearKeepsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)

	other := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(other, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected entries to be cleared")
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}

	if err := NewDiskCache(filepath.Join(dir, "missing"), time.Hour).Clear(); err != nil {
		t.Errorf("clearing a missing dir should not fail: %v", err)
	}
}

func TestLayeredCache(t *testing.T) {
	memory := NewMemoryCache(time.Hour, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Hour)
	c := NewLayeredCache(memory, disk)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok := memory.Get("k"); !ok {
		t.Error("expected memory layer to be written")
	}
	if _, ok := disk.Get("k"); !ok {
		t.Error("expected disk layer to be written")
	}

	// Disk hit promotes to memory with the remaining lifetime
	_ = memory.Clear()
	if err := disk.Set("p", []byte("disk"), 20*time.Minute); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get("p")
	if !ok || string(got) != "disk" {
		t.Fatalf("expected disk hit, got %q %v", got, ok)
	}
	_, exp, ok := memory.GetWithExpiration("p")
	if !ok {
		t.Fatal("expected promotion to memory")
	}
	if remaining := time.Until(exp); remaining > 20*time.Minute || remaining < 19*time.Minute {
		t.Errorf("promoted ttl should follow disk expiry, got %v", remaining)
	}

	if err := c.Delete("p"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := c.Get("p"); ok {
		t.Error("expected entry deleted from both layers")
	}

	_ = c.Set("x", []byte("1"), 0)
	if err := c.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := c.Get("x"); ok {
		t.Error("expected clear on both layers")
	}
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	_ = c.Set("k", []byte("v"), time.Hour)
	if _, ok := c.Get("k"); ok {
		t.Error("nop cache must never hit")
	}
}
