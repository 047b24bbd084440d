package session_test

import (
	"bytes"
	"testing"

	"github.com/postarhq/postar/session"
)

func TestPosterCachePutGet(t *testing.T) {
	cache := session.NewPosterCache()

	cache.Put(0, []byte("front"))
	cache.Put(1, []byte("back"))

	data, ok := cache.Get(0)
	if !ok || !bytes.Equal(data, []byte("front")) {
		t.Fatalf("Get(0) = %q, %v", data, ok)
	}
	if !cache.Has(1) {
		t.Fatal("Has(1) = false")
	}
	if cache.Has(2) {
		t.Fatal("Has(2) = true for an empty slot")
	}
	if cache.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cache.Len())
	}
}

func TestPosterCacheCopiesOnPut(t *testing.T) {
	cache := session.NewPosterCache()

	original := []byte("poster")
	cache.Put(0, original)
	original[0] = 'X'

	data, _ := cache.Get(0)
	if !bytes.Equal(data, []byte("poster")) {
		t.Fatal("cache shares memory with the caller's slice")
	}
}

func TestPosterCacheRekey(t *testing.T) {
	cache := session.NewPosterCache()
	cache.Put(0, []byte("a"))
	cache.Put(1, []byte("b"))
	cache.Put(2, []byte("c"))

	// Index 1 was removed: 0 stays, 2 slides down to 1.
	cache.Rekey(map[int]int{0: 0, 2: 1})

	if data, ok := cache.Get(0); !ok || !bytes.Equal(data, []byte("a")) {
		t.Fatalf("Get(0) = %q, %v after rekey", data, ok)
	}
	if data, ok := cache.Get(1); !ok || !bytes.Equal(data, []byte("c")) {
		t.Fatalf("Get(1) = %q, %v after rekey", data, ok)
	}
	if cache.Has(2) {
		t.Fatal("unmapped index survived the rekey")
	}
	if cache.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cache.Len())
	}
}

func TestPosterCacheClear(t *testing.T) {
	cache := session.NewPosterCache()
	cache.Put(0, []byte("a"))
	cache.Clear()

	if cache.Len() != 0 || cache.Has(0) {
		t.Fatal("Clear left entries behind")
	}
}
