package sentiment

import (
	"fmt"
	"strings"
	"testing"
)

func TestResultCache_KeyNormalization(t *testing.T) {
	c := NewResultCache(10)
	c.Put("  Hello There ", 0.4)

	if v, ok := c.Get("hello there"); !ok || v != 0.4 {
		t.Errorf("Get = %v, %v; want 0.4, true", v, ok)
	}

	long := strings.Repeat("a", 150)
	c.Put(long, 0.1)
	if _, ok := c.Get(strings.Repeat("a", 100) + "different tail"); !ok {
		t.Error("texts sharing the first 100 runes should share a key")
	}
}

func TestResultCache_EvictsToEightyPercent(t *testing.T) {
	c := NewResultCache(10)
	for i := 0; i < 10; i++ {
		c.Put(fmt.Sprintf("line %d", i), float64(i))
	}
	if c.Len() != 10 {
		t.Fatalf("Len = %d, want 10", c.Len())
	}

	c.Put("line 10", 10)
	if c.Len() != 9 {
		t.Fatalf("Len after eviction = %d, want 9 (8 kept + 1 new)", c.Len())
	}
	for i := 0; i < 2; i++ {
		if _, ok := c.Get(fmt.Sprintf("line %d", i)); ok {
			t.Errorf("line %d should have been evicted", i)
		}
	}
	for i := 2; i <= 10; i++ {
		if _, ok := c.Get(fmt.Sprintf("line %d", i)); !ok {
			t.Errorf("line %d missing", i)
		}
	}

	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len after Reset = %d", c.Len())
	}
}
