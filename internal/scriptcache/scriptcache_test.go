package scriptcache

import (
	"testing"

	"github.com/alush-lang/alush/syntax"
)

func TestGetMissOnUnknownPath(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.Get("/nope", 1); ok {
		t.Fatalf("expected a miss on an empty cache")
	}
}

func TestPutThenGetHits(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cmds := &syntax.Commands{List: []syntax.Command{{Exprs: []syntax.Expr{syntax.Str("val"), syntax.Str("1")}}}}
	c.Put("/a", 100, cmds)
	got, ok := c.Get("/a", 100)
	if !ok || got != cmds {
		t.Fatalf("got %v, %v; want the exact stored pointer", got, ok)
	}
}

func TestDifferentMtimeIsAMiss(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cmds := &syntax.Commands{}
	c.Put("/a", 100, cmds)
	if _, ok := c.Get("/a", 200); ok {
		t.Fatalf("expected a miss: file's mtime changed since the cached parse")
	}
}

func TestNilCacheIsANoOpMiss(t *testing.T) {
	var c *Cache
	if _, ok := c.Get("/a", 1); ok {
		t.Fatalf("expected a nil *Cache to always miss")
	}
	c.Put("/a", 1, &syntax.Commands{})
}
