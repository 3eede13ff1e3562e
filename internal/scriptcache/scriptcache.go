// Package scriptcache memoizes parsed script files so the `source`
// built-in (SPEC_FULL.md §4) doesn't re-parse an unchanged file every
// time it's sourced within one process. Keyed by absolute path plus
// mtime, backed by github.com/hashicorp/golang-lru/v2.
package scriptcache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alush-lang/alush/syntax"
)

type key struct {
	path  string
	mtime int64
}

// Cache is a bounded path+mtime -> parsed-commands memo.
type Cache struct {
	lru *lru.Cache[key, *syntax.Commands]
}

// New returns a Cache holding up to size parsed files.
func New(size int) (*Cache, error) {
	c, err := lru.New[key, *syntax.Commands](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns the cached parse of path at the given mtime, if present.
func (c *Cache) Get(path string, mtime int64) (*syntax.Commands, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key{path: path, mtime: mtime})
}

// Put memoizes cmds as path's parse result at the given mtime.
func (c *Cache) Put(path string, mtime int64, cmds *syntax.Commands) {
	if c == nil {
		return
	}
	c.lru.Add(key{path: path, mtime: mtime}, cmds)
}
