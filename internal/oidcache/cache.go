// Package oidcache resolves a single extension-assigned catalog OID (such
// as hstore's) once per connection pool and remembers the result, since an
// extension's OID cannot change for the lifetime of the pool that resolved
// it.
package oidcache

import "sync"

// Cache guards one lazily-resolved uint32 value, shared across the
// partitions of a single Source.
type Cache struct {
	once sync.Once
	oid  uint32
	err  error
}

func New() *Cache {
	return &Cache{}
}

// Resolve runs resolve on the first call and caches its result, value and
// error alike, returning the cached pair on every subsequent call.
func (c *Cache) Resolve(resolve func() (uint32, error)) (uint32, error) {
	c.once.Do(func() {
		c.oid, c.err = resolve()
	})
	return c.oid, c.err
}
