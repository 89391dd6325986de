package expr

import "sync"

// Cache interns expressions by their canonical textual form so that
// syntactically equal expressions share a single node. Two interned
// expressions are syntactically equal iff they are the same pointer.
//
// The cache is append-only and safe for concurrent use, although the
// analysis itself drives it from a single goroutine.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Expr
	hits    int
	misses  int
}

// NewCache creates an empty expression cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Expr)}
}

// Intern returns the canonical node for e. Binary and unary nodes are
// rebuilt bottom-up from interned operands; leaves are interned directly.
func (c *Cache) Intern(e Expr) Expr {
	if e == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intern(e)
}

func (c *Cache) intern(e Expr) Expr {
	switch x := e.(type) {
	case *Binary:
		l := c.intern(x.Left)
		r := c.intern(x.Right)
		key := "(" + l.String() + " " + x.Op.String() + " " + r.String() + ")"
		if cached, ok := c.lookup(key); ok {
			return cached
		}
		node := &Binary{Op: x.Op, Left: l, Right: r}
		c.entries[key] = node
		return node
	case *Unary:
		o := c.intern(x.Operand)
		key := "(" + x.Op.String() + o.String() + ")"
		if cached, ok := c.lookup(key); ok {
			return cached
		}
		node := &Unary{Op: x.Op, Operand: o}
		c.entries[key] = node
		return node
	default:
		key := e.String()
		if cached, ok := c.lookup(key); ok {
			return cached
		}
		c.entries[key] = e
		return e
	}
}

func (c *Cache) lookup(key string) (Expr, bool) {
	cached, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return cached, ok
}

// Len returns the number of interned nodes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// HitRate returns the fraction of lookups answered from the cache.
func (c *Cache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}
