package session

import (
	"sync"

	"github.com/jmoiron/sqlx"
)

// cachedStmt is a statement shared through the session cache. It is closed
// once it has been evicted and the last execution using it has finished.
type cachedStmt struct {
	stmt *sqlx.Stmt

	mu      sync.Mutex
	refs    int
	evicted bool
}

// acquire takes a reference, or reports false when the statement has already
// left the cache.
func (c *cachedStmt) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.evicted {
		return false
	}
	c.refs++

	return true
}

// release drops a reference and closes the statement when it was the last
// one of an evicted statement.
func (c *cachedStmt) release() error {
	c.mu.Lock()
	c.refs--
	closeNow := c.evicted && c.refs == 0
	c.mu.Unlock()

	if closeNow {
		return c.stmt.Close()
	}

	return nil
}

// evict marks the statement as gone from the cache and closes it unless an
// execution still holds it.
func (c *cachedStmt) evict() error {
	c.mu.Lock()
	c.evicted = true
	closeNow := c.refs == 0
	c.mu.Unlock()

	if closeNow {
		return c.stmt.Close()
	}

	return nil
}
