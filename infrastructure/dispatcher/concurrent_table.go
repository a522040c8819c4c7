package dispatcher

import (
	"net/netip"
	"sync"

	"p2pcrypto/domain"
	"p2pcrypto/infrastructure/session"
)

// ConcurrentTable wraps a Table with a single RWMutex so hosts that
// shard packet handling across goroutines can still share one
// connection table, matching the read-mostly access pattern of packet
// routing (frequent lookups, occasional add/delete).
type ConcurrentTable struct {
	mu    sync.RWMutex
	table *Table
}

// NewConcurrentTable wraps table for concurrent use.
func NewConcurrentTable(table *Table) *ConcurrentTable {
	return &ConcurrentTable{table: table}
}

func (c *ConcurrentTable) Add(conn *session.Connection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.Add(conn)
}

func (c *ConcurrentTable) Delete(conn *session.Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.Delete(conn)
}

func (c *ConcurrentTable) GetByRealPK(pk domain.PublicKey) (*session.Connection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.GetByRealPK(pk)
}

func (c *ConcurrentTable) GetByDHTPK(pk domain.PublicKey) (*session.Connection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.GetByDHTPK(pk)
}

func (c *ConcurrentTable) All() []*session.Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.All()
}

func (c *ConcurrentTable) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.Len()
}

func (c *ConcurrentTable) SetUDPAddr(conn *session.Connection, addr netip.AddrPort) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.SetUDPAddr(conn, addr)
}

func (c *ConcurrentTable) GetByUDPAddr(addr netip.AddrPort) (*session.Connection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.GetByUDPAddr(addr)
}
