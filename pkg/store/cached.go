package store

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Cached keeps the last successful FetchAll in memory until Invalidate is
// called or a write goes through it.
type Cached struct {
	Store

	mu    sync.Mutex
	table *Table
	label *modifiedLabel
}

type modifiedLabel struct {
	text string
	ok   bool
}

func NewCached(s Store) *Cached {
	return &Cached{Store: s}
}

func (c *Cached) FetchAll(ctx context.Context) (Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.table != nil {
		return *c.table, nil
	}
	t, err := c.Store.FetchAll(ctx)
	if err != nil {
		return Table{}, err
	}
	c.table = &t
	return t, nil
}

// LastModifiedLabel is looked up once per cache lifetime.
func (c *Cached) LastModifiedLabel(ctx context.Context) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.label == nil {
		text, ok := c.Store.LastModifiedLabel(ctx)
		c.label = &modifiedLabel{text: text, ok: ok}
	}
	return c.label.text, c.label.ok
}

func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.table = nil
	c.label = nil
	c.mu.Unlock()
	log.Debug("dataset cache invalidated")
}

func (c *Cached) ReplaceAll(ctx context.Context, t Table) error {
	defer c.Invalidate()
	return c.Store.ReplaceAll(ctx, t)
}

func (c *Cached) AppendRows(ctx context.Context, rows [][]string) error {
	defer c.Invalidate()
	return c.Store.AppendRows(ctx, rows)
}
