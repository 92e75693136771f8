package embeddings

import (
	"errors"
	"slices"
	"sync"
)

// ErrCellNotSealed is returned when reading a Cell that was not built by NewCell.
var ErrCellNotSealed = errors.New("request cell not sealed")

// Cell holds one EmbedRequest shared between the fetch stage and the
// persistence unit. It is written once in NewCell and only read afterwards.
type Cell struct {
	mu     sync.RWMutex
	req    EmbedRequest
	sealed bool
}

// NewCell copies model, inputs and metadata into a sealed cell.
func NewCell(model string, inputs []string, metadata *string) *Cell {
	c := &Cell{}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.req = EmbedRequest{
		Model: model,
		Input: slices.Clone(inputs),
	}
	if metadata != nil {
		m := *metadata
		c.req.Metadata = &m
	}
	c.sealed = true
	return c
}

// View acquires a read lock and returns a view of the request. The view must not
// be used after release is called. release is safe to call more than once.
func (c *Cell) View() (view RequestView, release func(), err error) {
	if c == nil {
		return nil, func() {}, ErrCellNotSealed
	}
	c.mu.RLock()
	if !c.sealed {
		c.mu.RUnlock()
		return nil, func() {}, ErrCellNotSealed
	}
	var once sync.Once
	return requestView{req: &c.req}, func() { once.Do(c.mu.RUnlock) }, nil
}

// Len returns the number of inputs, or 0 for an unsealed cell.
func (c *Cell) Len() int {
	v, release, err := c.View()
	if err != nil {
		return 0
	}
	defer release()
	return v.Len()
}
