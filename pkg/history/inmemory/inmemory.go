// Package inmemory provides a process-local history driver.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/Josn-deng/lux-xiaokai/pkg/history"
)

// Driver implements history.Driver using an in-memory map.
type Driver struct {
	mu           sync.RWMutex
	interactions map[string]*history.Interaction
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		interactions: make(map[string]*history.Interaction),
	}
}

// Put stores a copy of the interaction.
func (d *Driver) Put(_ context.Context, interaction *history.Interaction) error {
	if interaction == nil {
		return history.ErrNilInteraction
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored := *interaction
	d.interactions[interaction.ID] = &stored
	return nil
}

// Get retrieves an interaction by ID.
func (d *Driver) Get(_ context.Context, id string) (*history.Interaction, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	interaction, ok := d.interactions[id]
	if !ok {
		return nil, history.NotFoundError{ID: id}
	}

	out := *interaction
	return &out, nil
}

// List returns interactions newest first.
func (d *Driver) List(_ context.Context, limit int) ([]*history.Interaction, error) {
	d.mu.RLock()
	result := make([]*history.Interaction, 0, len(d.interactions))
	for _, interaction := range d.interactions {
		out := *interaction
		result = append(result, &out)
	}
	d.mu.RUnlock()

	slices.SortFunc(result, func(a, b *history.Interaction) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}
