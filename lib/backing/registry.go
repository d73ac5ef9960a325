package backing

import (
	"context"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/gfxctx"
)

// Registry tracks the live backings of a process by window id.
type Registry struct {
	mu       sync.RWMutex
	backings map[uint64]*WindowBacking
}

func NewRegistry() *Registry {
	return &Registry{backings: make(map[uint64]*WindowBacking)}
}

func (r *Registry) Add(b *WindowBacking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backings[b.ID()]; ok {
		return fmt.Errorf("window %#x already has a backing", b.ID())
	}
	r.backings[b.ID()] = b
	return nil
}

// Remove closes the backing of wid and forgets it.
func (r *Registry) Remove(wid uint64) *gfxctx.Future {
	r.mu.Lock()
	b, ok := r.backings[wid]
	delete(r.backings, wid)
	r.mu.Unlock()
	if !ok {
		return gfxctx.Failed(fmt.Errorf("no backing for window %#x", wid))
	}
	return b.Close()
}

func (r *Registry) Get(wid uint64) (*WindowBacking, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backings[wid]
	return b, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.backings)
}

func (r *Registry) list() []*WindowBacking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*WindowBacking, 0, len(r.backings))
	for _, b := range r.backings {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b *WindowBacking) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

// Infos returns the state of every backing, ordered by window id.
func (r *Registry) Infos() []Info {
	backings := r.list()
	infos := make([]Info, len(backings))
	for i, b := range backings {
		infos[i] = b.Info()
	}
	return infos
}

func (r *Registry) Snapshot(ctx context.Context, wid uint64) (*image.RGBA, error) {
	b, ok := r.Get(wid)
	if !ok {
		return nil, fmt.Errorf("no backing for window %#x", wid)
	}
	return b.Snapshot(ctx)
}

// UpdateConfig hands a reloaded configuration to every backing.
func (r *Registry) UpdateConfig(cfg *config.BackingCfg) {
	for _, b := range r.list() {
		b.UpdateConfig(cfg)
	}
}

// CloseAll closes every backing and waits for the teardown to finish.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	backings := r.backings
	r.backings = make(map[uint64]*WindowBacking)
	r.mu.Unlock()

	var futures []*gfxctx.Future
	for _, b := range backings {
		futures = append(futures, b.Close())
	}
	for _, f := range futures {
		if err := f.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
