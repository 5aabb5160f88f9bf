package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Group manages the lifetime of a set of domains.
type Group struct {
	mu      sync.Mutex
	domains []*Domain
}

// NewGroup returns a group holding domains.
func NewGroup(domains ...*Domain) *Group {
	return &Group{domains: append([]*Domain(nil), domains...)}
}

// Add appends d to the group.
func (g *Group) Add(d *Domain) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.domains = append(g.domains, d)
}

// Domains returns a copy of the member list.
func (g *Group) Domains() []*Domain {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Domain(nil), g.domains...)
}

// Start starts every stopped member. If one fails, members started by this
// call are stopped again.
func (g *Group) Start() error {
	var started []*Domain
	for _, d := range g.Domains() {
		if d.IsRunning() {
			continue
		}
		if err := d.Start(); err != nil {
			for _, s := range started {
				_ = s.Stop(context.Background())
			}
			return fmt.Errorf("start domain %q: %w", d.Name(), err)
		}
		started = append(started, d)
	}
	return nil
}

// Stop stops all running members concurrently and returns the first failure.
func (g *Group) Stop(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, d := range g.Domains() {
		eg.Go(func() error {
			err := d.Stop(ctx)
			if err != nil && !errors.Is(err, ErrNotRunning) {
				return fmt.Errorf("stop domain %q: %w", d.Name(), err)
			}
			return nil
		})
	}
	return eg.Wait()
}
