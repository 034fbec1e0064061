package channel

import (
	"fmt"
	"sync"

	"github.com/seibert-media/lower-thirds-tools/internal/domain"
)

// Spec describes one channel to create. An empty Slug is derived from Name.
type Spec struct {
	Name string
	Slug string
}

// Registry maps slugs to channels.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*Channel)}
}

// NewRegistryFromSpecs creates every channel in specs and fails on the first
// invalid or duplicate slug, or if specs is empty.
func NewRegistryFromSpecs(specs []Spec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, domain.ErrNoChannels
	}

	r := NewRegistry()
	for _, spec := range specs {
		if _, err := r.Create(spec.Name, spec.Slug); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Create adds a channel named name. slug may be empty, in which case it is derived from name.
func (r *Registry) Create(name, slug string) (*Channel, error) {
	resolved, err := domain.ResolveSlug(name, slug)
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.channels[resolved]; ok {
		return nil, fmt.Errorf("%w: %s already in use by the channel %q", domain.ErrDuplicateSlug, resolved, existing.Name())
	}

	ch := newChannel(name, resolved)
	r.channels[resolved] = ch
	r.order = append(r.order, resolved)
	return ch, nil
}

func (r *Registry) Get(slug string) (*Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[slug]
	if !ok {
		return nil, fmt.Errorf("%w: unknown channel slug %s", domain.ErrChannelNotFound, slug)
	}
	return ch, nil
}

// List returns the identity of every channel keyed by slug.
func (r *Registry) List() map[string]domain.ChannelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.ChannelInfo, len(r.channels))
	for slug, ch := range r.channels {
		out[slug] = ch.Info()
	}
	return out
}

// Slugs returns all slugs in creation order.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
