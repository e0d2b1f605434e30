package resolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360/authoritystore/errors"
	"github.com/c360/authoritystore/refname"
)

// ItemSource resolves item reference names for one authority service. Every
// service-specific resource implements it; *Resolver is the standard
// implementation.
type ItemSource interface {
	ResolveItemIdentity(ctx context.Context, ref *refname.Item) (string, error)
}

// ResourceMap dispatches item reference names to the owning service's
// resolver. A reference name embeds its service segment, so cross-service
// references resolve through a table lookup instead of runtime type
// dispatch.
type ResourceMap struct {
	mu      sync.RWMutex
	sources map[string]ItemSource
}

// NewResourceMap creates an empty resource map.
func NewResourceMap() *ResourceMap {
	return &ResourceMap{sources: make(map[string]ItemSource)}
}

// Register binds a service name to its item source. Re-registering a
// service replaces the previous source.
func (m *ResourceMap) Register(service string, src ItemSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[service] = src
}

// Lookup returns the item source for a service name.
func (m *ResourceMap) Lookup(service string) (ItemSource, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sources[service]
	return src, ok
}

// Resolve dispatches a parsed item reference name to its owning service.
// A nil reference resolves to the empty CSID with no error, mirroring
// Resolver.ResolveItemIdentity.
func (m *ResourceMap) Resolve(ctx context.Context, ref *refname.Item) (string, error) {
	if ref == nil {
		return "", nil
	}
	src, ok := m.Lookup(ref.Parent.Service)
	if !ok {
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: no resource registered for service %q", errors.ErrBadRefName, ref.Parent.Service),
			"resourcemap", "Resolve", "dispatch item reference")
	}
	return src.ResolveItemIdentity(ctx, ref)
}
