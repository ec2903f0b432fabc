// Package resolver implements C5: for a query (name, candidate id, game
// version, loader) it returns a single downloadable file by choosing
// between the two registries using dynamic ordering.
package resolver

import (
	"context"
	"strings"

	"modsync/internal/modtypes"
)

// ModrinthRegistry is the subset of *registry.ModrinthClient the resolver
// depends on, kept narrow so tests can supply a fake.
type ModrinthRegistry interface {
	HasCapacity() bool
	Search(ctx context.Context, query, loader, gameVersion string, offset, limit int) ([]modtypes.RegistryProjectHit, error)
	FetchProjectInfo(ctx context.Context, idOrSlug string) (*modtypes.RegistryProjectHit, error)
	FetchVersion(ctx context.Context, projectID, gameVersion, loader string) (*modtypes.RegistryFileDescriptor, error)
}

// CurseForgeRegistry is the subset of *registry.CurseForgeClient the
// resolver depends on.
type CurseForgeRegistry interface {
	IsAvailable() bool
	Search(ctx context.Context, query, loader, gameVersion string, offset, limit int) ([]modtypes.RegistryProjectHit, error)
	FetchFile(ctx context.Context, projectID, gameVersion, loader string) (*modtypes.RegistryFileDescriptor, error)
}

// Resolver implements spec §4.5.
type Resolver struct {
	M ModrinthRegistry
	C CurseForgeRegistry
}

// New constructs a Resolver over the given registry clients.
func New(m ModrinthRegistry, c CurseForgeRegistry) *Resolver {
	return &Resolver{M: m, C: c}
}

// Find implements the full probe: dynamic source ordering, then the
// per-registry probe sequence, returning the first hit. credential being
// empty disables every C attempt.
func (r *Resolver) Find(ctx context.Context, name, candidateID, gameVersion, loader, credential string) (*modtypes.RegistryFileDescriptor, error) {
	tryM := func() (*modtypes.RegistryFileDescriptor, error) {
		return r.probeModrinth(ctx, name, candidateID, gameVersion, loader)
	}
	tryC := func() (*modtypes.RegistryFileDescriptor, error) {
		if credential == "" {
			return nil, nil
		}
		return r.probeCurseForge(ctx, name, gameVersion, loader)
	}

	// Source order per spec §4.5.1.
	primaryIsC := !r.M.HasCapacity() && r.C.IsAvailable() && credential != ""

	var first, second func() (*modtypes.RegistryFileDescriptor, error)
	if primaryIsC {
		first, second = tryC, tryM
	} else {
		first, second = tryM, tryC
	}

	if desc, err := first(); err == nil && desc != nil {
		return desc, nil
	}
	desc, err := second()
	if err != nil {
		return nil, err
	}
	return desc, nil
}

// probeModrinth implements spec §4.5.2's ordered probe sequence, short
// circuiting on the first hit: direct-id, then slug search, then name
// search.
func (r *Resolver) probeModrinth(ctx context.Context, name, candidateID, gameVersion, loader string) (*modtypes.RegistryFileDescriptor, error) {
	if candidateID != "" {
		if desc, err := r.M.FetchVersion(ctx, candidateID, gameVersion, loader); err == nil && desc != nil {
			return desc, nil
		}
	}

	if candidateID != "" {
		hits, err := r.M.Search(ctx, candidateID, loader, gameVersion, 0, 5)
		if err == nil {
			for _, hit := range hits {
				if hit.Slug != candidateID {
					continue
				}
				if desc, err := r.M.FetchVersion(ctx, hit.ProjectID, gameVersion, loader); err == nil && desc != nil {
					return desc, nil
				}
			}
		}
	}

	hits, err := r.M.Search(ctx, name, loader, gameVersion, 0, 5)
	if err == nil {
		for _, hit := range hits {
			if !matchesNameSearch(hit, candidateID, name) {
				continue
			}
			if desc, err := r.M.FetchVersion(ctx, hit.ProjectID, gameVersion, loader); err == nil && desc != nil {
				return desc, nil
			}
		}
	}

	return nil, nil
}

func matchesNameSearch(hit modtypes.RegistryProjectHit, candidateID, name string) bool {
	if candidateID != "" && hit.Slug == candidateID {
		return true
	}
	a, b := strings.ToLower(hit.Title), strings.ToLower(name)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// probeCurseForge implements spec §4.5.3: search, take the first hit,
// fetch its file, and require a non-empty download URL.
func (r *Resolver) probeCurseForge(ctx context.Context, name, gameVersion, loader string) (*modtypes.RegistryFileDescriptor, error) {
	hits, err := r.C.Search(ctx, name, "", "", 0, 1)
	if err != nil || len(hits) == 0 {
		return nil, err
	}

	desc, err := r.C.FetchFile(ctx, hits[0].ProjectID, gameVersion, loader)
	if err != nil || desc == nil || desc.URL == "" {
		return nil, err
	}
	return desc, nil
}
