// Package depgraph implements C6: a breadth-first transitive closure over
// required dependencies.
package depgraph

import (
	"context"
	"log"

	"modsync/internal/modtypes"
)

// Finder is the subset of *resolver.Resolver the expander depends on.
type Finder interface {
	Find(ctx context.Context, name, candidateID, gameVersion, loader, credential string) (*modtypes.RegistryFileDescriptor, error)
}

// Expand performs the BFS described in spec §4.6: seed visited with
// {rootID} ∪ installedIDs, queue the root's direct dependencies, then
// dequeue/mark-visited/find/enqueue until the queue drains. Filename-level
// dedup against what's already on disk is the caller's responsibility;
// the expander has no filesystem view.
func Expand(ctx context.Context, f Finder, rootID, gameVersion, loader, credential string, installedIDs map[string]struct{}) ([]modtypes.RegistryFileDescriptor, error) {
	visited := make(map[string]struct{}, len(installedIDs)+1)
	visited[rootID] = struct{}{}
	for id := range installedIDs {
		visited[id] = struct{}{}
	}

	rootDesc, err := f.Find(ctx, "", rootID, gameVersion, loader, credential)
	if err != nil {
		return nil, err
	}

	var queue []string
	if rootDesc != nil {
		queue = append(queue, rootDesc.RequiredDeps...)
	}

	var results []modtypes.RegistryFileDescriptor
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}

		desc, err := f.Find(ctx, "", id, gameVersion, loader, credential)
		if err != nil {
			// Logged here; the expander never aborts the walk over one
			// failed probe.
			log.Printf("depgraph: resolving dependency %s: %v", id, err)
			continue
		}
		if desc == nil {
			log.Printf("depgraph: no file found for dependency %s", id)
			continue
		}

		queue = append(queue, desc.RequiredDeps...)
		results = append(results, *desc)
	}

	return results, nil
}
