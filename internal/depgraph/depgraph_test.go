package depgraph

import (
	"context"
	"testing"

	"modsync/internal/modtypes"
)

type fakeFinder struct {
	// byCandidate maps candidateID -> descriptor returned for that probe.
	byCandidate map[string]*modtypes.RegistryFileDescriptor
	calls       []string
}

func (f *fakeFinder) Find(_ context.Context, _, candidateID, _, _, _ string) (*modtypes.RegistryFileDescriptor, error) {
	f.calls = append(f.calls, candidateID)
	return f.byCandidate[candidateID], nil
}

func TestExpandTransitiveClosure(t *testing.T) {
	// X requires Y, Y requires Z. Z is not in installedIDs, so it is
	// returned; dropping a dep already on disk by filename is the caller's job.
	finder := &fakeFinder{
		byCandidate: map[string]*modtypes.RegistryFileDescriptor{
			"X": {ProjectID: "X", RequiredDeps: []string{"Y"}},
			"Y": {ProjectID: "Y", RequiredDeps: []string{"Z"}},
			"Z": {ProjectID: "Z"},
		},
	}

	results, err := Expand(context.Background(), finder, "X", "1.20.1", "fabric", "cred", map[string]struct{}{})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	ids := map[string]bool{}
	for _, d := range results {
		ids[d.ProjectID] = true
	}
	if !ids["Y"] || !ids["Z"] {
		t.Errorf("results = %+v, want Y and Z", results)
	}
}

func TestExpandExcludesInstalledIDs(t *testing.T) {
	finder := &fakeFinder{
		byCandidate: map[string]*modtypes.RegistryFileDescriptor{
			"X": {ProjectID: "X", RequiredDeps: []string{"Y", "Z"}},
			"Y": {ProjectID: "Y"},
		},
	}

	results, err := Expand(context.Background(), finder, "X", "1.20.1", "fabric", "cred", map[string]struct{}{"Z": {}})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	for _, d := range results {
		if d.ProjectID == "Z" {
			t.Errorf("results contain installed id Z, want it excluded: %+v", results)
		}
	}
}

func TestExpandNeverDuplicates(t *testing.T) {
	// Diamond dependency: X requires Y and Z, both of which require W.
	finder := &fakeFinder{
		byCandidate: map[string]*modtypes.RegistryFileDescriptor{
			"X": {ProjectID: "X", RequiredDeps: []string{"Y", "Z"}},
			"Y": {ProjectID: "Y", RequiredDeps: []string{"W"}},
			"Z": {ProjectID: "Z", RequiredDeps: []string{"W"}},
			"W": {ProjectID: "W"},
		},
	}

	results, err := Expand(context.Background(), finder, "X", "1.20.1", "fabric", "cred", map[string]struct{}{})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	seen := map[string]int{}
	for _, d := range results {
		seen[d.ProjectID]++
	}
	if seen["W"] != 1 {
		t.Errorf("W appeared %d times, want exactly 1", seen["W"])
	}
}

func TestExpandTerminatesOnMiss(t *testing.T) {
	finder := &fakeFinder{
		byCandidate: map[string]*modtypes.RegistryFileDescriptor{
			"X": {ProjectID: "X", RequiredDeps: []string{"missing"}},
		},
	}

	results, err := Expand(context.Background(), finder, "X", "1.20.1", "fabric", "cred", map[string]struct{}{})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want empty (missing dep logged and skipped)", results)
	}
}
