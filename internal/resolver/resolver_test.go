package resolver

import (
	"context"
	"testing"

	"modsync/internal/modtypes"
)

type fakeModrinth struct {
	hasCapacity  bool
	searchHits   []modtypes.RegistryProjectHit
	versions     map[string]*modtypes.RegistryFileDescriptor
	searchCalls  int
	versionCalls int
}

func (f *fakeModrinth) HasCapacity() bool { return f.hasCapacity }

func (f *fakeModrinth) Search(_ context.Context, _, _, _ string, _, _ int) ([]modtypes.RegistryProjectHit, error) {
	f.searchCalls++
	return f.searchHits, nil
}

func (f *fakeModrinth) FetchProjectInfo(_ context.Context, _ string) (*modtypes.RegistryProjectHit, error) {
	return nil, nil
}

func (f *fakeModrinth) FetchVersion(_ context.Context, projectID, _, _ string) (*modtypes.RegistryFileDescriptor, error) {
	f.versionCalls++
	return f.versions[projectID], nil
}

type fakeCurseForge struct {
	available bool
	searchHit *modtypes.RegistryProjectHit
	file      *modtypes.RegistryFileDescriptor
	calls     int
}

func (f *fakeCurseForge) IsAvailable() bool { return f.available }

func (f *fakeCurseForge) Search(_ context.Context, _, _, _ string, _, _ int) ([]modtypes.RegistryProjectHit, error) {
	f.calls++
	if f.searchHit == nil {
		return nil, nil
	}
	return []modtypes.RegistryProjectHit{*f.searchHit}, nil
}

func (f *fakeCurseForge) FetchFile(_ context.Context, _, _, _ string) (*modtypes.RegistryFileDescriptor, error) {
	f.calls++
	return f.file, nil
}

func TestFindDirectIDShortCircuits(t *testing.T) {
	m := &fakeModrinth{
		hasCapacity: true,
		versions: map[string]*modtypes.RegistryFileDescriptor{
			"sodium": {Filename: "sodium-0.5.0.jar", ProjectID: "sodium"},
		},
	}
	c := &fakeCurseForge{}

	r := New(m, c)
	desc, err := r.Find(context.Background(), "Sodium", "sodium", "1.20.1", "fabric", "")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if desc == nil || desc.ProjectID != "sodium" {
		t.Fatalf("Find() = %+v, want sodium direct hit", desc)
	}
	if m.searchCalls != 0 {
		t.Errorf("searchCalls = %d, want 0 (direct-id hit must short-circuit searches)", m.searchCalls)
	}
	if c.calls != 0 {
		t.Errorf("curseforge calls = %d, want 0 (empty credential disables C)", c.calls)
	}
}

func TestFindPrefersCurseForgeWhenModrinthLacksCapacity(t *testing.T) {
	m := &fakeModrinth{hasCapacity: false}
	c := &fakeCurseForge{
		available: true,
		searchHit: &modtypes.RegistryProjectHit{ProjectID: "123"},
		file:      &modtypes.RegistryFileDescriptor{Filename: "jei.jar", ProjectID: "123", URL: "https://example/jei.jar"},
	}

	r := New(m, c)
	desc, err := r.Find(context.Background(), "JEI", "", "1.20.1", "forge", "a-credential")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if desc == nil || desc.ProjectID != "123" {
		t.Fatalf("Find() = %+v, want curseforge hit", desc)
	}
	// At most one Modrinth call (the probe should not have been reached
	// since C answered first), matching scenario 4's "at most one M call".
	if m.versionCalls+m.searchCalls > 1 {
		t.Errorf("modrinth calls = %d, want <= 1 when C answers first", m.versionCalls+m.searchCalls)
	}
}

func TestFindTriesBothRegistriesBeforeGivingUp(t *testing.T) {
	m := &fakeModrinth{hasCapacity: true}
	c := &fakeCurseForge{available: true}

	r := New(m, c)
	desc, err := r.Find(context.Background(), "nonexistent", "", "1.20.1", "fabric", "a-credential")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if desc != nil {
		t.Fatalf("Find() = %+v, want nil on full miss", desc)
	}
	if c.calls == 0 {
		t.Error("curseforge should still be tried even though it is not primary")
	}
}

func TestFindSkipsCurseForgeWithEmptyCredential(t *testing.T) {
	m := &fakeModrinth{hasCapacity: false}
	c := &fakeCurseForge{available: true, searchHit: &modtypes.RegistryProjectHit{ProjectID: "1"}}

	r := New(m, c)
	if _, err := r.Find(context.Background(), "JEI", "", "1.20.1", "forge", ""); err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if c.calls != 0 {
		t.Errorf("curseforge calls = %d, want 0 when credential is empty", c.calls)
	}
}

func TestMatchesNameSearch(t *testing.T) {
	tests := []struct {
		name        string
		hit         modtypes.RegistryProjectHit
		candidateID string
		query       string
		want        bool
	}{
		{"slug matches candidate", modtypes.RegistryProjectHit{Slug: "sodium"}, "sodium", "whatever", true},
		{"title contains query", modtypes.RegistryProjectHit{Title: "Just Enough Items"}, "", "enough items", true},
		{"query contains title", modtypes.RegistryProjectHit{Title: "jei"}, "", "jei mod", true},
		{"case insensitive containment", modtypes.RegistryProjectHit{Title: "Sodium"}, "", "SODIUM", true},
		{"no match", modtypes.RegistryProjectHit{Title: "Lithium"}, "", "sodium", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesNameSearch(tt.hit, tt.candidateID, tt.query); got != tt.want {
				t.Errorf("matchesNameSearch() = %v, want %v", got, tt.want)
			}
		})
	}
}
