package registry

import (
	"net/http"
	"testing"
)

func TestLoaderCode(t *testing.T) {
	tests := []struct {
		name   string
		loader string
		code   int
		ok     bool
	}{
		{"any", "any", 0, true},
		{"forge", "Forge", 1, true},
		{"cauldron", "CAULDRON", 2, true},
		{"liteloader", "liteloader", 3, true},
		{"fabric", "fabric", 4, true},
		{"quilt", "Quilt", 5, true},
		{"neoforge", "neoforge", 6, true},
		{"unknown", "risugamis", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := loaderCode(tt.loader)
			if code != tt.code || ok != tt.ok {
				t.Errorf("loaderCode(%q) = (%d, %v), want (%d, %v)", tt.loader, code, ok, tt.code, tt.ok)
			}
		})
	}
}

func TestModrinthRequiredDeps(t *testing.T) {
	deps := []ModrinthFileDependency{
		{ProjectID: "a", DependencyType: "required"},
		{ProjectID: "b", DependencyType: "optional"},
		{ProjectID: "", DependencyType: "required"},
		{ProjectID: "c", DependencyType: "required"},
	}

	got := modrinthRequiredDeps(deps)
	want := []string{"a", "c"}
	if len(got) != len(want) {
		t.Fatalf("modrinthRequiredDeps() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("modrinthRequiredDeps()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCurseForgeRequiredDeps(t *testing.T) {
	deps := []CurseForgeFileDependency{
		{ModID: 1, RelationType: 3},
		{ModID: 2, RelationType: 2},
		{ModID: 3, RelationType: 3},
	}

	got := curseForgeRequiredDeps(deps)
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Errorf("curseForgeRequiredDeps() = %v, want [1 3]", got)
	}
}

func TestModrinthGovernorHasCapacity(t *testing.T) {
	g := newModrinthGovernor()
	if !g.HasCapacity() {
		t.Error("fresh governor should report capacity before any response observed")
	}

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-Ratelimit-Remaining", "3")
	resp.Header.Set("X-Ratelimit-Reset", "60")
	g.observe(resp)

	if g.HasCapacity() {
		t.Error("governor with remaining=3 and unexpired reset should report no capacity")
	}
}

func TestModrinthGovernorCapacityAboveThreshold(t *testing.T) {
	g := newModrinthGovernor()
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-Ratelimit-Remaining", "50")
	resp.Header.Set("X-Ratelimit-Reset", "60")
	g.observe(resp)

	if !g.HasCapacity() {
		t.Error("governor with remaining=50 should report capacity")
	}
}

func TestCurseForgeGovernorAcquiresWithinBurst(t *testing.T) {
	g := newCurseForgeGovernor()
	for i := 0; i < curseForgePermits; i++ {
		if wait, ok := g.tryAcquire(); !ok {
			t.Fatalf("permit %d: tryAcquire() = (%v, false), want immediate success within burst", i, wait)
		}
	}
}

func TestCurseForgeClientIsAvailable(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"empty key unavailable", "", false},
		{"present key available", "secret", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCurseForgeClient(tt.key)
			if got := c.IsAvailable(); got != tt.want {
				t.Errorf("IsAvailable() = %v, want %v", got, tt.want)
			}
		})
	}
}
