package registry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"modsync/internal/modtypes"
)

const modrinthBaseURL = "https://api.modrinth.com/v2"

// modrinthGovernor is the reactive rate-limit governor for M: it tracks the
// last-observed X-Ratelimit-Remaining/X-Ratelimit-Reset headers and exposes
// a non-blocking has_capacity() predicate the resolver consults for source
// ordering. It never itself sleeps a caller; M's API is generous enough
// that the engine simply prefers C when M looks tight, rather than queuing.
type modrinthGovernor struct {
	mu        sync.Mutex
	remaining int
	resetAt   time.Time
}

func newModrinthGovernor() *modrinthGovernor {
	// Optimistic initial state: assume capacity until the first response
	// tells us otherwise.
	return &modrinthGovernor{remaining: 999}
}

func (g *modrinthGovernor) observe(resp *http.Response) {
	remaining, ok := recordHeader(resp, "X-Ratelimit-Remaining")
	if !ok {
		return
	}
	resetSecs, _ := recordHeader(resp, "X-Ratelimit-Reset")

	g.mu.Lock()
	defer g.mu.Unlock()
	g.remaining = remaining
	g.resetAt = time.Now().Add(time.Duration(resetSecs) * time.Second)
}

// HasCapacity returns false once remaining drops to 10 or below and the
// observed reset window hasn't elapsed yet, per spec §4.1.
func (g *modrinthGovernor) HasCapacity() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.remaining > 10 {
		return true
	}
	return time.Now().After(g.resetAt)
}

// ModrinthClient is the registry client for M.
type ModrinthClient struct {
	client   *http.Client
	baseURL  string
	governor *modrinthGovernor
}

// NewModrinthClient constructs the process-wide Modrinth client.
func NewModrinthClient() *ModrinthClient {
	return &ModrinthClient{
		client:   sharedHTTPClient,
		baseURL:  modrinthBaseURL,
		governor: newModrinthGovernor(),
	}
}

// HasCapacity exposes the governor's non-blocking predicate to the resolver.
func (c *ModrinthClient) HasCapacity() bool {
	return c.governor.HasCapacity()
}

func (c *ModrinthClient) doJSON(ctx context.Context, method, rawURL string, out any) error {
	req, err := http.NewRequest(method, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building modrinth request: %w", err)
	}

	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("executing modrinth request to %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.governor.observe(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("modrinth returned status %d for %s", resp.StatusCode, rawURL)
	}

	return decodeLimited(resp, out)
}

type modrinthSearchResponse struct {
	Hits []struct {
		ProjectID   string `json:"project_id"`
		Slug        string `json:"slug"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Author      string `json:"author"`
		IconURL     string `json:"icon_url"`
	} `json:"hits"`
}

// Search queries M's project search, returning up to limit hits.
func (c *ModrinthClient) Search(ctx context.Context, query, loader, gameVersion string, offset, limit int) ([]modtypes.RegistryProjectHit, error) {
	var facets []string
	if loader != "" {
		facets = append(facets, fmt.Sprintf(`["categories:%s"]`, loader))
	}
	if gameVersion != "" {
		facets = append(facets, fmt.Sprintf(`["versions:%s"]`, gameVersion))
	}

	q := buildQuery(map[string]string{
		"query":  query,
		"offset": fmt.Sprintf("%d", offset),
		"limit":  fmt.Sprintf("%d", limit),
	})
	rawURL := fmt.Sprintf("%s/search?%s", c.baseURL, q)

	var resp modrinthSearchResponse
	if err := c.doJSON(ctx, http.MethodGet, rawURL, &resp); err != nil {
		return nil, err
	}

	hits := make([]modtypes.RegistryProjectHit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		hits = append(hits, modtypes.RegistryProjectHit{
			Registry:    modtypes.RegistryM,
			ProjectID:   h.ProjectID,
			Slug:        h.Slug,
			Title:       h.Title,
			Description: h.Description,
			Author:      h.Author,
			Icon:        h.IconURL,
		})
	}
	return hits, nil
}

type modrinthProjectInfo struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// FetchProjectInfo resolves a project id/slug to its title and slug.
func (c *ModrinthClient) FetchProjectInfo(ctx context.Context, idOrSlug string) (*modtypes.RegistryProjectHit, error) {
	if idOrSlug == "" {
		return nil, nil
	}
	rawURL := fmt.Sprintf("%s/project/%s", c.baseURL, idOrSlug)

	var info modrinthProjectInfo
	if err := c.doJSON(ctx, http.MethodGet, rawURL, &info); err != nil {
		return nil, err
	}

	return &modtypes.RegistryProjectHit{
		Registry:  modtypes.RegistryM,
		ProjectID: idOrSlug,
		Slug:      info.Slug,
		Title:     info.Title,
	}, nil
}

type modrinthVersion struct {
	ID           string                   `json:"id"`
	ProjectID    string                   `json:"project_id"`
	VersionNum   string                   `json:"version_number"`
	Dependencies []ModrinthFileDependency `json:"dependencies"`
	Files        []struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
		Primary  bool   `json:"primary"`
	} `json:"files"`
}

// FetchVersion looks up the version of projectID matching gameVersion and
// loader, returning the primary file's descriptor.
func (c *ModrinthClient) FetchVersion(ctx context.Context, projectID, gameVersion, loader string) (*modtypes.RegistryFileDescriptor, error) {
	if projectID == "" {
		return nil, nil
	}

	q := buildQuery(map[string]string{
		"game_versions": fmt.Sprintf(`["%s"]`, gameVersion),
		"loaders":       fmt.Sprintf(`["%s"]`, loader),
	})
	rawURL := fmt.Sprintf("%s/project/%s/version?%s", c.baseURL, projectID, q)

	var versions []modrinthVersion
	if err := c.doJSON(ctx, http.MethodGet, rawURL, &versions); err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}

	v := versions[0]
	var chosen *struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
		Primary  bool   `json:"primary"`
	}
	for i := range v.Files {
		if v.Files[i].Primary {
			chosen = &v.Files[i]
			break
		}
	}
	if chosen == nil && len(v.Files) > 0 {
		chosen = &v.Files[0]
	}
	if chosen == nil {
		return nil, nil
	}

	return &modtypes.RegistryFileDescriptor{
		Filename:     chosen.Filename,
		URL:          chosen.URL,
		ProjectID:    projectID,
		VersionTag:   v.VersionNum,
		RequiredDeps: modrinthRequiredDeps(v.Dependencies),
	}, nil
}
