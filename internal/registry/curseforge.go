package registry

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"modsync/internal/modtypes"
)

const (
	curseForgeBaseURL  = "https://api.curseforge.com/v1"
	curseForgeGameID   = "432" // Minecraft
	curseForgePermits  = 150   // permits per minute
	curseForgeRefillHz = curseForgePermits / 60.0
)

// curseForgeGovernor is the proactive token-bucket governor for C: 150
// permits per minute, refilling at 2.5/s, exactly matching the rate a
// conservative CurseForge integration budgets. golang.org/x/time/rate
// models a token bucket directly, so try_acquire() is a thin wrapper over
// Reserve() rather than a hand-rolled refill loop.
type curseForgeGovernor struct {
	limiter *rate.Limiter
}

func newCurseForgeGovernor() *curseForgeGovernor {
	return &curseForgeGovernor{
		limiter: rate.NewLimiter(rate.Limit(curseForgeRefillHz), curseForgePermits),
	}
}

// tryAcquire reports success immediately, or the duration the caller must
// sleep before the next permit matures. Unlike Wait, this never blocks
// inside the governor itself; only the caller's own goroutine sleeps.
func (g *curseForgeGovernor) tryAcquire() (wait time.Duration, ok bool) {
	reservation := g.limiter.Reserve()
	if !reservation.OK() {
		return 0, false
	}
	delay := reservation.Delay()
	if delay <= 0 {
		return 0, true
	}
	// Hand the permit back so the caller's next attempt, after sleeping
	// delay, finds it matured instead of queuing behind this reservation.
	reservation.Cancel()
	return delay, false
}

// CurseForgeClient is the registry client for C. It requires an API key;
// is_available() reports false whenever the key is empty.
type CurseForgeClient struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	governor *curseForgeGovernor
}

// NewCurseForgeClient constructs the process-wide CurseForge client with
// the given credential, which may be empty to represent "unconfigured".
func NewCurseForgeClient(apiKey string) *CurseForgeClient {
	return &CurseForgeClient{
		client:   sharedHTTPClient,
		baseURL:  curseForgeBaseURL,
		apiKey:   apiKey,
		governor: newCurseForgeGovernor(),
	}
}

// IsAvailable reports whether C traffic should be attempted at all.
func (c *CurseForgeClient) IsAvailable() bool {
	return c.apiKey != ""
}

func (c *CurseForgeClient) waitForPermit(ctx context.Context) error {
	for {
		wait, ok := c.governor.tryAcquire()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *CurseForgeClient) doJSON(ctx context.Context, rawURL string, out any) error {
	if err := c.waitForPermit(ctx); err != nil {
		return fmt.Errorf("waiting for curseforge rate limit: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building curseforge request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("executing curseforge request to %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("curseforge returned status %d for %s", resp.StatusCode, rawURL)
	}

	return decodeLimited(resp, out)
}

type curseForgeAPIResponse[T any] struct {
	Data T `json:"data"`
}

type curseForgeMod struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Search queries C's mod search endpoint, translating loader to C's numeric
// modLoaderType and omitting it entirely for unrecognized loader strings.
func (c *CurseForgeClient) Search(ctx context.Context, query, loader, gameVersion string, offset, limit int) ([]modtypes.RegistryProjectHit, error) {
	params := map[string]string{
		"gameId":        curseForgeGameID,
		"searchFilter":  query,
		"sortField":     "2",
		"sortOrder":     "desc",
		"pageSize":      strconv.Itoa(limit),
		"index":         strconv.Itoa(offset),
		"gameVersion":   gameVersion,
	}
	if code, ok := loaderCode(loader); ok {
		params["modLoaderType"] = strconv.Itoa(code)
	}

	rawURL := fmt.Sprintf("%s/mods/search?%s", c.baseURL, buildQuery(params))

	var resp curseForgeAPIResponse[[]curseForgeMod]
	if err := c.doJSON(ctx, rawURL, &resp); err != nil {
		return nil, err
	}

	hits := make([]modtypes.RegistryProjectHit, 0, len(resp.Data))
	for _, m := range resp.Data {
		hits = append(hits, modtypes.RegistryProjectHit{
			Registry:  modtypes.RegistryC,
			ProjectID: strconv.Itoa(m.ID),
			Slug:      m.Slug,
			Title:     m.Name,
		})
	}
	return hits, nil
}

// FetchProjectID is a convenience wrapper matching the original engine's
// "search then take the first hit's id" pattern for name-based lookups.
func (c *CurseForgeClient) FetchProjectID(ctx context.Context, name string) (string, error) {
	hits, err := c.Search(ctx, name, "", "", 0, 10)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", nil
	}
	return hits[0].ProjectID, nil
}

type curseForgeFile struct {
	ID           int                        `json:"id"`
	FileName     string                     `json:"fileName"`
	DownloadURL  string                     `json:"downloadUrl"`
	Dependencies []CurseForgeFileDependency `json:"dependencies"`
}

// FetchFile looks up the first file for projectID matching gameVersion and
// loader, per spec §4.5.3. Unknown loaders default to fabric=4 here since
// this is a file query, not a search filter.
func (c *CurseForgeClient) FetchFile(ctx context.Context, projectID, gameVersion, loader string) (*modtypes.RegistryFileDescriptor, error) {
	if projectID == "" {
		return nil, nil
	}

	code, ok := loaderCode(loader)
	if !ok {
		code = 4 // fabric
	}

	params := map[string]string{
		"gameVersion":   gameVersion,
		"modLoaderType": strconv.Itoa(code),
	}
	rawURL := fmt.Sprintf("%s/mods/%s/files?%s", c.baseURL, projectID, buildQuery(params))

	var resp curseForgeAPIResponse[[]curseForgeFile]
	if err := c.doJSON(ctx, rawURL, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	f := resp.Data[0]
	if f.DownloadURL == "" {
		return nil, nil
	}

	return &modtypes.RegistryFileDescriptor{
		Filename:     f.FileName,
		URL:          f.DownloadURL,
		ProjectID:    projectID,
		VersionTag:   strconv.Itoa(f.ID),
		RequiredDeps: curseForgeRequiredDeps(f.Dependencies),
	}, nil
}
