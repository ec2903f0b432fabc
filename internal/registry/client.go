// Package registry provides HTTP clients for the two content registries,
// Modrinth ("M", primary) and CurseForge ("C", secondary), along with
// their respective rate-limit governors.
package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxAPIResponseBytes caps JSON response body reads to prevent memory
// exhaustion from malformed or oversized registry responses.
const maxAPIResponseBytes = 10 * 1024 * 1024

// sharedHTTPClient is the process-wide singleton used by both registry
// clients, tuned the same way as the rest of the engine's long-lived
// connections: bounded dial/handshake timeouts, a generous idle pool.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	},
}

// loaderCode translates a loader name to CurseForge's numeric modLoaderType.
// Unknown names return ok=false so callers can decide between the file-query
// default (fabric=4) and the search-filter default (omit entirely).
func loaderCode(loader string) (code int, ok bool) {
	switch strings.ToLower(loader) {
	case "any":
		return 0, true
	case "forge":
		return 1, true
	case "cauldron":
		return 2, true
	case "liteloader":
		return 3, true
	case "fabric":
		return 4, true
	case "quilt":
		return 5, true
	case "neoforge":
		return 6, true
	default:
		return 0, false
	}
}

// decodeLimited decodes a JSON response body into out, capping how many
// bytes are read to guard against a malicious or runaway response.
func decodeLimited(resp *http.Response, out any) error {
	limited := io.LimitReader(resp.Body, maxAPIResponseBytes)
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", resp.Request.URL, err)
	}
	return nil
}

func recordHeader(resp *http.Response, name string) (int, bool) {
	v := resp.Header.Get(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func buildQuery(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q.Encode()
}

// ModrinthFileDependency is one entry of a Modrinth version's dependency
// array, keyed by project_id and carrying Modrinth's dependency_type.
type ModrinthFileDependency struct {
	ProjectID      string `json:"project_id"`
	DependencyType string `json:"dependency_type"`
}

// modrinthRequiredDeps filters a dependency list down to {dependency_type ==
// "required", project_id present} entries, per spec §4.5.2.
func modrinthRequiredDeps(deps []ModrinthFileDependency) []string {
	var out []string
	for _, d := range deps {
		if d.DependencyType == "required" && d.ProjectID != "" {
			out = append(out, d.ProjectID)
		}
	}
	return out
}

// CurseForgeFileDependency is one entry of a CurseForge file's dependency
// array.
type CurseForgeFileDependency struct {
	ModID        int `json:"modId"`
	RelationType int `json:"relationType"`
}

// curseForgeRequiredDeps filters a dependency list down to relationType==3
// (required), per spec §4.5.3.
func curseForgeRequiredDeps(deps []CurseForgeFileDependency) []string {
	var out []string
	for _, d := range deps {
		if d.RelationType == 3 {
			out = append(out, strconv.Itoa(d.ModID))
		}
	}
	return out
}
