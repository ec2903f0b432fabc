// Package archive extracts (mod-id, display-name, version, dependency-map)
// tuples from Minecraft mod archives by trying each loader-specific
// metadata file in priority order.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/titanous/json5"
)

// Sanitization regexes for raw control characters inside fabric.mod.json
// string values, which real-world archives occasionally contain despite
// being invalid JSON. Do not tighten these without re-checking against
// archives that currently parse.
var (
	reSanitizeNewlines = regexp.MustCompile(`(?m)("[^"\n]*?"\s*:\s*")([^"]*?)"`)
	reSanitizeTabs     = regexp.MustCompile(`(?m)"[^"]*?"`)
)

// Descriptor is the result of successfully parsing one loader metadata file.
type Descriptor struct {
	ID          string
	DisplayName string
	Version     string
	Requires    map[string]string
}

// fabricModJSON mirrors the fields modsync reads from fabric.mod.json or
// quilt.mod.json; unknown fields are ignored.
type fabricModJSON struct {
	ID      string                     `json:"id"`
	Name    string                     `json:"name"`
	Version string                     `json:"version"`
	Depends map[string]json5RawOrList `json:"depends"`
}

// json5RawOrList accepts either a bare string or an array of strings for a
// dependency's version-constraint value, per spec §4.2: array values are
// flattened by joining with "||".
type json5RawOrList struct {
	Single string
	Many   []string
}

func (v *json5RawOrList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Single = s
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		v.Many = list
		return nil
	}
	return fmt.Errorf("dependency constraint is neither a string nor a string array")
}

func (v json5RawOrList) flatten() string {
	if v.Single != "" {
		return v.Single
	}
	return strings.Join(v.Many, "||")
}

// forgeModsToml mirrors META-INF/mods.toml and META-INF/neoforge.mods.toml,
// which share the same shape.
type forgeModsToml struct {
	Mods []forgeModEntry `toml:"mods"`
	// Dependencies is keyed by the owning modId; each value is a list of
	// {modId, versionRange} dependency declarations.
	Dependencies map[string][]forgeDependency `toml:"dependencies"`
}

type forgeModEntry struct {
	ModID       string `toml:"modId"`
	DisplayName string `toml:"displayName"`
	Version     string `toml:"version"`
}

type forgeDependency struct {
	ModID        string `toml:"modId"`
	VersionRange string `toml:"versionRange"`
}

// candidateDescriptorNames lists the loader metadata files tried in order,
// first hit wins.
var candidateDescriptorNames = []string{
	"fabric.mod.json",
	"quilt.mod.json",
	"META-INF/mods.toml",
	"META-INF/neoforge.mods.toml",
}

// Parse opens path as a ZIP archive and tries each loader-specific
// descriptor in fixed order, returning the first one found. A parse
// failure for a tried descriptor is not fatal; parsing moves on to the
// next candidate and only the final "nothing matched" case errors.
func Parse(path string) (Descriptor, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("opening %s as zip: %w", path, err)
	}
	defer func() { _ = zr.Close() }()

	for _, name := range candidateDescriptorNames {
		entry := findZipEntry(&zr.Reader, name)
		if entry == nil {
			continue
		}

		data, err := readZipEntry(entry)
		if err != nil {
			continue
		}

		switch name {
		case "fabric.mod.json", "quilt.mod.json":
			if desc, ok := parseFabricLike(data); ok {
				return desc, nil
			}
		case "META-INF/mods.toml", "META-INF/neoforge.mods.toml":
			if desc, ok := parseForgeLike(data); ok {
				return desc, nil
			}
		}
	}

	return Descriptor{}, fmt.Errorf("no recognized mod metadata in %s", path)
}

// findZipEntry locates an archive entry by exact path or basename match,
// normalizing backslashes to forward slashes first.
func findZipEntry(r *zip.Reader, target string) *zip.File {
	targetBase := path.Base(target)
	for _, f := range r.File {
		normalized := strings.ReplaceAll(f.Name, `\`, "/")
		if normalized == target {
			return f
		}
		if path.Base(normalized) == targetBase && path.Dir(normalized) == path.Dir(target) {
			return f
		}
	}
	// Fall back to a pure basename match, since some archives nest the
	// descriptor a directory deeper than the loader spec requires.
	for _, f := range r.File {
		normalized := strings.ReplaceAll(f.Name, `\`, "/")
		if path.Base(normalized) == targetBase {
			return f
		}
	}
	return nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// sanitizeJSONStringContent escapes raw newline, carriage-return and tab
// bytes embedded inside JSON string values before handing the bytes to a
// JSON parser, mirroring the tolerance real-world fabric.mod.json files
// require.
func sanitizeJSONStringContent(data []byte) []byte {
	sanitized := reSanitizeNewlines.ReplaceAllFunc(data, func(match []byte) []byte {
		sub := reSanitizeNewlines.FindSubmatch(match)
		if len(sub) < 3 {
			return match
		}
		prefix, value := sub[1], sub[2]
		escaped := bytes.ReplaceAll(value, []byte("\n"), []byte("\\n"))
		escaped = bytes.ReplaceAll(escaped, []byte("\r"), []byte{})
		return append(append(prefix, escaped...), '"')
	})
	return reSanitizeTabs.ReplaceAllFunc(sanitized, func(match []byte) []byte {
		if len(match) <= 2 {
			return match
		}
		inner := match[1 : len(match)-1]
		escaped := bytes.ReplaceAll(inner, []byte("\t"), []byte("\\t"))
		return append(append([]byte{'"'}, escaped...), '"')
	})
}

func parseFabricLike(data []byte) (Descriptor, bool) {
	data = sanitizeJSONStringContent(data)

	var fmj fabricModJSON
	if err := json5.Unmarshal(data, &fmj); err != nil {
		return Descriptor{}, false
	}
	if fmj.ID == "" {
		return Descriptor{}, false
	}

	name := fmj.Name
	if name == "" {
		name = fmj.ID
	}

	var requires map[string]string
	if len(fmj.Depends) > 0 {
		requires = make(map[string]string, len(fmj.Depends))
		for modID, constraint := range fmj.Depends {
			if flat := constraint.flatten(); flat != "" {
				requires[modID] = flat
			}
		}
	}

	return Descriptor{
		ID:          fmj.ID,
		DisplayName: name,
		Version:     fmj.Version,
		Requires:    requires,
	}, true
}

func parseForgeLike(data []byte) (Descriptor, bool) {
	var modsToml forgeModsToml
	if err := toml.Unmarshal(data, &modsToml); err != nil {
		return Descriptor{}, false
	}
	if len(modsToml.Mods) == 0 {
		return Descriptor{}, false
	}

	entry := modsToml.Mods[0]
	if entry.ModID == "" {
		return Descriptor{}, false
	}

	name := entry.DisplayName
	if name == "" {
		name = entry.ModID
	}

	// Forge build tooling leaves unresolved ${...} placeholders in the
	// version string when run outside its normal build pipeline; such
	// values are worse than no version at all.
	ver := entry.Version
	if strings.Contains(ver, "${") {
		ver = ""
	}

	var requires map[string]string
	if len(modsToml.Dependencies) > 0 {
		requires = make(map[string]string)
		for _, depList := range modsToml.Dependencies {
			for _, dep := range depList {
				if dep.ModID == "" {
					continue
				}
				versionRange := dep.VersionRange
				if versionRange == "" {
					versionRange = "*"
				}
				requires[dep.ModID] = versionRange
			}
		}
		if len(requires) == 0 {
			requires = nil
		}
	}

	return Descriptor{
		ID:          entry.ModID,
		DisplayName: name,
		Version:     ver,
		Requires:    requires,
	}, true
}
