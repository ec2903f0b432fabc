// Package modtypes holds the shared data model used across the scanner,
// cache, resolver, dependency expander and downloader.
package modtypes

// ModRecord describes a single archive instance on disk.
//
// Selected is a UI-only flag and is never persisted by the cache.
type ModRecord struct {
	Filename      string
	DisplayName   string
	DetectedID    string
	ConfirmedID   string
	VersionLocal  string
	VersionRemote string
	SizeBytes     int64
	MtimeSecs     int64
	Requires      map[string]string
	Selected      bool
	Resolving     bool
}

// Fingerprint returns the (size, mtime) pair used to decide whether a
// cached record is still valid for the file on disk.
func (m ModRecord) Fingerprint() (int64, int64) {
	return m.SizeBytes, m.MtimeSecs
}

// CachedProject is the per-canonical-project row in the content cache.
type CachedProject struct {
	ProjectID             string `json:"project_id"`
	DisplayName           string `json:"display_name,omitempty"`
	DetectedID            string `json:"detected_id,omitempty"`
	ConfirmedID           string `json:"confirmed_id,omitempty"`
	LatestResolvedVersion string `json:"latest_resolved_version,omitempty"`
}

// CachedFile is the per-archive-instance row in the content cache.
type CachedFile struct {
	Filename     string            `json:"filename"`
	SizeBytes    int64             `json:"size_bytes"`
	MtimeSecs    int64             `json:"mtime_secs"`
	VersionLocal string            `json:"version_local,omitempty"`
	Requires     map[string]string `json:"requires,omitempty"`
	ProjectRef   string            `json:"project_ref"`
}

// RegistryKind names which registry produced a hit.
type RegistryKind string

const (
	RegistryM RegistryKind = "modrinth"
	RegistryC RegistryKind = "curseforge"
)

// RegistryProjectHit is a search result returned by a registry client.
type RegistryProjectHit struct {
	Registry    RegistryKind
	ProjectID   string
	Slug        string
	Title       string
	Description string
	Author      string
	Icon        string
	Summary     string
}

// RegistryFileDescriptor is the file chosen by a resolver probe.
type RegistryFileDescriptor struct {
	Filename     string
	URL          string
	ProjectID    string
	VersionTag   string
	RequiredDeps []string
}

// DownloadJob describes one unit of work for the downloader pool.
type DownloadJob struct {
	Key           string
	Record        ModRecord
	TargetDir     string
	WantedVersion string
	WantedLoader  string
}

// DownloadEventKind tags a DownloadEvent's variant.
type DownloadEventKind int

const (
	EventResolving DownloadEventKind = iota
	EventResolved
	EventResolvedInfo
	EventStarted
	EventProgress
	EventDone
	EventError
)

// DownloadEvent is one lifecycle update for a DownloadJob. Events for a
// single job always arrive in strict order: Resolving, Resolved,
// ResolvedInfo, Started, any number of Progress, then Done or Error.
type DownloadEvent struct {
	Key           string
	Kind          DownloadEventKind
	ConfirmedID   string
	VersionRemote string
	Ratio         float64
	Message       string
}

// ReadEventKind tags a ReadEvent's variant.
type ReadEventKind int

const (
	ReadDone ReadEventKind = iota
	ReadError
)

// ReadEvent is emitted by the archive parser pool as it processes scan jobs.
type ReadEvent struct {
	Kind    ReadEventKind
	Path    string
	Record  ModRecord
	Message string
}

// ActiveMarker records the name of the modpack currently linked into
// mods/, for hosts where the link itself is unreadable.
type ActiveMarker struct {
	ModpackName string
}
