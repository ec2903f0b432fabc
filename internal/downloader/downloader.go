// Package downloader implements C7: a worker pool consuming DownloadJobs,
// writing to .part and renaming on success, emitting ordered lifecycle
// events per job.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"modsync/internal/modtypes"
	"modsync/internal/workerpool"
)

// sharedHTTPClient is the long-timeout singleton used for file downloads.
// It is kept distinct from the registry clients' client since downloads
// run far longer than API calls.
var sharedHTTPClient = &http.Client{
	Timeout: 120 * time.Second,
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// CacheResolver resolves a detected_id to a previously-confirmed project
// id, used to compose the candidate id per spec §4.7 step 2.
type CacheResolver interface {
	GetConfirmedByDetectedID(detectedID string) (string, bool)
}

// Finder is the subset of *resolver.Resolver the downloader depends on.
type Finder interface {
	Find(ctx context.Context, name, candidateID, gameVersion, loader, credential string) (*modtypes.RegistryFileDescriptor, error)
}

// Downloader runs DownloadJobs against a Finder, emitting DownloadEvents
// to the given sink in strict per-job order.
type Downloader struct {
	Finder     Finder
	Cache      CacheResolver
	Credential string
}

// New constructs a Downloader.
func New(finder Finder, c CacheResolver, credential string) *Downloader {
	return &Downloader{Finder: finder, Cache: c, Credential: credential}
}

// Run spawns the shared worker pool over jobs and sends every lifecycle
// event for every job to events. events is closed once all jobs complete.
func (d *Downloader) Run(ctx context.Context, jobs []modtypes.DownloadJob, events chan<- modtypes.DownloadEvent) {
	defer close(events)

	jobCh := make(chan modtypes.DownloadJob, len(jobs))
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	workerpool.SpawnPool(len(jobs), jobCh, func(job modtypes.DownloadJob) {
		d.runOne(ctx, job, events)
	})
}

func (d *Downloader) runOne(ctx context.Context, job modtypes.DownloadJob, events chan<- modtypes.DownloadEvent) {
	events <- modtypes.DownloadEvent{Key: job.Key, Kind: modtypes.EventResolving}

	candidateID := d.composeCandidateID(job.Record)

	desc, err := d.Finder.Find(ctx, job.Record.DisplayName, candidateID, job.WantedVersion, job.WantedLoader, d.Credential)
	if err != nil || desc == nil {
		events <- modtypes.DownloadEvent{
			Key:     job.Key,
			Kind:    modtypes.EventError,
			Message: fmt.Sprintf("no version v%s", job.WantedVersion),
		}
		return
	}

	events <- modtypes.DownloadEvent{Key: job.Key, Kind: modtypes.EventResolved}
	events <- modtypes.DownloadEvent{
		Key:           job.Key,
		Kind:          modtypes.EventResolvedInfo,
		ConfirmedID:   desc.ProjectID,
		VersionRemote: desc.VersionTag,
	}
	events <- modtypes.DownloadEvent{Key: job.Key, Kind: modtypes.EventStarted}

	if err := os.MkdirAll(job.TargetDir, 0o755); err != nil {
		events <- modtypes.DownloadEvent{Key: job.Key, Kind: modtypes.EventError, Message: err.Error()}
		return
	}

	finalPath := filepath.Join(job.TargetDir, desc.Filename)
	partPath := finalPath + ".part"

	if err := d.downloadToPart(ctx, desc.URL, partPath, job.Key, events); err != nil {
		_ = os.Remove(partPath)
		events <- modtypes.DownloadEvent{Key: job.Key, Kind: modtypes.EventError, Message: err.Error()}
		return
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		_ = os.Remove(partPath)
		events <- modtypes.DownloadEvent{Key: job.Key, Kind: modtypes.EventError, Message: fmt.Sprintf("renaming download: %v", err)}
		return
	}

	events <- modtypes.DownloadEvent{Key: job.Key, Kind: modtypes.EventDone}
}

// composeCandidateID implements spec §4.7 step 2: confirmed_id ??
// (detected_id → cache-lookup-confirmed) ?? detected_id.
func (d *Downloader) composeCandidateID(r modtypes.ModRecord) string {
	if r.ConfirmedID != "" {
		return r.ConfirmedID
	}
	if r.DetectedID != "" {
		if confirmed, ok := d.Cache.GetConfirmedByDetectedID(r.DetectedID); ok {
			return confirmed
		}
	}
	return r.DetectedID
}

func (d *Downloader) downloadToPart(ctx context.Context, url, partPath, key string, events chan<- modtypes.DownloadEvent) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", partPath, err)
	}
	defer func() { _ = out.Close() }()

	counter := &progressCounter{total: resp.ContentLength, key: key, events: events}
	if _, err := io.Copy(out, io.TeeReader(resp.Body, counter)); err != nil {
		return fmt.Errorf("writing download data: %w", err)
	}

	return out.Close()
}

// progressCounter is an io.Writer that counts the bytes teed through it,
// emitting a Progress event per write when the response's content-length
// is known and positive.
type progressCounter struct {
	total   int64
	current int64
	key     string
	events  chan<- modtypes.DownloadEvent
}

func (p *progressCounter) Write(b []byte) (int, error) {
	n := len(b)
	p.current += int64(n)
	if p.total > 0 {
		ratio := float64(p.current) / float64(p.total)
		if ratio > 1 {
			ratio = 1
		}
		p.events <- modtypes.DownloadEvent{Key: p.key, Kind: modtypes.EventProgress, Ratio: ratio}
	}
	return n, nil
}
