// Package ingest implements the top-level orchestrator of spec.md §4.8
// (C8): it sequences the package manifest, fetch, extract, authority-load
// and per-region loading steps, checkpointing progress so a killed run
// resumes instead of restarting from scratch.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/addresskit/addresskit/internal/archive"
	"github.com/addresskit/addresskit/internal/authority"
	"github.com/addresskit/addresskit/internal/checkpoint"
	"github.com/addresskit/addresskit/internal/config"
	"github.com/addresskit/addresskit/internal/fetch"
	"github.com/addresskit/addresskit/internal/manifest"
	"github.com/addresskit/addresskit/internal/metrics"
	"github.com/addresskit/addresskit/internal/mirror"
	"github.com/addresskit/addresskit/internal/searchindex"
)

// ManifestURL is the upstream G-NAF package registry endpoint consulted
// in step 2 of spec.md §4.8.
const ManifestURL = "https://data.gov.au/api/3/action/package_show?id=geocoded-national-address-file-g-naf"

// RunOptions configures one invocation of Run, mapping directly onto the
// `addresskit ingest` CLI flags of SPEC_FULL.md §4.13.
type RunOptions struct {
	RunID   string
	Clear   bool
	Regions []string
}

// manifestCacheTTL bounds the short-TTL cache fetchManifestBody consults
// before re-issuing an identical request to the package registry (spec.md
// §4.7): long enough to absorb the manifest being resolved twice within one
// run (once to size the archive, once if a checkpoint resume re-enters
// ensureArchive), short enough that a stale manifest never survives across
// separate invocations of addresskit ingest.
const manifestCacheTTL = 5 * time.Minute

// Runner drives one ingestion run end to end.
type Runner struct {
	cfg        *config.Config
	log        *slog.Logger
	httpClient *http.Client
	httpCache  *manifest.ShortTTLCache

	fetcher    *fetch.Fetcher
	manifest   *manifest.Store
	authority  *authority.Index
	search     *searchindex.Client
	checkpoint checkpoint.Backend
	mirror     *mirror.Client // nil when the mirror is disabled
}

// New wires a Runner from its already-constructed dependencies.
func New(cfg *config.Config, log *slog.Logger, search *searchindex.Client, cp checkpoint.Backend, mirrorClient *mirror.Client) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:        cfg,
		log:        log,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		httpCache:  manifest.NewShortTTLCache(manifestCacheTTL),
		fetcher:    fetch.New(&http.Client{}),
		manifest:   manifest.NewStore(filepath.Join("target", "keyv-file.msgpack")),
		authority:  authority.New(log),
		search:     search,
		checkpoint: cp,
		mirror:     mirrorClient,
	}
}

// Run executes the ingestion state machine of spec.md §4.8, resuming from
// any existing non-terminal checkpoint for opts.RunID unless opts.Clear is
// set, in which case it starts a fresh checkpoint. It returns the final
// checkpoint so callers can report totals (rows ingested, regions loaded)
// without reaching into Runner's internals.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*checkpoint.RunCheckpoint, error) {
	cp, err := r.resumeOrInit(ctx, opts)
	if err != nil {
		return nil, err
	}

	regions := resolveRegions(opts.Regions)
	start := time.Now()

	if cp.State == checkpoint.StateIdle {
		r.transition(ctx, cp, checkpoint.StateManifest)
	}

	archivePath, err := r.ensureArchive(ctx, cp)
	if err != nil {
		return cp, r.fail(ctx, cp, err)
	}

	if cp.State == checkpoint.StateFetching || cp.State == checkpoint.StateManifest {
		r.transition(ctx, cp, checkpoint.StateExtracting)
	}
	extractedDir, err := r.ensureExtracted(ctx, cp, archivePath)
	if err != nil {
		return cp, r.fail(ctx, cp, err)
	}

	summaryFile, err := discoverSummaryFile(extractedDir)
	if err != nil {
		return cp, r.fail(ctx, cp, fmt.Errorf("locate summary manifest: %w", err))
	}
	summaryCounts, err := loadSummaryCounts(ctx, summaryFile)
	if err != nil {
		return cp, r.fail(ctx, cp, fmt.Errorf("load summary manifest: %w", err))
	}

	if err := r.authority.Load(ctx, r.authoritySource(extractedDir)); err != nil {
		return cp, r.fail(ctx, cp, fmt.Errorf("load authority tables: %w", err))
	}

	if opts.Clear {
		if err := r.search.DropIndex(ctx); err != nil {
			r.log.Warn("drop index before clear failed", "err", err)
		}
		if err := r.search.CreateIndex(ctx, indexBody(r.authority.Synonyms())); err != nil {
			return cp, r.fail(ctx, cp, fmt.Errorf("create index: %w", err))
		}
	}

	r.transition(ctx, cp, checkpoint.StateLoading)
	for _, region := range regions {
		cp.CurrentRegion = region
		if err := r.loadRegion(ctx, cp, extractedDir, region, summaryCounts); err != nil {
			return cp, r.fail(ctx, cp, fmt.Errorf("load region %s: %w", region, err))
		}
		cp.CoveredRegions = append(cp.CoveredRegions, region)
		r.saveCheckpoint(ctx, cp)
	}

	r.transition(ctx, cp, checkpoint.StateComplete)
	r.log.Info("ingestion run complete", "run_id", cp.RunID, "regions", len(regions), "rows_ingested", cp.RowsIngested, "elapsed", time.Since(start))
	return cp, nil
}

func (r *Runner) resumeOrInit(ctx context.Context, opts RunOptions) (*checkpoint.RunCheckpoint, error) {
	existing, err := r.checkpoint.Load(ctx, opts.RunID)
	if err == nil && !existing.Done() && !opts.Clear {
		r.log.Info("resuming ingestion run", "run_id", opts.RunID, "state", existing.State)
		return existing, nil
	}

	now := time.Now().Unix()
	cp := &checkpoint.RunCheckpoint{
		RunID:     opts.RunID,
		State:     checkpoint.StateIdle,
		StartedAt: now,
		UpdatedAt: now,
	}
	return cp, nil
}

func (r *Runner) transition(ctx context.Context, cp *checkpoint.RunCheckpoint, next checkpoint.State) {
	r.log.Info("state transition", "run_id", cp.RunID, "from", cp.State, "to", next)
	cp.State = next
	r.saveCheckpoint(ctx, cp)
}

func (r *Runner) saveCheckpoint(ctx context.Context, cp *checkpoint.RunCheckpoint) {
	cp.UpdatedAt = time.Now().Unix()
	if err := r.checkpoint.Save(ctx, cp); err != nil {
		r.log.Warn("failed to save checkpoint", "run_id", cp.RunID, "err", err)
	}
}

func (r *Runner) fail(ctx context.Context, cp *checkpoint.RunCheckpoint, cause error) error {
	cp.State = checkpoint.StateFailed
	r.saveCheckpoint(ctx, cp)
	r.log.Error("ingestion run failed", "run_id", cp.RunID, "err", cause)
	return cause
}

// resolveRegions implements spec.md §4.8 step 1: an empty or invalid
// filter collapses to full coverage.
func resolveRegions(requested []string) []string {
	if len(requested) == 0 {
		return append([]string{}, config.RegionSet...)
	}
	valid := make(map[string]bool, len(config.RegionSet))
	for _, r := range config.RegionSet {
		valid[r] = true
	}
	for _, r := range requested {
		if !valid[r] {
			return append([]string{}, config.RegionSet...)
		}
	}
	return requested
}

func (r *Runner) ensureArchive(ctx context.Context, cp *checkpoint.RunCheckpoint) (string, error) {
	url, size, err := r.resolveArchiveURL(ctx)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(r.cfg.GNAFDir, filepath.Base(url))

	if r.mirror != nil {
		if ok, entry, err := r.mirror.Exists(ctx, r.cfg.MirrorBucket, filepath.Base(url)); err == nil && ok && entry.SizeBytes == size {
			if derr := r.mirror.Download(ctx, r.cfg.MirrorBucket, filepath.Base(url), dest); derr == nil {
				r.log.Info("fetched archive from mirror", "key", entry.Key)
				return dest, nil
			}
		}
	}

	r.transition(ctx, cp, checkpoint.StateFetching)
	opts := fetch.DefaultOptions()
	opts.ExpectedSize = size
	result, err := r.fetcher.Fetch(ctx, url, dest, opts)
	if err != nil {
		return "", fmt.Errorf("fetch archive: %w", err)
	}
	metrics.BytesFetched.Add(float64(result.BytesWritten))

	if r.mirror != nil {
		if _, err := r.mirror.Upload(ctx, dest, r.cfg.MirrorBucket, filepath.Base(url)); err != nil {
			r.log.Warn("mirror upload failed, continuing without it", "err", err)
		}
	}

	return dest, nil
}

func (r *Runner) ensureExtracted(ctx context.Context, cp *checkpoint.RunCheckpoint, archivePath string) (string, error) {
	targetDir := archivePath[:len(archivePath)-len(filepath.Ext(archivePath))]
	result, err := archive.Extract(archivePath, targetDir, r.log)
	if err != nil {
		return "", fmt.Errorf("extract archive: %w", err)
	}
	r.log.Info("extracted archive", "entries_total", result.EntriesTotal, "entries_extracted", result.EntriesExtracted, "entries_skipped", result.EntriesSkipped)
	return targetDir, nil
}

func (r *Runner) resolveArchiveURL(ctx context.Context) (url string, size int64, err error) {
	entry, _, err := r.manifest.Resolve(ctx, ManifestURL, time.Now(), r.fetchManifestBody)
	if err != nil {
		return "", 0, fmt.Errorf("resolve package manifest: %w", err)
	}
	return resolveArchiveResource(entry.Body)
}

func (r *Runner) fetchManifestBody(ctx context.Context) ([]byte, map[string]string, error) {
	now := time.Now()
	if body, headers, ok := r.httpCache.Get(ManifestURL, now); ok {
		r.log.Debug("package manifest served from short-TTL cache", "url", ManifestURL)
		return body, headers, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ManifestURL, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected status %d fetching package manifest", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	r.httpCache.Put(ManifestURL, body, nil, now)
	return body, nil, nil
}

// authoritySource builds an authority.Source reading one authority-code
// table's pipe-separated file out of the extracted archive.
func (r *Runner) authoritySource(extractedDir string) authority.Source {
	return func(ctx context.Context, t authority.Table) ([]authority.Code, error) {
		path, err := discoverAuthorityFile(extractedDir, t)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		var codes []authority.Code
		err = csvParseAuthority(ctx, f, &codes)
		return codes, err
	}
}
