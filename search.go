package understory

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/understory/internal/lang"
	"github.com/jward/understory/internal/store"
)

// SymbolCache is a single-slot cache of the last full symbol-index build,
// keyed by project path with a fixed TTL. It is an explicitly owned object
// rather than package state so multiple Engines can coexist and tests can
// drive the clock.
type SymbolCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	symbols []SymbolRecord
	stamp   time.Time
	project string
}

// NewSymbolCache creates an empty cache with the given TTL.
func NewSymbolCache(ttl time.Duration) *SymbolCache {
	return &SymbolCache{ttl: ttl, now: time.Now}
}

// Get returns the cached symbol set for projectPath. The entry is valid
// only while it is non-empty, keyed by the same project, and younger than
// the TTL; anything else is treated as absent.
func (c *SymbolCache) Get(projectPath string) ([]SymbolRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.symbols) == 0 || c.project != projectPath {
		return nil, false
	}
	if c.now().Sub(c.stamp) >= c.ttl {
		return nil, false
	}
	return c.symbols, true
}

// Put replaces the cache slot with a fresh build.
func (c *SymbolCache) Put(projectPath string, symbols []SymbolRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbols = symbols
	c.project = projectPath
	c.stamp = c.now()
}

// Invalidate empties the slot.
func (c *SymbolCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbols = nil
	c.project = ""
}

// SearchSymbols returns the project-wide symbol list for projectRoot.
//
// Resolution order: a non-empty provider response is authoritative and is
// cached; otherwise a valid cache entry is returned verbatim (the query is
// applied by the caller over the full set; re-filtering here would make
// the cache useless for live keystroke narrowing); otherwise the project
// is scanned and extracted in parallel. Files that fail to read are
// skipped; a partial index is still a success.
func (e *Engine) SearchSymbols(ctx context.Context, projectRoot, query string) ([]SymbolRecord, error) {
	if e.provider != nil {
		syms, err := e.provider.WorkspaceSymbols(ctx, projectRoot, query)
		if err != nil {
			e.logger.Debug("workspace symbol provider failed, falling back",
				"root", projectRoot, "err", err)
		} else if len(syms) > 0 {
			e.cache.Put(projectRoot, syms)
			return syms, nil
		}
	}

	if syms, ok := e.cache.Get(projectRoot); ok {
		return syms, nil
	}

	syms, err := e.buildIndex(ctx, projectRoot)
	if err != nil {
		return nil, fmt.Errorf("search symbols: %w", err)
	}
	if len(syms) > 0 {
		e.cache.Put(projectRoot, syms)
	}
	return syms, nil
}

// RankSymbols scores records against query with FuzzyScore and returns the
// matching subset, best first. Ties keep index order for stability.
func RankSymbols(records []SymbolRecord, query string) []SymbolRecord {
	type ranked struct {
		rec   SymbolRecord
		score int
	}
	var hits []ranked
	for _, r := range records {
		if m := FuzzyScore(query, r.Name); m.Score > 0 {
			hits = append(hits, ranked{rec: r, score: m.Score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	out := make([]SymbolRecord, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out
}

// buildIndex enumerates projectRoot and extracts every supported file in
// parallel. Extraction is regex work on one CPU-bound pass per file; the
// group bound keeps the scan from starving interactive requests.
func (e *Engine) buildIndex(ctx context.Context, projectRoot string) ([]SymbolRecord, error) {
	paths, err := e.source.ListFiles(ctx, projectRoot)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if len(paths) > e.maxIndexFiles {
		paths = paths[:e.maxIndexFiles]
	}

	var (
		mu      sync.Mutex
		byIndex = make([][]SymbolRecord, len(paths))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, path := range paths {
		g.Go(func() error {
			content, err := e.source.ReadFile(gctx, path)
			if err != nil {
				e.logger.Debug("skipping unreadable file", "path", path, "err", err)
				return nil
			}
			recs := fileSymbols(path, string(content))
			mu.Lock()
			byIndex[i] = recs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var symbols []SymbolRecord
	for _, recs := range byIndex {
		symbols = append(symbols, recs...)
	}
	return symbols, nil
}

// fileSymbols extracts one file and flattens its definitions into symbol
// records, resolving each container by the nearest enclosing class-like
// definition.
func fileSymbols(path, content string) []SymbolRecord {
	defs := lang.Extract(content, filepath.Ext(path))
	recs := make([]SymbolRecord, 0, len(defs))
	for _, d := range defs {
		recs = append(recs, SymbolRecord{
			Name:      d.Name,
			Kind:      d.Kind,
			Container: lang.EnclosingClass(defs, d.StartLine),
			Path:      path,
			Range: Range{
				Start: Position{Line: d.StartLine, Col: d.StartCol},
				End:   Position{Line: d.EndLine},
			},
		})
	}
	return recs
}

// Snapshot scans projectRoot and persists the resulting symbol index to
// the attached snapshot store, replacing any previous snapshot for the
// same project. Content hashes are stored per file so a later caller can
// tell whether the snapshot is still current.
func (e *Engine) Snapshot(ctx context.Context, projectRoot string) (int, error) {
	if e.snap == nil {
		return 0, ErrNoSnapshotStore
	}

	paths, err := e.source.ListFiles(ctx, projectRoot)
	if err != nil {
		return 0, fmt.Errorf("snapshot: list files: %w", err)
	}
	if len(paths) > e.maxIndexFiles {
		paths = paths[:e.maxIndexFiles]
	}

	var files []store.FileRecord
	var symbols []store.SymbolRow
	for _, path := range paths {
		content, err := e.source.ReadFile(ctx, path)
		if err != nil {
			e.logger.Debug("skipping unreadable file", "path", path, "err", err)
			continue
		}
		files = append(files, store.FileRecord{
			Path:     path,
			Language: lang.TableForFile(path).Language,
			Hash:     store.ContentHash(content),
		})
		for _, rec := range fileSymbols(path, string(content)) {
			symbols = append(symbols, store.SymbolRow{
				Name:      rec.Name,
				Kind:      string(rec.Kind),
				Container: rec.Container,
				Path:      rec.Path,
				StartLine: rec.Range.Start.Line,
				StartCol:  rec.Range.Start.Col,
				EndLine:   rec.Range.End.Line,
				EndCol:    rec.Range.End.Col,
			})
		}
	}

	if err := e.snap.SaveSnapshot(projectRoot, e.now(), files, symbols); err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}
	return len(symbols), nil
}

// SnapshotSymbols loads the persisted symbol index for projectRoot without
// touching source files. Returns store.ErrNoSnapshot when the project has
// never been snapshotted.
func (e *Engine) SnapshotSymbols(projectRoot string) ([]SymbolRecord, error) {
	if e.snap == nil {
		return nil, ErrNoSnapshotStore
	}
	rows, err := e.snap.SnapshotSymbols(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("snapshot symbols: %w", err)
	}
	recs := make([]SymbolRecord, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, SymbolRecord{
			Name:      r.Name,
			Kind:      Kind(r.Kind),
			Container: r.Container,
			Path:      r.Path,
			Range: Range{
				Start: Position{Line: r.StartLine, Col: r.StartCol},
				End:   Position{Line: r.EndLine, Col: r.EndCol},
			},
		})
	}
	return recs, nil
}
