package understory

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/understory/internal/store"
)

// fakeSource serves file content from memory.
type fakeSource struct {
	files     map[string]string
	failReads map[string]bool
	listErr   error
}

func (s *fakeSource) ReadFile(_ context.Context, path string) ([]byte, error) {
	if s.failReads[path] {
		return nil, errors.New("unreadable")
	}
	content, ok := s.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(content), nil
}

func (s *fakeSource) ListFiles(_ context.Context, _ string) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// fakeProvider scripts provider responses per method.
type fakeProvider struct {
	symbols    []SymbolRecord
	symbolsErr error
	items      []CallHierarchyItem
	itemsErr   error
	incoming   []CallEdge
	outgoing   []CallEdge
	callsErr   error

	symbolCalls int
}

func (p *fakeProvider) WorkspaceSymbols(_ context.Context, _, _ string) ([]SymbolRecord, error) {
	p.symbolCalls++
	return p.symbols, p.symbolsErr
}

func (p *fakeProvider) PrepareCallHierarchy(_ context.Context, _ string, _, _ int) ([]CallHierarchyItem, error) {
	return p.items, p.itemsErr
}

func (p *fakeProvider) IncomingCalls(_ context.Context, _ CallHierarchyItem) ([]CallEdge, error) {
	return p.incoming, p.callsErr
}

func (p *fakeProvider) OutgoingCalls(_ context.Context, _ CallHierarchyItem) ([]CallEdge, error) {
	return p.outgoing, p.callsErr
}

// fakeClock lets tests step an engine's notion of time.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func symbolNames(recs []SymbolRecord) []string {
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.Name)
	}
	return names
}

// =============================================================================
// SearchSymbols
// =============================================================================

func TestSearchSymbols_ScansAndExtracts(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{
		"a.py": "def alpha():\n    beta()\n\ndef beta():\n    pass\n\nclass Store:\n    def save(self):\n        write_out()\n",
		"b.js": "function gamma() {\n  delta();\n}\n",
	}}
	e := NewEngine(WithSource(src))

	syms, err := e.SearchSymbols(context.Background(), "/proj", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "Store", "save", "gamma"}, symbolNames(syms))

	for _, s := range syms {
		if s.Name == "save" {
			assert.Equal(t, "Store", s.Container)
		} else {
			assert.Empty(t, s.Container)
		}
	}
}

func TestSearchSymbols_CacheExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	src := &fakeSource{files: map[string]string{
		"a.py": "def alpha():\n    pass\n",
	}}
	e := NewEngine(WithSource(src), WithClock(clock.Now))

	syms, err := e.SearchSymbols(context.Background(), "/proj", "al")
	require.NoError(t, err)
	require.Len(t, syms, 1)

	// The file changes, but the cache still answers inside the TTL.
	src.files["a.py"] = "def alpha():\n    pass\n\ndef added():\n    pass\n"
	clock.Advance(DefaultCacheTTL - time.Second)
	syms, err = e.SearchSymbols(context.Background(), "/proj", "al")
	require.NoError(t, err)
	assert.Len(t, syms, 1)

	clock.Advance(time.Second)
	syms, err = e.SearchSymbols(context.Background(), "/proj", "al")
	require.NoError(t, err)
	assert.Len(t, syms, 2)
}

func TestSearchSymbols_CacheKeyedByProject(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{
		"a.py": "def alpha():\n    pass\n",
	}}
	e := NewEngine(WithSource(src))

	_, err := e.SearchSymbols(context.Background(), "/proj-one", "")
	require.NoError(t, err)

	// A different root must not see /proj-one's cache entry.
	src.files["b.py"] = "def bravo():\n    pass\n"
	syms, err := e.SearchSymbols(context.Background(), "/proj-two", "")
	require.NoError(t, err)
	assert.Len(t, syms, 2)
}

func TestSearchSymbols_ProviderPreferred(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{symbols: []SymbolRecord{{Name: "provided", Path: "p.go"}}}
	src := &fakeSource{files: map[string]string{
		"a.py": "def alpha():\n    pass\n",
	}}
	e := NewEngine(WithProvider(provider), WithSource(src))

	syms, err := e.SearchSymbols(context.Background(), "/proj", "prov")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "provided", syms[0].Name)

	// A later provider failure is served from the cached provider result.
	provider.symbols = nil
	provider.symbolsErr = errors.New("server gone")
	syms, err = e.SearchSymbols(context.Background(), "/proj", "prov")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "provided", syms[0].Name)
}

func TestSearchSymbols_EmptyProviderFallsBack(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{} // responds, but with nothing
	src := &fakeSource{files: map[string]string{
		"a.py": "def alpha():\n    pass\n",
	}}
	e := NewEngine(WithProvider(provider), WithSource(src))

	syms, err := e.SearchSymbols(context.Background(), "/proj", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, symbolNames(syms))
	assert.Equal(t, 1, provider.symbolCalls)
}

func TestSearchSymbols_ProviderErrorFallsBack(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{symbolsErr: errors.New("connection refused")}
	src := &fakeSource{files: map[string]string{
		"a.py": "def alpha():\n    pass\n",
	}}
	e := NewEngine(WithProvider(provider), WithSource(src))

	syms, err := e.SearchSymbols(context.Background(), "/proj", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, symbolNames(syms))
}

func TestSearchSymbols_UnreadableFileSkipped(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		files: map[string]string{
			"a.py": "def alpha():\n    pass\n",
			"b.py": "def bravo():\n    pass\n",
		},
		failReads: map[string]bool{"b.py": true},
	}
	e := NewEngine(WithSource(src))

	syms, err := e.SearchSymbols(context.Background(), "/proj", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, symbolNames(syms))
}

func TestSearchSymbols_ListErrorFails(t *testing.T) {
	t.Parallel()
	src := &fakeSource{listErr: errors.New("permission denied")}
	e := NewEngine(WithSource(src))

	_, err := e.SearchSymbols(context.Background(), "/proj", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search symbols")
}

func TestSearchSymbols_FileCapTruncates(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{
		"a.py": "def alpha():\n    pass\n",
		"b.py": "def bravo():\n    pass\n",
	}}
	e := NewEngine(WithSource(src), WithMaxIndexFiles(1))

	syms, err := e.SearchSymbols(context.Background(), "/proj", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, symbolNames(syms))
}

// =============================================================================
// SymbolCache
// =============================================================================

func TestSymbolCache_EmptyAndWrongProject(t *testing.T) {
	t.Parallel()
	c := NewSymbolCache(30 * time.Second)

	_, ok := c.Get("/proj")
	assert.False(t, ok)

	c.Put("/proj", []SymbolRecord{{Name: "x"}})
	_, ok = c.Get("/other")
	assert.False(t, ok)
	got, ok := c.Get("/proj")
	assert.True(t, ok)
	assert.Len(t, got, 1)
}

func TestSymbolCache_ExactTTLBoundary(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	c := NewSymbolCache(30 * time.Second)
	c.now = clock.Now

	c.Put("/proj", []SymbolRecord{{Name: "x"}})

	clock.Advance(30*time.Second - time.Nanosecond)
	_, ok := c.Get("/proj")
	assert.True(t, ok)

	clock.Advance(time.Nanosecond)
	_, ok = c.Get("/proj")
	assert.False(t, ok, "an entry aged exactly TTL is stale")
}

func TestSymbolCache_EmptyPutNeverValid(t *testing.T) {
	t.Parallel()
	c := NewSymbolCache(30 * time.Second)
	c.Put("/proj", nil)
	_, ok := c.Get("/proj")
	assert.False(t, ok)
}

func TestSymbolCache_Invalidate(t *testing.T) {
	t.Parallel()
	c := NewSymbolCache(30 * time.Second)
	c.Put("/proj", []SymbolRecord{{Name: "x"}})
	c.Invalidate()
	_, ok := c.Get("/proj")
	assert.False(t, ok)
}

// =============================================================================
// RankSymbols
// =============================================================================

func TestRankSymbols(t *testing.T) {
	t.Parallel()
	records := []SymbolRecord{
		{Name: "longNameGp", Path: "a.go"},
		{Name: "zebra", Path: "b.go"},
		{Name: "getPath", Path: "c.go"},
	}

	ranked := RankSymbols(records, "gp")
	require.Len(t, ranked, 2)
	assert.Equal(t, "getPath", ranked[0].Name)
	assert.Equal(t, "longNameGp", ranked[1].Name)
}

func TestRankSymbols_StableTies(t *testing.T) {
	t.Parallel()
	records := []SymbolRecord{
		{Name: "run", Path: "first.go"},
		{Name: "run", Path: "second.go"},
	}

	ranked := RankSymbols(records, "run")
	require.Len(t, ranked, 2)
	assert.Equal(t, "first.go", ranked[0].Path)
	assert.Equal(t, "second.go", ranked[1].Path)
}

func TestRankSymbols_EmptyQueryMatchesNothing(t *testing.T) {
	t.Parallel()
	ranked := RankSymbols([]SymbolRecord{{Name: "anything"}}, "")
	assert.Empty(t, ranked)
}

// =============================================================================
// Snapshots
// =============================================================================

func TestSnapshot_NoStore(t *testing.T) {
	t.Parallel()
	e := NewEngine(WithSource(&fakeSource{}))

	_, err := e.Snapshot(context.Background(), "/proj")
	assert.ErrorIs(t, err, ErrNoSnapshotStore)
	_, err = e.SnapshotSymbols("/proj")
	assert.ErrorIs(t, err, ErrNoSnapshotStore)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()
	db, err := store.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	src := &fakeSource{files: map[string]string{
		"a.py": "def alpha():\n    pass\n\nclass Box:\n    def unseal(self):\n        unlock()\n",
	}}
	e := NewEngine(WithSource(src), WithSnapshotStore(db))

	count, err := e.Snapshot(context.Background(), "/proj")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	recs, err := e.SnapshotSymbols("/proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "Box", "unseal"}, symbolNames(recs))
	for _, r := range recs {
		assert.Equal(t, "a.py", r.Path)
	}
}

func TestSnapshot_UnknownProject(t *testing.T) {
	t.Parallel()
	db, err := store.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	e := NewEngine(WithSource(&fakeSource{}), WithSnapshotStore(db))
	_, err = e.SnapshotSymbols("/never-indexed")
	assert.ErrorIs(t, err, store.ErrNoSnapshot)
}
