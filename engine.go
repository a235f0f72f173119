package understory

import (
	"log/slog"
	"time"

	"github.com/jward/understory/internal/scan"
	"github.com/jward/understory/internal/store"
)

// Default resource bounds for the heuristic paths. They exist to keep
// keystroke-driven requests interactive, not to be exhaustive: hitting a
// cap silently truncates results.
const (
	DefaultCacheTTL        = 30 * time.Second
	DefaultMaxDepth        = 10
	DefaultMaxIndexFiles   = 200
	DefaultIncomingFileCap = 50
)

// Engine orchestrates the fallback pipeline: provider preference, file
// enumeration, regex extraction, symbol indexing, and call-graph assembly.
// The Engine only ever returns fresh result slices; it never reaches back
// into state owned by its callers.
type Engine struct {
	provider Provider
	source   Source
	cache    *SymbolCache
	snap     *store.Store
	logger   *slog.Logger
	now      func() time.Time

	maxIndexFiles   int
	incomingFileCap int
}

// Option configures an Engine.
type Option func(*Engine)

// WithProvider attaches an authoritative provider. Non-empty provider
// responses bypass every heuristic and every cap.
func WithProvider(p Provider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithSource replaces the filesystem-backed content/tree source.
func WithSource(src Source) Option {
	return func(e *Engine) { e.source = src }
}

// WithCache replaces the Engine's symbol cache. The cache is owned by
// whoever constructs it, making multi-instance setups and TTL tests
// straightforward.
func WithCache(c *SymbolCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithSnapshotStore attaches a SQLite snapshot store used by Snapshot and
// SnapshotSymbols. Without it those operations report ErrNoSnapshotStore.
func WithSnapshotStore(s *store.Store) Option {
	return func(e *Engine) { e.snap = s }
}

// WithLogger sets the structured logger. Provider failures and skipped
// files are reported here at debug level and nowhere else.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock injects the time source used for cache TTL decisions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMaxIndexFiles bounds how many files one symbol-index build scans.
func WithMaxIndexFiles(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIndexFiles = n
		}
	}
}

// WithIncomingFileCap bounds the cross-file incoming-call search.
func WithIncomingFileCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.incomingFileCap = n
		}
	}
}

// NewEngine builds an Engine with filesystem access, a 30-second symbol
// cache, and no provider. All collaborators are replaceable via options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:             time.Now,
		maxIndexFiles:   DefaultMaxIndexFiles,
		incomingFileCap: DefaultIncomingFileCap,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.source == nil {
		e.source = scan.NewWalker(scan.Options{
			MaxDepth: DefaultMaxDepth,
			MaxFiles: e.maxIndexFiles,
		})
	}
	if e.cache == nil {
		e.cache = NewSymbolCache(DefaultCacheTTL)
	}
	e.cache.now = e.now
	return e
}
