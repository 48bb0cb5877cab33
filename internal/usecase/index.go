package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"docindex/internal/domain"
	"docindex/internal/logging"
	"docindex/internal/port"
)

// DefaultMinContentLength is the shortest trimmed text, in characters, worth indexing.
const DefaultMinContentLength = 10

// DocumentIndexer turns files into stored chunks and embeddings. Files and
// the chunks within a file are processed strictly in order, and at most one
// run writes to the store at a time.
type DocumentIndexer struct {
	store    port.VectorStore
	embedder port.Embedder
	chunker  port.Chunker
	loader   port.FileLoader
	walker   port.FileWalker

	logger      *slog.Logger
	minLength   int
	incremental bool
	newID       func() string
	now         func() time.Time

	runMu sync.Mutex

	obsMu     sync.Mutex
	observers []port.ProgressObserver
}

// Option configures a DocumentIndexer.
type Option func(*DocumentIndexer)

func WithLogger(l *slog.Logger) Option {
	return func(ix *DocumentIndexer) { ix.logger = logging.OrDefault(l) }
}

// WithMinContentLength sets the shortest trimmed text that is indexed.
func WithMinContentLength(n int) Option {
	return func(ix *DocumentIndexer) {
		if n >= 0 {
			ix.minLength = n
		}
	}
}

// WithIncremental makes IndexDirectory skip files not modified since their
// chunks were stored and drop sources whose files are gone.
func WithIncremental(on bool) Option {
	return func(ix *DocumentIndexer) { ix.incremental = on }
}

// WithIDFunc replaces the uuid generator used for chunk and embedding ids.
func WithIDFunc(f func() string) Option {
	return func(ix *DocumentIndexer) {
		if f != nil {
			ix.newID = f
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(ix *DocumentIndexer) {
		if now != nil {
			ix.now = now
		}
	}
}

// NewDocumentIndexer creates an indexer over the given collaborators.
func NewDocumentIndexer(
	store port.VectorStore,
	embedder port.Embedder,
	chunker port.Chunker,
	loader port.FileLoader,
	walker port.FileWalker,
	opts ...Option,
) *DocumentIndexer {
	ix := &DocumentIndexer{
		store:     store,
		embedder:  embedder,
		chunker:   chunker,
		loader:    loader,
		walker:    walker,
		logger:    slog.Default(),
		minLength: DefaultMinContentLength,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// OnProgress registers an observer. Observers are called synchronously from
// the indexing goroutine in emission order.
func (ix *DocumentIndexer) OnProgress(o port.ProgressObserver) {
	if o == nil {
		return
	}
	ix.obsMu.Lock()
	ix.observers = append(ix.observers, o)
	ix.obsMu.Unlock()
}

func (ix *DocumentIndexer) emit(p domain.IndexingProgress) {
	ix.obsMu.Lock()
	observers := append([]port.ProgressObserver(nil), ix.observers...)
	ix.obsMu.Unlock()
	for _, o := range observers {
		o.OnProgress(p)
	}
}

// IndexDirectory indexes every eligible file under root.
func (ix *DocumentIndexer) IndexDirectory(ctx context.Context, root string) (*domain.IndexReport, error) {
	root = absPath(root)
	report := &domain.IndexReport{Root: root}
	if ctx.Err() != nil {
		report.Cancelled = true
		return report, nil
	}

	ix.runMu.Lock()
	defer ix.runMu.Unlock()

	files, err := ix.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	var existing map[string]domain.SourceSummary
	if ix.incremental {
		sources, err := ix.Sources()
		if err != nil {
			report.Status = domain.StatusError
			return report, err
		}
		existing = make(map[string]domain.SourceSummary, len(sources))
		for _, s := range sources {
			existing[s.SourcePath] = s
		}
	}

	targets := make([]target, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Path] = true
		t := target{path: f.Path}
		if s, ok := existing[f.Path]; ok && f.ModTime < s.LastIndexed.Unix() {
			t.unchanged = true
		}
		targets = append(targets, t)
	}

	if err := ix.run(ctx, targets, report); err != nil {
		return report, err
	}

	if ix.incremental && !report.Cancelled {
		for path := range existing {
			if seen[path] || !withinRoot(root, path) {
				continue
			}
			if _, err := ix.store.RemoveChunksForSourcePath(path); err != nil {
				report.Status = domain.StatusError
				return report, err
			}
			report.Removed = append(report.Removed, path)
		}
		sort.Strings(report.Removed)
	}

	ix.logger.Info("indexing finished",
		"root", root,
		"indexed", report.Count(domain.OutcomeIndexed),
		"skipped", report.Count(domain.OutcomeSkipped),
		"failed", report.Count(domain.OutcomeFailed),
		"removed", len(report.Removed),
		"chunks", report.ChunksStored(),
	)
	return report, nil
}

// IndexFiles runs the per-file pipeline over a caller supplied list. Paths
// are stored in absolute form; those outside the allow-list are recorded as
// skipped.
func (ix *DocumentIndexer) IndexFiles(ctx context.Context, paths []string) (*domain.IndexReport, error) {
	return ix.indexFiles(ctx, "", paths)
}

// IndexFilesUnder is IndexFiles for paths that belong to a watched root:
// include and exclude patterns are matched relative to root, the same way
// IndexDirectory matches them.
func (ix *DocumentIndexer) IndexFilesUnder(ctx context.Context, root string, paths []string) (*domain.IndexReport, error) {
	return ix.indexFiles(ctx, absPath(root), paths)
}

func (ix *DocumentIndexer) indexFiles(ctx context.Context, root string, paths []string) (*domain.IndexReport, error) {
	report := &domain.IndexReport{Root: root}
	if ctx.Err() != nil {
		report.Cancelled = true
		return report, nil
	}

	ix.runMu.Lock()
	defer ix.runMu.Unlock()

	targets := make([]target, 0, len(paths))
	for _, p := range paths {
		p = absPath(p)
		eligible := ix.walker.Eligible(p)
		if root != "" {
			eligible = ix.walker.EligibleUnder(root, p)
		}
		targets = append(targets, target{path: p, ineligible: !eligible})
	}
	if err := ix.run(ctx, targets, report); err != nil {
		return report, err
	}

	ix.logger.Info("indexing finished",
		"files", len(paths),
		"indexed", report.Count(domain.OutcomeIndexed),
		"chunks", report.ChunksStored(),
	)
	return report, nil
}

type target struct {
	path       string
	unchanged  bool
	ineligible bool
}

// run processes targets in order. It returns an error only when the store
// fails, in which case the last progress event carries StatusError.
func (ix *DocumentIndexer) run(ctx context.Context, targets []target, report *domain.IndexReport) error {
	total := len(targets)
	report.Status = domain.StatusIndexing
	ix.emit(domain.IndexingProgress{Total: total, Status: domain.StatusIndexing})

	for i, t := range targets {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		var fr domain.FileReport
		var err error
		switch {
		case t.ineligible:
			fr = domain.FileReport{
				Path:    t.path,
				Outcome: domain.OutcomeSkipped,
				Reason:  domain.ReasonIneligible,
				Error:   domain.ErrUnsupportedFile.Error(),
			}
			ix.logger.Debug("skipping ineligible file", "path", t.path)
		case t.unchanged:
			fr = domain.FileReport{Path: t.path, Outcome: domain.OutcomeSkipped, Reason: domain.ReasonUnchanged}
		default:
			fr, err = ix.indexFile(ctx, t.path)
		}
		report.Files = append(report.Files, fr)

		if err != nil {
			report.Status = domain.StatusError
			ix.emit(domain.IndexingProgress{
				Total:       total,
				Processed:   i + 1,
				CurrentFile: filepath.Base(t.path),
				Status:      domain.StatusError,
			})
			return err
		}

		ix.emit(domain.IndexingProgress{
			Total:       total,
			Processed:   i + 1,
			CurrentFile: filepath.Base(t.path),
			Status:      domain.StatusIndexing,
		})
	}

	if ctx.Err() != nil {
		report.Cancelled = true
	}
	report.Status = domain.StatusComplete
	processed := len(report.Files)
	ix.emit(domain.IndexingProgress{Total: total, Processed: processed, Status: domain.StatusComplete})
	return nil
}

// indexFile runs the pipeline for one file. Only storage failures are
// returned as errors; everything else is recorded in the FileReport.
func (ix *DocumentIndexer) indexFile(ctx context.Context, path string) (domain.FileReport, error) {
	fr := domain.FileReport{Path: path}
	log := ix.logger.With("path", path)

	file, err := ix.loader.Load(ctx, path)
	if err != nil {
		log.Warn("failed to read file", "error", err)
		fr.Outcome = domain.OutcomeFailed
		fr.Reason = domain.ReasonReadFailed
		fr.Error = err.Error()
		return fr, nil
	}

	// A file that shrank below the minimum must not keep its old content
	// searchable. A cancelled file keeps whatever it had.
	text := strings.TrimSpace(file.Text)
	var segments []string
	if utf8.RuneCountInString(text) >= ix.minLength {
		segments = ix.chunker.Chunk(text)
	}
	if len(segments) == 0 {
		if _, err := ix.store.RemoveChunksForSourcePath(path); err != nil {
			return storageFailure(fr, err), err
		}
		log.Debug("skipping short content", "length", utf8.RuneCountInString(text))
		fr.Outcome = domain.OutcomeSkipped
		fr.Reason = domain.ReasonTooShort
		return fr, nil
	}

	// Embed everything before writing so the stored chunks of a file are
	// numbered 0..n-1 with no gaps for segments that failed.
	type embedded struct {
		text   string
		vector []float32
	}
	var ok []embedded
	for i, segment := range segments {
		if ctx.Err() != nil {
			log.Debug("discarding partially embedded file", "embedded", len(ok))
			fr.Outcome = domain.OutcomeSkipped
			fr.Reason = domain.ReasonCancelled
			return fr, nil
		}

		vector, err := ix.embedder.Embed(ctx, segment)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Warn("skipping chunk", "segment", i, "error", err)
			fr.ChunksFailed++
			continue
		}
		if len(ok) > 0 && len(vector) != len(ok[0].vector) {
			log.Warn("skipping chunk", "segment", i, "error", domain.ErrDimensionMismatch)
			fr.ChunksFailed++
			continue
		}
		ok = append(ok, embedded{text: segment, vector: vector})
	}
	if ctx.Err() != nil {
		fr.Outcome = domain.OutcomeSkipped
		fr.Reason = domain.ReasonCancelled
		return fr, nil
	}

	if _, err := ix.store.RemoveChunksForSourcePath(path); err != nil {
		return storageFailure(fr, err), err
	}
	if len(ok) == 0 {
		fr.Outcome = domain.OutcomeSkipped
		fr.Reason = domain.ReasonAllChunksFailed
		return fr, nil
	}

	createdAt := ix.now()
	for i, e := range ok {
		chunk := domain.Chunk{
			ID:          ix.newID(),
			Content:     e.text,
			SourceName:  file.Name,
			SourcePath:  path,
			SourceType:  file.MIMEType,
			ChunkIndex:  i,
			TotalChunks: len(ok),
			CreatedAt:   createdAt,
		}
		embedding := domain.Embedding{
			ID:       ix.newID(),
			ChunkID:  chunk.ID,
			Vector:   e.vector,
			Content:  e.text,
			Metadata: chunk.Metadata(),
		}
		if err := ix.store.PutChunkWithEmbedding(chunk, embedding); err != nil {
			if !errors.Is(err, domain.ErrDimensionMismatch) {
				return storageFailure(fr, err), err
			}
			// The index holds vectors of another size; none of this
			// file's vectors can be stored, so drop what was written.
			if _, rmErr := ix.store.RemoveChunksForSourcePath(path); rmErr != nil {
				return storageFailure(fr, rmErr), rmErr
			}
			log.Warn("skipping file", "error", err)
			fr.ChunksFailed += len(ok)
			fr.ChunksStored = 0
			fr.Outcome = domain.OutcomeSkipped
			fr.Reason = domain.ReasonAllChunksFailed
			fr.Error = err.Error()
			return fr, nil
		}
		fr.ChunksStored++
	}

	fr.Outcome = domain.OutcomeIndexed
	switch {
	case file.ExtractErr != nil:
		fr.Reason = domain.ReasonExtractionFailed
		fr.Error = file.ExtractErr.Error()
	case file.Placeholder:
		fr.Reason = domain.ReasonBinaryPlaceholder
	}
	log.Debug("indexed file",
		"chunks", fr.ChunksStored,
		"failed", fr.ChunksFailed,
		"pages", file.Metadata.PageCount,
		"paragraphs", file.Metadata.ParagraphCount,
		"sheets", len(file.Metadata.SheetNames),
		"rows", file.Metadata.RowCount,
		"slides", file.Metadata.SlideCount,
	)
	return fr, nil
}

func storageFailure(fr domain.FileReport, err error) domain.FileReport {
	fr.Outcome = domain.OutcomeFailed
	fr.Reason = domain.ReasonStorageFailed
	fr.Error = err.Error()
	return fr
}

// RemoveSource deletes every chunk stored for path and returns how many went.
func (ix *DocumentIndexer) RemoveSource(path string) (int, error) {
	ix.runMu.Lock()
	defer ix.runMu.Unlock()

	n, err := ix.store.RemoveChunksForSourcePath(path)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		ix.logger.Info("removed source", "path", path, "chunks", n)
	}
	return n, nil
}

// ClearIndex wipes all chunks and embeddings.
func (ix *DocumentIndexer) ClearIndex() error {
	ix.runMu.Lock()
	defer ix.runMu.Unlock()
	return ix.store.ClearAll()
}

func (ix *DocumentIndexer) Stats() (domain.Stats, error) {
	return ix.store.Stats()
}

// Sources groups the stored chunks by source path, sorted by path.
func (ix *DocumentIndexer) Sources() ([]domain.SourceSummary, error) {
	return ListSources(ix.store)
}

// ListSources summarises the chunks held by store per source path.
func ListSources(store port.VectorStore) ([]domain.SourceSummary, error) {
	chunks, err := store.AllChunks()
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]*domain.SourceSummary)
	for _, c := range chunks {
		s, ok := byPath[c.SourcePath]
		if !ok {
			s = &domain.SourceSummary{
				SourcePath: c.SourcePath,
				SourceName: c.SourceName,
				SourceType: c.SourceType,
			}
			byPath[c.SourcePath] = s
		}
		s.ChunkCount++
		if c.CreatedAt.After(s.LastIndexed) {
			s.LastIndexed = c.CreatedAt
		}
	}

	out := make([]domain.SourceSummary, 0, len(byPath))
	for _, s := range byPath {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourcePath < out[j].SourcePath })
	return out, nil
}

func withinRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
