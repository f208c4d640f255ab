package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/helixml/scholar/domain/corpus"
	"github.com/helixml/scholar/domain/repository"
	"github.com/helixml/scholar/domain/search"
)

// AuthorRef names one author, by id, by name, or both. The name is used
// when the author has to be created; an empty one falls back to the
// corpus default.
type AuthorRef struct {
	ID   int64
	Name string
}

// CategoryRef names one category, by id with a title for first creation,
// or by title alone.
type CategoryRef struct {
	ID    int64
	Title string
}

// ImportRow is one abstract in an import payload. A zero id creates a
// fresh row; a known id merges links into the existing abstract without
// touching its fields or vector.
type ImportRow struct {
	ID          int64
	Title       string
	Body        string
	Event       string
	PublishedAt time.Time
	Authors     []AuthorRef
	Categories  []CategoryRef
}

// ImportReport summarizes one import run. AuthorsUpdated counts the
// authors whose aggregate vector was recomputed.
type ImportReport struct {
	OpID           string
	Imported       int
	AuthorsUpdated int
	Skipped        int
	Duration       time.Duration
	Sync           SyncReport
}

// Importer ingests batches of abstracts with their author and category
// links.
type Importer struct {
	abstracts  corpus.AbstractStore
	authors    corpus.AuthorStore
	categories corpus.CategoryStore
	embedder   search.Embedder
	sync       *Synchronizer
	logger     *slog.Logger
}

// NewImporter creates an Importer. A nil embedder imports structure only
// and leaves new rows vectorless.
func NewImporter(
	abstracts corpus.AbstractStore,
	authors corpus.AuthorStore,
	categories corpus.CategoryStore,
	embedder search.Embedder,
	sync *Synchronizer,
	logger *slog.Logger,
) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		abstracts:  abstracts,
		authors:    authors,
		categories: categories,
		embedder:   embedder,
		sync:       sync,
		logger:     logger,
	}
}

// Import ingests the rows in three phases: structure (abstracts, authors,
// categories, links), then embeddings for the newly created abstracts,
// then one synchronizer pass over everything that changed.
func (s Importer) Import(ctx context.Context, rows []ImportRow) (ImportReport, error) {
	op := opID()
	start := time.Now()
	logger := s.logger.With("op_id", op)
	logger.Info("import started", "rows", len(rows))

	var (
		newRows           []corpus.Abstract
		newIDs            []int64
		newTexts          []string
		affectedAuthors   []int64
		affectedSeen      = make(map[int64]struct{})
		skipped           int
		createdAuthors    int
		createdCategories int
	)

	for i, row := range rows {
		if row.ID == 0 && strings.TrimSpace(row.Title) == "" && strings.TrimSpace(row.Body) == "" {
			skipped++
			logger.Warn("skip row without id, title, or body", "index", i)
			continue
		}

		abstract, isNew, err := s.upsertAbstract(ctx, row)
		if err != nil {
			return ImportReport{}, err
		}
		if isNew {
			newRows = append(newRows, abstract)
			newIDs = append(newIDs, abstract.ID())
			newTexts = append(newTexts, abstract.EmbeddingText())
		}

		authorIDs, created, err := s.resolveAuthors(ctx, row.Authors)
		if err != nil {
			return ImportReport{}, err
		}
		createdAuthors += created

		fresh, err := s.linkNewAuthors(ctx, abstract.ID(), authorIDs)
		if err != nil {
			return ImportReport{}, err
		}
		for _, authorID := range fresh {
			if _, ok := affectedSeen[authorID]; !ok {
				affectedSeen[authorID] = struct{}{}
				affectedAuthors = append(affectedAuthors, authorID)
			}
		}

		categoryIDs, created, err := resolveCategories(ctx, s.categories, row.Categories, logger)
		if err != nil {
			return ImportReport{}, err
		}
		createdCategories += created
		if err := s.abstracts.LinkCategories(ctx, abstract.ID(), categoryIDs); err != nil {
			return ImportReport{}, fmt.Errorf("link categories: %w", err)
		}
	}

	if len(newRows) > 0 {
		if s.embedder == nil {
			logger.Warn("embedding backend unavailable, imported abstracts stay vectorless",
				"count", len(newRows))
		} else if err := s.embedNewRows(ctx, newRows); err != nil {
			return ImportReport{}, err
		}
	}

	syncReport, err := s.sync.Apply(ctx, newIDs, affectedAuthors)
	if err != nil {
		return ImportReport{}, fmt.Errorf("synchronize after import: %w", err)
	}

	report := ImportReport{
		OpID:           op,
		Imported:       len(newIDs),
		AuthorsUpdated: syncReport.AuthorsUpdated + syncReport.AuthorsCleared,
		Skipped:        skipped,
		Duration:       time.Since(start),
		Sync:           syncReport,
	}
	logger.Info("import done",
		"rows", len(rows),
		"new_abstracts", report.Imported,
		"new_authors", createdAuthors,
		"new_categories", createdCategories,
		"skipped", skipped,
		"authors_updated", report.AuthorsUpdated,
		"index_synced", syncReport.IndexSynced,
		"duration_ms", durationMillis(report.Duration))
	return report, nil
}

// upsertAbstract returns the row's abstract, creating it when the id is
// unknown or zero. Existing abstracts come back untouched.
func (s Importer) upsertAbstract(ctx context.Context, row ImportRow) (corpus.Abstract, bool, error) {
	if row.ID != 0 {
		existing, err := s.abstracts.Get(ctx, row.ID)
		if err == nil {
			return existing, false, nil
		}
		if !missing(err) {
			return corpus.Abstract{}, false, fmt.Errorf("load abstract %d: %w", row.ID, err)
		}
	}

	abstract := corpus.NewAbstract(row.ID, row.Title, row.Body)
	if row.Event != "" {
		abstract = abstract.WithEvent(row.Event)
	}
	if !row.PublishedAt.IsZero() {
		abstract = abstract.WithPublishedAt(row.PublishedAt)
	}

	saved, err := s.abstracts.Save(ctx, abstract)
	if err != nil {
		return corpus.Abstract{}, false, fmt.Errorf("save abstract: %w", err)
	}
	return saved, true, nil
}

// resolveAuthors maps author references to ids, creating the missing
// ones. References with neither id nor name are skipped.
func (s Importer) resolveAuthors(ctx context.Context, refs []AuthorRef) ([]int64, int, error) {
	ids := make([]int64, 0, len(refs))
	created := 0

	for _, ref := range refs {
		name := strings.TrimSpace(ref.Name)
		switch {
		case ref.ID != 0:
			if _, err := s.authors.Get(ctx, ref.ID); err == nil {
				ids = append(ids, ref.ID)
				continue
			} else if !missing(err) {
				return nil, created, fmt.Errorf("load author %d: %w", ref.ID, err)
			}
			saved, err := s.authors.Save(ctx, corpus.NewAuthor(ref.ID, name))
			if err != nil {
				return nil, created, fmt.Errorf("create author %d: %w", ref.ID, err)
			}
			ids = append(ids, saved.ID())
			created++

		case name != "":
			found, err := s.authors.List(ctx, repository.WithName(name))
			if err != nil {
				return nil, created, fmt.Errorf("find author %q: %w", name, err)
			}
			if len(found) > 0 {
				ids = append(ids, found[0].ID())
				continue
			}
			saved, err := s.authors.Save(ctx, corpus.NewAuthor(0, name))
			if err != nil {
				return nil, created, fmt.Errorf("create author %q: %w", name, err)
			}
			ids = append(ids, saved.ID())
			created++

		default:
			s.logger.Warn("skip author reference without id or name")
		}
	}
	return ids, created, nil
}

// linkNewAuthors links the authors not yet linked to the abstract and
// returns the ids that gained a link.
func (s Importer) linkNewAuthors(ctx context.Context, abstractID int64, authorIDs []int64) ([]int64, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	existing, err := s.abstracts.LinkedAuthorIDs(ctx, []int64{abstractID})
	if err != nil {
		return nil, fmt.Errorf("load author links: %w", err)
	}
	linked := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		linked[id] = struct{}{}
	}

	var fresh []int64
	for _, id := range authorIDs {
		if _, ok := linked[id]; ok {
			continue
		}
		linked[id] = struct{}{}
		fresh = append(fresh, id)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	if err := s.abstracts.LinkAuthors(ctx, abstractID, fresh); err != nil {
		return nil, fmt.Errorf("link authors: %w", err)
	}
	return fresh, nil
}

// embedNewRows embeds and stores vectors for the freshly created rows.
// The embedder batches internally.
func (s Importer) embedNewRows(ctx context.Context, newRows []corpus.Abstract) error {
	texts := make([]string, len(newRows))
	for i, row := range newRows {
		texts[i] = row.EmbeddingText()
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed imported abstracts: %w", err)
	}
	if len(vectors) != len(newRows) {
		return fmt.Errorf("embed imported abstracts: got %d vectors for %d texts", len(vectors), len(newRows))
	}

	for i, row := range newRows {
		if _, err := s.abstracts.Save(ctx, row.WithVector(vectors[i])); err != nil {
			return fmt.Errorf("save embedding for abstract %d: %w", row.ID(), err)
		}
	}
	return nil
}

// resolveCategories maps category references to ids, creating the
// missing ones. References lacking both an id and a title are skipped,
// as are unknown ids without a title to create them under.
func resolveCategories(ctx context.Context, store corpus.CategoryStore, refs []CategoryRef, logger *slog.Logger) ([]int64, int, error) {
	ids := make([]int64, 0, len(refs))
	created := 0

	for _, ref := range refs {
		title := strings.TrimSpace(ref.Title)
		switch {
		case ref.ID != 0:
			if _, err := store.Get(ctx, ref.ID); err == nil {
				ids = append(ids, ref.ID)
				continue
			} else if !missing(err) {
				return nil, created, fmt.Errorf("load category %d: %w", ref.ID, err)
			}
			if title == "" {
				logger.Warn("skip unknown category without title", "id", ref.ID)
				continue
			}
			saved, err := store.Save(ctx, corpus.NewCategory(ref.ID, title))
			if err != nil {
				return nil, created, fmt.Errorf("create category %d: %w", ref.ID, err)
			}
			ids = append(ids, saved.ID())
			created++

		case title != "":
			found, err := store.List(ctx, repository.WithTitle(title))
			if err != nil {
				return nil, created, fmt.Errorf("find category %q: %w", title, err)
			}
			if len(found) > 0 {
				ids = append(ids, found[0].ID())
				continue
			}
			saved, err := store.Save(ctx, corpus.NewCategory(0, title))
			if err != nil {
				return nil, created, fmt.Errorf("create category %q: %w", title, err)
			}
			ids = append(ids, saved.ID())
			created++

		default:
			logger.Warn("skip category reference without id or title")
		}
	}
	return ids, created, nil
}

// opID returns a short random id correlating one operation's log lines.
func opID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b[:])
}

// durationMillis renders a duration as milliseconds with one decimal.
func durationMillis(d time.Duration) float64 {
	ms := float64(d.Microseconds()) / 1000.0
	return math.Round(ms*10) / 10
}
