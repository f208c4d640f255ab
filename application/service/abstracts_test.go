package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/helixml/scholar/domain/corpus"
)

type abstractsEnv struct {
	db        *memDB
	store     *memAbstracts
	authors   *memAuthors
	cats      *memCategories
	absIndex  *fakeIndex
	authIndex *fakeIndex
	embedder  *fakeEmbedder
}

func newAbstractsEnv() *abstractsEnv {
	db := newMemDB()
	return &abstractsEnv{
		db:        db,
		store:     &memAbstracts{db: db},
		authors:   &memAuthors{db: db},
		cats:      &memCategories{db: db},
		absIndex:  newFakeIndex(),
		authIndex: newFakeIndex(),
		embedder:  &fakeEmbedder{},
	}
}

func (e *abstractsEnv) service(embed bool) *Abstracts {
	sync := NewSynchronizer(e.store, e.authors, e.absIndex, e.authIndex, nil)
	if embed {
		return NewAbstracts(e.store, e.cats, e.embedder, sync, nil)
	}
	return NewAbstracts(e.store, e.cats, nil, sync, nil)
}

func TestAbstracts_GetDetail(t *testing.T) {
	env := newAbstractsEnv()
	env.db.abstracts = []corpus.Abstract{embeddedAbstract(1, []float32{1, 0})}
	env.db.authors = []corpus.Author{corpus.NewAuthor(10, "Ada")}
	env.db.categories = []corpus.Category{corpus.NewCategory(5, "NLP")}
	env.db.authorLinks[1] = []int64{10}
	env.db.catLinks[1] = []int64{5}
	svc := env.service(true)

	detail, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Abstract.ID() != 1 {
		t.Errorf("abstract id = %d, want 1", detail.Abstract.ID())
	}
	if len(detail.Authors) != 1 || detail.Authors[0].Name() != "Ada" {
		t.Errorf("authors = %+v, want Ada", detail.Authors)
	}
	if len(detail.Categories) != 1 || detail.Categories[0].Title() != "NLP" {
		t.Errorf("categories = %+v, want NLP", detail.Categories)
	}

	if _, err := svc.Get(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestAbstracts_ListByRecency(t *testing.T) {
	env := newAbstractsEnv()
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.db.abstracts = []corpus.Abstract{
		corpus.ReconstructAbstract(1, "Old", "b", "", old, nil),
		corpus.ReconstructAbstract(2, "Recent", "b", "", recent, nil),
		corpus.ReconstructAbstract(3, "Undated", "b", "", time.Time{}, nil),
	}
	svc := env.service(true)

	page, err := svc.List(context.Background(), WithPageSize(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := hitIDs(page.Hits), []int64{2, 1}; !slices.Equal(got, want) {
		t.Errorf("page 1 = %v, want %v", got, want)
	}

	page, err = svc.List(context.Background(), WithPage(2), WithPageSize(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := hitIDs(page.Hits), []int64{3}; !slices.Equal(got, want) {
		t.Errorf("page 2 = %v, want undated row %v", got, want)
	}
}

func TestAbstracts_UpdateTextReembedsAndSyncs(t *testing.T) {
	env := newAbstractsEnv()
	env.db.abstracts = []corpus.Abstract{
		corpus.ReconstructAbstract(1, "Old Title", "body", "", time.Time{}, []float32{1, 0}),
	}
	env.db.authors = []corpus.Author{corpus.ReconstructAuthor(10, "Ada", []float32{1, 0})}
	env.db.authorLinks[1] = []int64{10}
	env.embedder.byText = map[string][]float32{"New Title. body": {0, 1}}
	svc := env.service(true)

	title := "New Title"
	result, err := svc.Update(context.Background(), 1, AbstractPatch{Title: &title})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Reembedded {
		t.Error("a title change must re-embed")
	}
	if !result.Sync.Committed || !result.Sync.IndexSynced {
		t.Errorf("sync = %+v, want committed and synced", result.Sync)
	}

	got, err := env.store.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title() != "New Title" || !slices.Equal(got.Vector(), []float32{0, 1}) {
		t.Errorf("stored = %q %v, want the new title and vector", got.Title(), got.Vector())
	}

	// The index entry and the author mean follow the new vector.
	if !slices.Equal(env.absIndex.added[1], []float32{0, 1}) {
		t.Errorf("index upsert = %v, want the new vector", env.absIndex.added[1])
	}
	author, err := env.authors.Get(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(author.Vector(), []float32{0, 1}) {
		t.Errorf("author mean = %v, want to follow the re-embedded abstract", author.Vector())
	}
}

func TestAbstracts_UpdateMetadataOnlySkipsReembed(t *testing.T) {
	env := newAbstractsEnv()
	env.db.abstracts = []corpus.Abstract{
		corpus.ReconstructAbstract(1, "Title", "body", "", time.Time{}, []float32{1, 0}),
	}
	svc := env.service(true)

	event := "ICML"
	result, err := svc.Update(context.Background(), 1, AbstractPatch{Event: &event})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Reembedded {
		t.Error("metadata changes must not re-embed")
	}
	if !result.Sync.IndexSynced {
		t.Error("an unchanged vector reports a vacuously complete sync")
	}
	if len(env.embedder.calls) != 0 {
		t.Error("embedder must not run for metadata changes")
	}

	got, err := env.store.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Event() != "ICML" || !slices.Equal(got.Vector(), []float32{1, 0}) {
		t.Errorf("stored = %q %v, want the new event and the old vector", got.Event(), got.Vector())
	}
}

func TestAbstracts_UpdateClearsDate(t *testing.T) {
	env := newAbstractsEnv()
	env.db.abstracts = []corpus.Abstract{
		corpus.ReconstructAbstract(1, "Title", "body", "",
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil),
	}
	svc := env.service(true)

	var zero time.Time
	if _, err := svc.Update(context.Background(), 1, AbstractPatch{PublishedAt: &zero}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := env.store.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.HasPublicationDate() {
		t.Error("a zero PublishedAt patch must clear the date")
	}
}

func TestAbstracts_UpdateReplacesCategories(t *testing.T) {
	env := newAbstractsEnv()
	env.db.abstracts = []corpus.Abstract{embeddedAbstract(1, nil)}
	env.db.categories = []corpus.Category{
		corpus.NewCategory(5, "Old"),
		corpus.NewCategory(6, "Kept"),
	}
	env.db.catLinks[1] = []int64{5}
	svc := env.service(true)

	patch := AbstractPatch{
		SetCategories: true,
		Categories:    []CategoryRef{{ID: 6}, {Title: "Fresh"}},
	}
	if _, err := svc.Update(context.Background(), 1, patch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := env.db.catLinks[1]
	if len(got) != 2 || slices.Contains(got, int64(5)) {
		t.Errorf("category links = %v, want the old link replaced", got)
	}
	if len(env.db.categories) != 3 {
		t.Errorf("categories = %d, want the unknown title created", len(env.db.categories))
	}

	// Without SetCategories the links stay.
	if _, err := svc.Update(context.Background(), 1, AbstractPatch{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(env.db.catLinks[1], got) {
		t.Errorf("links changed to %v on an empty patch", env.db.catLinks[1])
	}
}

func TestAbstracts_UpdateWithoutEmbedderKeepsVector(t *testing.T) {
	env := newAbstractsEnv()
	env.db.abstracts = []corpus.Abstract{
		corpus.ReconstructAbstract(1, "Title", "body", "", time.Time{}, []float32{1, 0}),
	}
	svc := env.service(false)

	title := "Renamed"
	result, err := svc.Update(context.Background(), 1, AbstractPatch{Title: &title})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Reembedded {
		t.Error("no embedder, no re-embed")
	}

	got, err := env.store.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title() != "Renamed" || !slices.Equal(got.Vector(), []float32{1, 0}) {
		t.Errorf("stored = %q %v, want the new title and the stale vector", got.Title(), got.Vector())
	}
}

func TestAbstracts_UpdateNotFound(t *testing.T) {
	env := newAbstractsEnv()
	svc := env.service(true)

	_, err := svc.Update(context.Background(), 404, AbstractPatch{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestAbstracts_DeleteCascades(t *testing.T) {
	env := newAbstractsEnv()
	env.db.abstracts = []corpus.Abstract{embeddedAbstract(1, []float32{1, 0})}
	env.db.authors = []corpus.Author{corpus.ReconstructAuthor(10, "Ada", []float32{1, 0})}
	env.db.authorLinks[1] = []int64{10}
	svc := env.service(true)

	result, err := svc.Delete(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", result.Deleted)
	}

	exists, err := env.store.Exists(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("the row must be gone")
	}
	if !slices.Contains(env.absIndex.removed, int64(1)) {
		t.Errorf("abstract index removals = %v, want to contain 1", env.absIndex.removed)
	}

	// The author's links were captured before the delete, so the mean was
	// recomputed; with no abstracts left it clears.
	if result.Sync.AuthorsCleared != 1 {
		t.Errorf("sync = %+v, want the orphaned author cleared", result.Sync)
	}
	author, err := env.authors.Get(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if author.HasVector() {
		t.Error("author vector must clear when the last abstract goes")
	}
	if !slices.Contains(env.authIndex.removed, int64(10)) {
		t.Errorf("author index removals = %v, want to contain 10", env.authIndex.removed)
	}
}

func TestAbstracts_DeleteNotFound(t *testing.T) {
	env := newAbstractsEnv()
	svc := env.service(true)

	_, err := svc.Delete(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
