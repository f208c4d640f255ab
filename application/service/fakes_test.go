package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/helixml/scholar/domain/corpus"
	"github.com/helixml/scholar/domain/repository"
	"github.com/helixml/scholar/domain/search"
	"github.com/helixml/scholar/internal/database"
)

// memDB is the shared in-memory state behind the store fakes, so that
// one test can wire several stores over the same rows and links.
type memDB struct {
	abstracts  []corpus.Abstract
	authors    []corpus.Author
	categories []corpus.Category

	authorLinks map[int64][]int64 // abstract id -> author ids
	catLinks    map[int64][]int64 // abstract id -> category ids

	nextAbstract int64
	nextAuthor   int64
	nextCategory int64
}

func newMemDB() *memDB {
	return &memDB{
		authorLinks:  map[int64][]int64{},
		catLinks:     map[int64][]int64{},
		nextAbstract: 1000,
		nextAuthor:   1000,
		nextCategory: 1000,
	}
}

func (db *memDB) abstractAt(id int64) (int, bool) {
	for i, a := range db.abstracts {
		if a.ID() == id {
			return i, true
		}
	}
	return 0, false
}

func (db *memDB) authorAt(id int64) (int, bool) {
	for i, a := range db.authors {
		if a.ID() == id {
			return i, true
		}
	}
	return 0, false
}

func (db *memDB) categoryAt(id int64) (int, bool) {
	for i, c := range db.categories {
		if c.ID() == id {
			return i, true
		}
	}
	return 0, false
}

// memAbstracts implements corpus.AbstractStore over a memDB.
type memAbstracts struct {
	db      *memDB
	saveErr error
}

func (f *memAbstracts) Get(_ context.Context, id int64) (corpus.Abstract, error) {
	if i, ok := f.db.abstractAt(id); ok {
		return f.db.abstracts[i], nil
	}
	return corpus.Abstract{}, fmt.Errorf("%w: abstract", database.ErrNotFound)
}

// ByIDs returns rows in insertion order, not ranked order, like a real
// store would.
func (f *memAbstracts) ByIDs(_ context.Context, ids []int64) ([]corpus.Abstract, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := []corpus.Abstract{}
	for _, a := range f.db.abstracts {
		if _, ok := want[a.ID()]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *memAbstracts) List(_ context.Context, opts ...repository.Option) ([]corpus.Abstract, error) {
	q := repository.Build(opts...)
	out := []corpus.Abstract{}
	for _, a := range f.db.abstracts {
		if matchAbstract(a, q.Conditions()) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b corpus.Abstract) int {
		return compareByOrders(q.Orders(), func(ord repository.Order) int {
			switch ord.Field() {
			case "publication_date":
				return compareDates(a.PublishedAt(), b.PublishedAt(), ord)
			case "id":
				return directed(cmp.Compare(a.ID(), b.ID()), ord)
			}
			return 0
		})
	})
	return page(out, q), nil
}

func (f *memAbstracts) ByAuthor(_ context.Context, authorID int64) ([]corpus.Abstract, error) {
	out := []corpus.Abstract{}
	for _, a := range f.db.abstracts {
		if slices.Contains(f.db.authorLinks[a.ID()], authorID) {
			out = append(out, a)
		}
	}
	recency := repository.Build(repository.WithRecencyOrder()...)
	slices.SortStableFunc(out, func(a, b corpus.Abstract) int {
		return compareByOrders(recency.Orders(), func(ord repository.Order) int {
			if ord.Field() == "publication_date" {
				return compareDates(a.PublishedAt(), b.PublishedAt(), ord)
			}
			return directed(cmp.Compare(a.ID(), b.ID()), ord)
		})
	})
	return out, nil
}

func (f *memAbstracts) Save(_ context.Context, abstract corpus.Abstract) (corpus.Abstract, error) {
	if f.saveErr != nil {
		return corpus.Abstract{}, f.saveErr
	}
	if abstract.ID() == 0 {
		f.db.nextAbstract++
		abstract = corpus.ReconstructAbstract(
			f.db.nextAbstract, abstract.Title(), abstract.Body(),
			abstract.Event(), abstract.PublishedAt(), abstract.Vector(),
		)
	}
	if i, ok := f.db.abstractAt(abstract.ID()); ok {
		f.db.abstracts[i] = abstract
	} else {
		f.db.abstracts = append(f.db.abstracts, abstract)
	}
	return abstract, nil
}

func (f *memAbstracts) Delete(_ context.Context, id int64) error {
	if i, ok := f.db.abstractAt(id); ok {
		f.db.abstracts = slices.Delete(f.db.abstracts, i, i+1)
	}
	delete(f.db.authorLinks, id)
	delete(f.db.catLinks, id)
	return nil
}

func (f *memAbstracts) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := f.db.abstractAt(id)
	return ok, nil
}

func (f *memAbstracts) Count(_ context.Context) (int, error) {
	return len(f.db.abstracts), nil
}

func (f *memAbstracts) IDsByCategories(_ context.Context, categoryIDs []int64) ([]int64, error) {
	out := []int64{}
	for _, a := range f.db.abstracts {
		for _, catID := range f.db.catLinks[a.ID()] {
			if slices.Contains(categoryIDs, catID) {
				out = append(out, a.ID())
				break
			}
		}
	}
	return out, nil
}

func (f *memAbstracts) VectorsByAuthor(_ context.Context, authorID int64, exclude ...int64) ([][]float32, error) {
	out := [][]float32{}
	for _, a := range f.db.abstracts {
		if !slices.Contains(f.db.authorLinks[a.ID()], authorID) {
			continue
		}
		if !a.HasVector() || slices.Contains(exclude, a.ID()) {
			continue
		}
		out = append(out, a.Vector())
	}
	return out, nil
}

func (f *memAbstracts) VectoredRecords(_ context.Context) ([]search.Record, error) {
	out := []search.Record{}
	for _, a := range f.db.abstracts {
		if a.HasVector() {
			out = append(out, search.NewRecord(a.ID(), a.Vector()))
		}
	}
	slices.SortFunc(out, func(a, b search.Record) int { return cmp.Compare(a.ID(), b.ID()) })
	return out, nil
}

func (f *memAbstracts) LinkAuthors(_ context.Context, abstractID int64, authorIDs []int64) error {
	for _, id := range authorIDs {
		if !slices.Contains(f.db.authorLinks[abstractID], id) {
			f.db.authorLinks[abstractID] = append(f.db.authorLinks[abstractID], id)
		}
	}
	return nil
}

func (f *memAbstracts) LinkCategories(_ context.Context, abstractID int64, categoryIDs []int64) error {
	for _, id := range categoryIDs {
		if !slices.Contains(f.db.catLinks[abstractID], id) {
			f.db.catLinks[abstractID] = append(f.db.catLinks[abstractID], id)
		}
	}
	return nil
}

func (f *memAbstracts) ReplaceCategories(_ context.Context, abstractID int64, categoryIDs []int64) error {
	f.db.catLinks[abstractID] = slices.Clone(categoryIDs)
	return nil
}

func (f *memAbstracts) LinkedAuthorIDs(_ context.Context, abstractIDs []int64) ([]int64, error) {
	seen := map[int64]struct{}{}
	out := []int64{}
	for _, abstractID := range abstractIDs {
		for _, id := range f.db.authorLinks[abstractID] {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (f *memAbstracts) AuthorsByAbstractIDs(_ context.Context, abstractIDs []int64) (map[int64][]corpus.Author, error) {
	out := map[int64][]corpus.Author{}
	for _, abstractID := range abstractIDs {
		for _, id := range f.db.authorLinks[abstractID] {
			if i, ok := f.db.authorAt(id); ok {
				out[abstractID] = append(out[abstractID], f.db.authors[i])
			}
		}
	}
	return out, nil
}

func (f *memAbstracts) CategoriesByAbstractIDs(_ context.Context, abstractIDs []int64) (map[int64][]corpus.Category, error) {
	out := map[int64][]corpus.Category{}
	for _, abstractID := range abstractIDs {
		for _, id := range f.db.catLinks[abstractID] {
			if i, ok := f.db.categoryAt(id); ok {
				out[abstractID] = append(out[abstractID], f.db.categories[i])
			}
		}
	}
	return out, nil
}

// memAuthors implements corpus.AuthorStore over a memDB.
type memAuthors struct {
	db               *memDB
	saveVectorsErr   error
	saveVectorsCalls [][]corpus.VectorUpdate
}

func (f *memAuthors) Get(_ context.Context, id int64) (corpus.Author, error) {
	if i, ok := f.db.authorAt(id); ok {
		return f.db.authors[i], nil
	}
	return corpus.Author{}, fmt.Errorf("%w: author", database.ErrNotFound)
}

func (f *memAuthors) ByIDs(_ context.Context, ids []int64) ([]corpus.Author, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := []corpus.Author{}
	for _, a := range f.db.authors {
		if _, ok := want[a.ID()]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *memAuthors) List(_ context.Context, opts ...repository.Option) ([]corpus.Author, error) {
	q := repository.Build(opts...)
	out := []corpus.Author{}
	for _, a := range f.db.authors {
		if matchAuthor(a, q.Conditions()) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b corpus.Author) int {
		return compareByOrders(q.Orders(), func(ord repository.Order) int {
			switch ord.Field() {
			case "name":
				return directed(cmp.Compare(a.Name(), b.Name()), ord)
			case "id":
				return directed(cmp.Compare(a.ID(), b.ID()), ord)
			}
			return 0
		})
	})
	return page(out, q), nil
}

func (f *memAuthors) Save(_ context.Context, author corpus.Author) (corpus.Author, error) {
	if author.ID() == 0 {
		f.db.nextAuthor++
		author = corpus.ReconstructAuthor(f.db.nextAuthor, author.Name(), author.Vector())
	}
	if i, ok := f.db.authorAt(author.ID()); ok {
		f.db.authors[i] = author
	} else {
		f.db.authors = append(f.db.authors, author)
	}
	return author, nil
}

func (f *memAuthors) Delete(_ context.Context, id int64) error {
	if i, ok := f.db.authorAt(id); ok {
		f.db.authors = slices.Delete(f.db.authors, i, i+1)
	}
	for abstractID, linked := range f.db.authorLinks {
		f.db.authorLinks[abstractID] = slices.DeleteFunc(linked, func(a int64) bool { return a == id })
	}
	return nil
}

func (f *memAuthors) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := f.db.authorAt(id)
	return ok, nil
}

func (f *memAuthors) Count(_ context.Context) (int, error) {
	return len(f.db.authors), nil
}

func (f *memAuthors) SaveVectors(_ context.Context, updates []corpus.VectorUpdate) error {
	f.saveVectorsCalls = append(f.saveVectorsCalls, updates)
	if f.saveVectorsErr != nil {
		return f.saveVectorsErr
	}
	for _, u := range updates {
		i, ok := f.db.authorAt(u.AuthorID())
		if !ok {
			continue
		}
		if u.Clears() {
			f.db.authors[i] = f.db.authors[i].WithoutVector()
		} else {
			f.db.authors[i] = f.db.authors[i].WithVector(u.Vector())
		}
	}
	return nil
}

func (f *memAuthors) AbstractCounts(_ context.Context, authorIDs []int64) (map[int64]int, error) {
	out := map[int64]int{}
	for _, id := range authorIDs {
		for _, linked := range f.db.authorLinks {
			if slices.Contains(linked, id) {
				out[id]++
			}
		}
	}
	return out, nil
}

func (f *memAuthors) VectoredRecords(_ context.Context) ([]search.Record, error) {
	out := []search.Record{}
	for _, a := range f.db.authors {
		if a.HasVector() {
			out = append(out, search.NewRecord(a.ID(), a.Vector()))
		}
	}
	slices.SortFunc(out, func(a, b search.Record) int { return cmp.Compare(a.ID(), b.ID()) })
	return out, nil
}

// memCategories implements corpus.CategoryStore over a memDB.
type memCategories struct {
	db *memDB
}

func (f *memCategories) Get(_ context.Context, id int64) (corpus.Category, error) {
	if i, ok := f.db.categoryAt(id); ok {
		return f.db.categories[i], nil
	}
	return corpus.Category{}, fmt.Errorf("%w: category", database.ErrNotFound)
}

func (f *memCategories) List(_ context.Context, opts ...repository.Option) ([]corpus.Category, error) {
	q := repository.Build(opts...)
	out := []corpus.Category{}
	for _, c := range f.db.categories {
		if matchCategory(c, q.Conditions()) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b corpus.Category) int {
		return compareByOrders(q.Orders(), func(ord repository.Order) int {
			switch ord.Field() {
			case "title":
				return directed(cmp.Compare(a.Title(), b.Title()), ord)
			case "id":
				return directed(cmp.Compare(a.ID(), b.ID()), ord)
			}
			return 0
		})
	})
	return page(out, q), nil
}

func (f *memCategories) Save(_ context.Context, category corpus.Category) (corpus.Category, error) {
	if category.ID() == 0 {
		f.db.nextCategory++
		category = corpus.NewCategory(f.db.nextCategory, category.Title())
	}
	if i, ok := f.db.categoryAt(category.ID()); ok {
		f.db.categories[i] = category
	} else {
		f.db.categories = append(f.db.categories, category)
	}
	return category, nil
}

func (f *memCategories) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := f.db.categoryAt(id)
	return ok, nil
}

func (f *memCategories) Count(_ context.Context) (int, error) {
	return len(f.db.categories), nil
}

func (f *memCategories) AbstractCounts(_ context.Context) (map[int64]int, error) {
	out := map[int64]int{}
	for _, links := range f.db.catLinks {
		for _, id := range links {
			out[id]++
		}
	}
	return out, nil
}

// fakeIndex implements search.Index with scripted neighbors and recorded
// mutations.
type fakeIndex struct {
	neighbors []search.Neighbor
	count     int
	searchErr error
	addErr    error
	removeErr error

	lastQuery []float32
	lastK     int
	added     map[int64][]float32
	removed   []int64
	built     [][]search.Record
	saves     int
}

func newFakeIndex(neighbors ...search.Neighbor) *fakeIndex {
	return &fakeIndex{
		neighbors: neighbors,
		count:     len(neighbors),
		added:     map[int64][]float32{},
	}
}

func (f *fakeIndex) BuildFromRecords(_ context.Context, records []search.Record) error {
	f.built = append(f.built, records)
	f.count = len(records)
	return nil
}

func (f *fakeIndex) Save(_ context.Context) error {
	f.saves++
	return nil
}

func (f *fakeIndex) AddOrUpdate(_ context.Context, ids []int64, vectors [][]float32) error {
	if f.addErr != nil {
		return f.addErr
	}
	for i, id := range ids {
		f.added[id] = vectors[i]
	}
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, ids []int64) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, ids...)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, query []float32, k int) ([]search.Neighbor, error) {
	f.lastQuery = query
	f.lastK = k
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if k > len(f.neighbors) {
		k = len(f.neighbors)
	}
	return f.neighbors[:k], nil
}

func (f *fakeIndex) Count(_ context.Context) (int, error) {
	return f.count, nil
}

// fakeEmbedder implements search.Embedder with per-text scripted vectors
// and a length-based default.
type fakeEmbedder struct {
	byText map[string][]float32
	err    error
	calls  [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, slices.Clone(texts))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := f.byText[text]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

// --- query interpretation helpers ---

func matchAbstract(a corpus.Abstract, conds []repository.Condition) bool {
	for _, c := range conds {
		if c.Field() == "id" && c.In() {
			ids, _ := c.Value().([]int64)
			if !slices.Contains(ids, a.ID()) {
				return false
			}
		}
	}
	return true
}

func matchAuthor(a corpus.Author, conds []repository.Condition) bool {
	for _, c := range conds {
		switch {
		case c.Field() == "name":
			if name, _ := c.Value().(string); name != a.Name() {
				return false
			}
		case c.Field() == "id" && c.In():
			ids, _ := c.Value().([]int64)
			if !slices.Contains(ids, a.ID()) {
				return false
			}
		}
	}
	return true
}

func matchCategory(c corpus.Category, conds []repository.Condition) bool {
	for _, cond := range conds {
		if cond.Field() == "title" {
			if title, _ := cond.Value().(string); title != c.Title() {
				return false
			}
		}
	}
	return true
}

func compareByOrders(orders []repository.Order, compare func(repository.Order) int) int {
	for _, ord := range orders {
		if c := compare(ord); c != 0 {
			return c
		}
	}
	return 0
}

// compareDates honors NULLS LAST before the direction flip, like the SQL
// it stands in for.
func compareDates(a, b time.Time, ord repository.Order) int {
	if ord.NullsLast() {
		switch {
		case a.IsZero() && b.IsZero():
			return 0
		case a.IsZero():
			return 1
		case b.IsZero():
			return -1
		}
	}
	return directed(a.Compare(b), ord)
}

func directed(c int, ord repository.Order) int {
	if !ord.Ascending() {
		return -c
	}
	return c
}

func page[T any](rows []T, q repository.Query) []T {
	start := q.OffsetValue()
	if start >= len(rows) {
		return []T{}
	}
	end := len(rows)
	if q.LimitValue() > 0 && start+q.LimitValue() < end {
		end = start + q.LimitValue()
	}
	return rows[start:end]
}
