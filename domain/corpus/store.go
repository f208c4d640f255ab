package corpus

import (
	"context"

	"github.com/helixml/scholar/domain/repository"
	"github.com/helixml/scholar/domain/search"
)

// AbstractStore persists abstracts and owns their author and category
// links.
type AbstractStore interface {
	// Get returns one abstract by id.
	Get(ctx context.Context, id int64) (Abstract, error)

	// ByIDs returns the abstracts whose ids exist, in store order.
	// Unknown ids are skipped, not an error.
	ByIDs(ctx context.Context, ids []int64) ([]Abstract, error)

	// List returns abstracts selected by the given options.
	List(ctx context.Context, opts ...repository.Option) ([]Abstract, error)

	// ByAuthor returns the author's linked abstracts ordered by recency,
	// newest first with undated rows last.
	ByAuthor(ctx context.Context, authorID int64) ([]Abstract, error)

	// Save creates or updates an abstract. A zero id gets one assigned;
	// the returned abstract carries it.
	Save(ctx context.Context, abstract Abstract) (Abstract, error)

	// Delete removes the abstract row and all of its links.
	Delete(ctx context.Context, id int64) error

	// Exists reports whether an abstract with the given id exists.
	Exists(ctx context.Context, id int64) (bool, error)

	// Count returns the total number of abstracts.
	Count(ctx context.Context) (int, error)

	// IDsByCategories returns the distinct ids of abstracts linked to
	// any of the given categories.
	IDsByCategories(ctx context.Context, categoryIDs []int64) ([]int64, error)

	// VectorsByAuthor returns the embedding vectors of the author's
	// linked abstracts that have one, skipping any excluded ids.
	VectorsByAuthor(ctx context.Context, authorID int64, exclude ...int64) ([][]float32, error)

	// VectoredRecords scans all abstracts with a vector into index
	// records.
	VectoredRecords(ctx context.Context) ([]search.Record, error)

	// LinkAuthors links the abstract to the given authors; already
	// existing links are kept as-is.
	LinkAuthors(ctx context.Context, abstractID int64, authorIDs []int64) error

	// LinkCategories links the abstract to the given categories; already
	// existing links are kept as-is.
	LinkCategories(ctx context.Context, abstractID int64, categoryIDs []int64) error

	// ReplaceCategories makes the abstract's category links exactly the
	// given set.
	ReplaceCategories(ctx context.Context, abstractID int64, categoryIDs []int64) error

	// LinkedAuthorIDs returns the distinct ids of authors linked to any
	// of the given abstracts.
	LinkedAuthorIDs(ctx context.Context, abstractIDs []int64) ([]int64, error)

	// AuthorsByAbstractIDs returns each abstract's linked authors.
	AuthorsByAbstractIDs(ctx context.Context, abstractIDs []int64) (map[int64][]Author, error)

	// CategoriesByAbstractIDs returns each abstract's linked categories.
	CategoriesByAbstractIDs(ctx context.Context, abstractIDs []int64) (map[int64][]Category, error)
}

// AuthorStore persists authors and their aggregate vectors.
type AuthorStore interface {
	// Get returns one author by id.
	Get(ctx context.Context, id int64) (Author, error)

	// ByIDs returns the authors whose ids exist, in store order.
	ByIDs(ctx context.Context, ids []int64) ([]Author, error)

	// List returns authors selected by the given options.
	List(ctx context.Context, opts ...repository.Option) ([]Author, error)

	// Save creates or updates an author.
	Save(ctx context.Context, author Author) (Author, error)

	// Delete removes an author together with its abstract links.
	Delete(ctx context.Context, id int64) error

	// Exists reports whether an author with the given id exists.
	Exists(ctx context.Context, id int64) (bool, error)

	// Count returns the total number of authors.
	Count(ctx context.Context) (int, error)

	// SaveVectors applies all aggregate-vector updates in one
	// transaction; either every update commits or none do.
	SaveVectors(ctx context.Context, updates []VectorUpdate) error

	// AbstractCounts returns how many abstracts each given author is
	// linked to.
	AbstractCounts(ctx context.Context, authorIDs []int64) (map[int64]int, error)

	// VectoredRecords scans all authors with a vector into index
	// records.
	VectoredRecords(ctx context.Context) ([]search.Record, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	// Get returns one category by id.
	Get(ctx context.Context, id int64) (Category, error)

	// List returns categories selected by the given options.
	List(ctx context.Context, opts ...repository.Option) ([]Category, error)

	// Save creates or updates a category.
	Save(ctx context.Context, category Category) (Category, error)

	// Exists reports whether a category with the given id exists.
	Exists(ctx context.Context, id int64) (bool, error)

	// Count returns the total number of categories.
	Count(ctx context.Context) (int, error)

	// AbstractCounts returns the number of linked abstracts per
	// category id, for every category.
	AbstractCounts(ctx context.Context) (map[int64]int, error)
}
