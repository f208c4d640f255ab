package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helixml/scholar/domain/corpus"
	"github.com/helixml/scholar/domain/repository"
	"github.com/helixml/scholar/domain/search"
	"github.com/helixml/scholar/internal/database"
)

// AbstractStore implements corpus.AbstractStore using GORM.
type AbstractStore struct {
	database.Repository[corpus.Abstract, AbstractModel]
	db database.Database
}

// NewAbstractStore creates a new AbstractStore.
func NewAbstractStore(db database.Database) AbstractStore {
	return AbstractStore{
		Repository: database.NewRepository[corpus.Abstract, AbstractModel](db, AbstractMapper{}, "abstract"),
		db:         db,
	}
}

// Get returns one abstract by id.
func (s AbstractStore) Get(ctx context.Context, id int64) (corpus.Abstract, error) {
	return s.FindOne(ctx, repository.WithID(id))
}

// ByIDs returns the abstracts whose ids exist, in store order.
func (s AbstractStore) ByIDs(ctx context.Context, ids []int64) ([]corpus.Abstract, error) {
	if len(ids) == 0 {
		return []corpus.Abstract{}, nil
	}
	return s.Find(ctx, repository.WithIDIn(ids))
}

// List returns abstracts selected by the given options.
func (s AbstractStore) List(ctx context.Context, opts ...repository.Option) ([]corpus.Abstract, error) {
	return s.Find(ctx, opts...)
}

// ByAuthor returns the author's linked abstracts ordered by recency,
// newest first with undated rows last.
func (s AbstractStore) ByAuthor(ctx context.Context, authorID int64) ([]corpus.Abstract, error) {
	var models []AbstractModel
	err := s.DB(ctx).Model(&AbstractModel{}).
		Joins("JOIN abstract_author_links ON abstract_author_links.abstract_id = abstracts.id").
		Where("abstract_author_links.author_id = ?", authorID).
		Order("abstracts.publication_date DESC NULLS LAST, abstracts.id DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("abstracts by author: %w", err)
	}

	abstracts := make([]corpus.Abstract, len(models))
	for i, m := range models {
		abstracts[i] = s.Mapper().ToDomain(m)
	}
	return abstracts, nil
}

// Save creates or updates an abstract. Import rows arrive with external
// ids, so a non-zero id upserts instead of assuming the row exists.
func (s AbstractStore) Save(ctx context.Context, abstract corpus.Abstract) (corpus.Abstract, error) {
	model := s.Mapper().ToModel(abstract)
	model.UpdatedAt = time.Now()

	var result *gorm.DB
	if model.ID == 0 {
		result = s.DB(ctx).Create(&model)
	} else {
		result = s.DB(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "body", "event", "publication_date", "embedding", "updated_at",
			}),
		}).Create(&model)
	}

	if result.Error != nil {
		return corpus.Abstract{}, fmt.Errorf("save abstract: %w", result.Error)
	}
	return s.Mapper().ToDomain(model), nil
}

// Delete removes the abstract row and all of its links.
func (s AbstractStore) Delete(ctx context.Context, id int64) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("abstract_id = ?", id).Delete(&AbstractAuthorLinkModel{}).Error; err != nil {
			return fmt.Errorf("delete author links: %w", err)
		}
		if err := tx.Where("abstract_id = ?", id).Delete(&AbstractCategoryLinkModel{}).Error; err != nil {
			return fmt.Errorf("delete category links: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&AbstractModel{}).Error; err != nil {
			return fmt.Errorf("delete abstract: %w", err)
		}
		return nil
	})
}

// Exists reports whether an abstract with the given id exists.
func (s AbstractStore) Exists(ctx context.Context, id int64) (bool, error) {
	return s.Repository.Exists(ctx, repository.WithID(id))
}

// Count returns the total number of abstracts.
func (s AbstractStore) Count(ctx context.Context) (int, error) {
	n, err := s.Repository.Count(ctx)
	return int(n), err
}

// IDsByCategories returns the distinct ids of abstracts linked to any of
// the given categories.
func (s AbstractStore) IDsByCategories(ctx context.Context, categoryIDs []int64) ([]int64, error) {
	if len(categoryIDs) == 0 {
		return []int64{}, nil
	}

	var ids []int64
	q := database.NewQuery().In("category_id", categoryIDs)
	err := q.Apply(s.DB(ctx).Model(&AbstractCategoryLinkModel{})).
		Distinct().
		Pluck("abstract_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("abstract ids by categories: %w", err)
	}
	return ids, nil
}

// VectorsByAuthor returns the embedding vectors of the author's linked
// abstracts that have one, skipping any excluded ids.
func (s AbstractStore) VectorsByAuthor(ctx context.Context, authorID int64, exclude ...int64) ([][]float32, error) {
	db := s.DB(ctx).Model(&AbstractModel{}).
		Joins("JOIN abstract_author_links ON abstract_author_links.abstract_id = abstracts.id").
		Where("abstract_author_links.author_id = ?", authorID).
		Where("abstracts.embedding IS NOT NULL")
	if len(exclude) > 0 {
		db = db.Where("abstracts.id NOT IN ?", exclude)
	}

	var embeddings []database.Vector
	if err := db.Pluck("abstracts.embedding", &embeddings).Error; err != nil {
		return nil, fmt.Errorf("vectors by author: %w", err)
	}

	vectors := make([][]float32, 0, len(embeddings))
	for _, e := range embeddings {
		if e.Valid() {
			vectors = append(vectors, e.Floats())
		}
	}
	return vectors, nil
}

// VectoredRecords scans all abstracts with a vector into index records.
func (s AbstractStore) VectoredRecords(ctx context.Context) ([]search.Record, error) {
	var models []AbstractModel
	q := database.NewQuery().IsNotNull("embedding").OrderAsc("id")
	if err := q.Apply(s.DB(ctx).Model(&AbstractModel{})).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("scan vectored abstracts: %w", err)
	}

	records := make([]search.Record, 0, len(models))
	for _, m := range models {
		records = append(records, search.NewRecord(m.ID, m.Embedding.Floats()))
	}
	return records, nil
}

// LinkAuthors links the abstract to the given authors; already existing
// links are kept as-is.
func (s AbstractStore) LinkAuthors(ctx context.Context, abstractID int64, authorIDs []int64) error {
	if len(authorIDs) == 0 {
		return nil
	}

	links := make([]AbstractAuthorLinkModel, len(authorIDs))
	for i, authorID := range authorIDs {
		links[i] = AbstractAuthorLinkModel{AbstractID: abstractID, AuthorID: authorID}
	}

	result := s.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&links)
	if result.Error != nil {
		return fmt.Errorf("link authors: %w", result.Error)
	}
	return nil
}

// LinkCategories links the abstract to the given categories; already
// existing links are kept as-is.
func (s AbstractStore) LinkCategories(ctx context.Context, abstractID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}

	links := make([]AbstractCategoryLinkModel, len(categoryIDs))
	for i, categoryID := range categoryIDs {
		links[i] = AbstractCategoryLinkModel{AbstractID: abstractID, CategoryID: categoryID}
	}

	result := s.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&links)
	if result.Error != nil {
		return fmt.Errorf("link categories: %w", result.Error)
	}
	return nil
}

// ReplaceCategories makes the abstract's category links exactly the given
// set.
func (s AbstractStore) ReplaceCategories(ctx context.Context, abstractID int64, categoryIDs []int64) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("abstract_id = ?", abstractID).Delete(&AbstractCategoryLinkModel{}).Error; err != nil {
			return fmt.Errorf("clear category links: %w", err)
		}

		if len(categoryIDs) == 0 {
			return nil
		}

		links := make([]AbstractCategoryLinkModel, len(categoryIDs))
		for i, categoryID := range categoryIDs {
			links[i] = AbstractCategoryLinkModel{AbstractID: abstractID, CategoryID: categoryID}
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return fmt.Errorf("create category links: %w", err)
		}
		return nil
	})
}

// LinkedAuthorIDs returns the distinct ids of authors linked to any of
// the given abstracts.
func (s AbstractStore) LinkedAuthorIDs(ctx context.Context, abstractIDs []int64) ([]int64, error) {
	if len(abstractIDs) == 0 {
		return []int64{}, nil
	}

	var ids []int64
	q := database.NewQuery().In("abstract_id", abstractIDs)
	err := q.Apply(s.DB(ctx).Model(&AbstractAuthorLinkModel{})).
		Distinct().
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("linked author ids: %w", err)
	}
	return ids, nil
}

// AuthorsByAbstractIDs returns each abstract's linked authors.
func (s AbstractStore) AuthorsByAbstractIDs(ctx context.Context, abstractIDs []int64) (map[int64][]corpus.Author, error) {
	result := make(map[int64][]corpus.Author, len(abstractIDs))
	if len(abstractIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		AbstractID int64           `gorm:"column:abstract_id"`
		ID         int64           `gorm:"column:id"`
		Name       string          `gorm:"column:name"`
		Embedding  database.Vector `gorm:"column:embedding"`
	}
	err := s.DB(ctx).Table("abstract_author_links").
		Select("abstract_author_links.abstract_id, authors.id, authors.name, authors.embedding").
		Joins("JOIN authors ON authors.id = abstract_author_links.author_id").
		Where("abstract_author_links.abstract_id IN ?", abstractIDs).
		Order("abstract_author_links.abstract_id, authors.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("authors by abstracts: %w", err)
	}

	for _, row := range rows {
		result[row.AbstractID] = append(result[row.AbstractID],
			corpus.ReconstructAuthor(row.ID, row.Name, row.Embedding.Floats()))
	}
	return result, nil
}

// CategoriesByAbstractIDs returns each abstract's linked categories.
func (s AbstractStore) CategoriesByAbstractIDs(ctx context.Context, abstractIDs []int64) (map[int64][]corpus.Category, error) {
	result := make(map[int64][]corpus.Category, len(abstractIDs))
	if len(abstractIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		AbstractID int64  `gorm:"column:abstract_id"`
		ID         int64  `gorm:"column:id"`
		Title      string `gorm:"column:title"`
	}
	err := s.DB(ctx).Table("abstract_category_links").
		Select("abstract_category_links.abstract_id, categories.id, categories.title").
		Joins("JOIN categories ON categories.id = abstract_category_links.category_id").
		Where("abstract_category_links.abstract_id IN ?", abstractIDs).
		Order("abstract_category_links.abstract_id, categories.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("categories by abstracts: %w", err)
	}

	for _, row := range rows {
		result[row.AbstractID] = append(result[row.AbstractID], corpus.NewCategory(row.ID, row.Title))
	}
	return result, nil
}
