package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helixml/scholar/domain/corpus"
	"github.com/helixml/scholar/domain/repository"
	"github.com/helixml/scholar/internal/database"
)

// CategoryStore implements corpus.CategoryStore using GORM.
type CategoryStore struct {
	database.Repository[corpus.Category, CategoryModel]
}

// NewCategoryStore creates a new CategoryStore.
func NewCategoryStore(db database.Database) CategoryStore {
	return CategoryStore{
		Repository: database.NewRepository[corpus.Category, CategoryModel](db, CategoryMapper{}, "category"),
	}
}

// Get returns one category by id.
func (s CategoryStore) Get(ctx context.Context, id int64) (corpus.Category, error) {
	return s.FindOne(ctx, repository.WithID(id))
}

// List returns categories selected by the given options.
func (s CategoryStore) List(ctx context.Context, opts ...repository.Option) ([]corpus.Category, error) {
	return s.Find(ctx, opts...)
}

// Save creates or updates a category. Import rows arrive with external
// ids, so a non-zero id upserts instead of assuming the row exists.
func (s CategoryStore) Save(ctx context.Context, category corpus.Category) (corpus.Category, error) {
	model := s.Mapper().ToModel(category)
	model.UpdatedAt = time.Now()

	var result *gorm.DB
	if model.ID == 0 {
		result = s.DB(ctx).Create(&model)
	} else {
		result = s.DB(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
		}).Create(&model)
	}

	if result.Error != nil {
		return corpus.Category{}, fmt.Errorf("save category: %w", result.Error)
	}
	return s.Mapper().ToDomain(model), nil
}

// Exists reports whether a category with the given id exists.
func (s CategoryStore) Exists(ctx context.Context, id int64) (bool, error) {
	return s.Repository.Exists(ctx, repository.WithID(id))
}

// Count returns the total number of categories.
func (s CategoryStore) Count(ctx context.Context) (int, error) {
	n, err := s.Repository.Count(ctx)
	return int(n), err
}

// AbstractCounts returns the number of linked abstracts per category id,
// for every category. Categories without links count zero.
func (s CategoryStore) AbstractCounts(ctx context.Context) (map[int64]int, error) {
	var rows []struct {
		CategoryID int64 `gorm:"column:category_id"`
		Count      int   `gorm:"column:count"`
	}
	err := s.DB(ctx).Table("categories").
		Select("categories.id AS category_id, COUNT(abstract_category_links.abstract_id) AS count").
		Joins("LEFT JOIN abstract_category_links ON abstract_category_links.category_id = categories.id").
		Group("categories.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("category abstract counts: %w", err)
	}

	counts := make(map[int64]int, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.Count
	}
	return counts, nil
}
