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

// AuthorStore implements corpus.AuthorStore using GORM.
type AuthorStore struct {
	database.Repository[corpus.Author, AuthorModel]
	db database.Database
}

// NewAuthorStore creates a new AuthorStore.
func NewAuthorStore(db database.Database) AuthorStore {
	return AuthorStore{
		Repository: database.NewRepository[corpus.Author, AuthorModel](db, AuthorMapper{}, "author"),
		db:         db,
	}
}

// Get returns one author by id.
func (s AuthorStore) Get(ctx context.Context, id int64) (corpus.Author, error) {
	return s.FindOne(ctx, repository.WithID(id))
}

// ByIDs returns the authors whose ids exist, in store order.
func (s AuthorStore) ByIDs(ctx context.Context, ids []int64) ([]corpus.Author, error) {
	if len(ids) == 0 {
		return []corpus.Author{}, nil
	}
	return s.Find(ctx, repository.WithIDIn(ids))
}

// List returns authors selected by the given options.
func (s AuthorStore) List(ctx context.Context, opts ...repository.Option) ([]corpus.Author, error) {
	return s.Find(ctx, opts...)
}

// Save creates or updates an author. Import rows arrive with external
// ids, so a non-zero id upserts instead of assuming the row exists.
func (s AuthorStore) Save(ctx context.Context, author corpus.Author) (corpus.Author, error) {
	model := s.Mapper().ToModel(author)
	model.UpdatedAt = time.Now()

	var result *gorm.DB
	if model.ID == 0 {
		result = s.DB(ctx).Create(&model)
	} else {
		result = s.DB(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "embedding", "updated_at"}),
		}).Create(&model)
	}

	if result.Error != nil {
		return corpus.Author{}, fmt.Errorf("save author: %w", result.Error)
	}
	return s.Mapper().ToDomain(model), nil
}

// Delete removes an author together with its abstract links.
func (s AuthorStore) Delete(ctx context.Context, id int64) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("author_id = ?", id).Delete(&AbstractAuthorLinkModel{}).Error; err != nil {
			return fmt.Errorf("delete abstract links: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&AuthorModel{}).Error; err != nil {
			return fmt.Errorf("delete author: %w", err)
		}
		return nil
	})
}

// Exists reports whether an author with the given id exists.
func (s AuthorStore) Exists(ctx context.Context, id int64) (bool, error) {
	return s.Repository.Exists(ctx, repository.WithID(id))
}

// Count returns the total number of authors.
func (s AuthorStore) Count(ctx context.Context) (int, error) {
	n, err := s.Repository.Count(ctx)
	return int(n), err
}

// SaveVectors applies all aggregate-vector updates in one transaction;
// either every update commits or none do.
func (s AuthorStore) SaveVectors(ctx context.Context, updates []corpus.VectorUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		now := time.Now()
		for _, update := range updates {
			var embedding database.Vector
			if !update.Clears() {
				embedding = database.NewVector(update.Vector())
			}

			result := tx.Model(&AuthorModel{}).
				Where("id = ?", update.AuthorID()).
				Updates(map[string]any{"embedding": embedding, "updated_at": now})
			if result.Error != nil {
				return fmt.Errorf("update author %d vector: %w", update.AuthorID(), result.Error)
			}
		}
		return nil
	})
}

// AbstractCounts returns how many abstracts each given author is linked
// to.
func (s AuthorStore) AbstractCounts(ctx context.Context, authorIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(authorIDs))
	if len(authorIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		AuthorID int64 `gorm:"column:author_id"`
		Count    int   `gorm:"column:count"`
	}
	err := s.DB(ctx).Model(&AbstractAuthorLinkModel{}).
		Select("author_id, COUNT(*) AS count").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("author abstract counts: %w", err)
	}

	for _, row := range rows {
		counts[row.AuthorID] = row.Count
	}
	return counts, nil
}

// VectoredRecords scans all authors with a vector into index records.
func (s AuthorStore) VectoredRecords(ctx context.Context) ([]search.Record, error) {
	var models []AuthorModel
	q := database.NewQuery().IsNotNull("embedding").OrderAsc("id")
	if err := q.Apply(s.DB(ctx).Model(&AuthorModel{})).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("scan vectored authors: %w", err)
	}

	records := make([]search.Record, 0, len(models))
	for _, m := range models {
		records = append(records, search.NewRecord(m.ID, m.Embedding.Floats()))
	}
	return records, nil
}
