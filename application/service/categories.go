package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/helixml/scholar/domain/corpus"
	"github.com/helixml/scholar/domain/repository"
)

// CategoryCount pairs a category with the number of abstracts linked to
// it.
type CategoryCount struct {
	Category      corpus.Category
	AbstractCount int
}

// Categories lists the category vocabulary.
type Categories struct {
	store  corpus.CategoryStore
	logger *slog.Logger
}

// NewCategories creates a Categories service.
func NewCategories(store corpus.CategoryStore, logger *slog.Logger) *Categories {
	if logger == nil {
		logger = slog.Default()
	}
	return &Categories{store: store, logger: logger}
}

// List returns every category with its abstract count, ordered by title.
// Categories no abstract links to appear with a zero count.
func (s Categories) List(ctx context.Context) ([]CategoryCount, error) {
	rows, err := s.store.List(ctx,
		repository.WithOrderAsc("title"),
		repository.WithOrderAsc("id"),
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	counts, err := s.store.AbstractCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load abstract counts: %w", err)
	}

	out := make([]CategoryCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, CategoryCount{Category: row, AbstractCount: counts[row.ID()]})
	}
	return out, nil
}
