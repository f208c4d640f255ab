package persistence

import (
	"time"

	"github.com/helixml/scholar/internal/database"
)

// AbstractModel represents a conference abstract in the database.
type AbstractModel struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Title           string          `gorm:"column:title;type:text"`
	Body            string          `gorm:"column:body;type:text"`
	Event           *string         `gorm:"column:event;size:512"`
	PublicationDate *time.Time      `gorm:"column:publication_date;index"`
	Embedding       database.Vector `gorm:"column:embedding"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (AbstractModel) TableName() string {
	return "abstracts"
}

// AuthorModel represents an author in the database. The embedding is the
// mean of the author's abstract embeddings, NULL while none exist.
type AuthorModel struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string          `gorm:"column:name;index;size:255"`
	Embedding database.Vector `gorm:"column:embedding"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (AuthorModel) TableName() string {
	return "authors"
}

// CategoryModel represents a category in the database.
type CategoryModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Title     string    `gorm:"column:title;uniqueIndex;size:512"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (CategoryModel) TableName() string {
	return "categories"
}

// AbstractAuthorLinkModel links abstracts to authors.
type AbstractAuthorLinkModel struct {
	AbstractID int64     `gorm:"column:abstract_id;primaryKey;index"`
	AuthorID   int64     `gorm:"column:author_id;primaryKey;index"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (AbstractAuthorLinkModel) TableName() string {
	return "abstract_author_links"
}

// AbstractCategoryLinkModel links abstracts to categories.
type AbstractCategoryLinkModel struct {
	AbstractID int64     `gorm:"column:abstract_id;primaryKey;index"`
	CategoryID int64     `gorm:"column:category_id;primaryKey;index"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (AbstractCategoryLinkModel) TableName() string {
	return "abstract_category_links"
}
