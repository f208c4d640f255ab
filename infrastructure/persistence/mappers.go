package persistence

import (
	"time"

	"github.com/helixml/scholar/domain/corpus"
	"github.com/helixml/scholar/internal/database"
)

// AbstractMapper maps between domain Abstract and persistence AbstractModel.
type AbstractMapper struct{}

// ToDomain converts an AbstractModel to a domain Abstract.
func (m AbstractMapper) ToDomain(e AbstractModel) corpus.Abstract {
	var event string
	if e.Event != nil {
		event = *e.Event
	}

	var publishedAt time.Time
	if e.PublicationDate != nil {
		publishedAt = *e.PublicationDate
	}

	return corpus.ReconstructAbstract(
		e.ID,
		e.Title,
		e.Body,
		event,
		publishedAt,
		e.Embedding.Floats(),
	)
}

// ToModel converts a domain Abstract to an AbstractModel.
func (m AbstractMapper) ToModel(a corpus.Abstract) AbstractModel {
	var event *string
	if a.Event() != "" {
		ev := a.Event()
		event = &ev
	}

	var publicationDate *time.Time
	if a.HasPublicationDate() {
		p := a.PublishedAt()
		publicationDate = &p
	}

	var embedding database.Vector
	if a.HasVector() {
		embedding = database.NewVector(a.Vector())
	}

	return AbstractModel{
		ID:              a.ID(),
		Title:           a.Title(),
		Body:            a.Body(),
		Event:           event,
		PublicationDate: publicationDate,
		Embedding:       embedding,
	}
}

// AuthorMapper maps between domain Author and persistence AuthorModel.
type AuthorMapper struct{}

// ToDomain converts an AuthorModel to a domain Author.
func (m AuthorMapper) ToDomain(e AuthorModel) corpus.Author {
	return corpus.ReconstructAuthor(e.ID, e.Name, e.Embedding.Floats())
}

// ToModel converts a domain Author to an AuthorModel.
func (m AuthorMapper) ToModel(a corpus.Author) AuthorModel {
	var embedding database.Vector
	if a.HasVector() {
		embedding = database.NewVector(a.Vector())
	}

	return AuthorModel{
		ID:        a.ID(),
		Name:      a.Name(),
		Embedding: embedding,
	}
}

// CategoryMapper maps between domain Category and persistence CategoryModel.
type CategoryMapper struct{}

// ToDomain converts a CategoryModel to a domain Category.
func (m CategoryMapper) ToDomain(e CategoryModel) corpus.Category {
	return corpus.NewCategory(e.ID, e.Title)
}

// ToModel converts a domain Category to a CategoryModel.
func (m CategoryMapper) ToModel(c corpus.Category) CategoryModel {
	return CategoryModel{
		ID:    c.ID(),
		Title: c.Title(),
	}
}
