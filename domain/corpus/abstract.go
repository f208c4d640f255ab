// Package corpus provides the abstract, author, and category domain
// types and their store contracts.
package corpus

import (
	"strings"
	"time"
)

// Abstract represents a conference talk abstract. The vector is present
// iff the abstract has been embedded; a zero publication date means the
// date is unknown.
type Abstract struct {
	id          int64
	title       string
	body        string
	event       string
	publishedAt time.Time
	vector      []float32
}

// NewAbstract creates an Abstract that has not been embedded yet.
// A zero id means the store assigns one on save.
func NewAbstract(id int64, title, body string) Abstract {
	return Abstract{id: id, title: title, body: body}
}

// ReconstructAbstract reconstructs an Abstract from persistence.
func ReconstructAbstract(
	id int64,
	title, body, event string,
	publishedAt time.Time,
	vector []float32,
) Abstract {
	var v []float32
	if vector != nil {
		v = make([]float32, len(vector))
		copy(v, vector)
	}
	return Abstract{
		id:          id,
		title:       title,
		body:        body,
		event:       event,
		publishedAt: publishedAt,
		vector:      v,
	}
}

// ID returns the abstract id.
func (a Abstract) ID() int64 { return a.id }

// Title returns the abstract title.
func (a Abstract) Title() string { return a.title }

// Body returns the abstract body text.
func (a Abstract) Body() string { return a.body }

// Event returns the name of the conference session or event, empty when
// unknown.
func (a Abstract) Event() string { return a.event }

// PublishedAt returns the publication date; zero when unknown.
func (a Abstract) PublishedAt() time.Time { return a.publishedAt }

// HasPublicationDate reports whether a publication date is known.
func (a Abstract) HasPublicationDate() bool { return !a.publishedAt.IsZero() }

// Vector returns a copy of the embedding vector, nil when absent.
func (a Abstract) Vector() []float32 {
	if a.vector == nil {
		return nil
	}
	v := make([]float32, len(a.vector))
	copy(v, a.vector)
	return v
}

// HasVector reports whether the abstract has been embedded.
func (a Abstract) HasVector() bool { return a.vector != nil }

// EmbeddingText returns the text fed to the embedder: title and body
// joined by a period.
func (a Abstract) EmbeddingText() string {
	return strings.TrimSpace(a.title + ". " + a.body)
}

// WithTitle returns a copy with the given title.
func (a Abstract) WithTitle(title string) Abstract {
	a.title = title
	return a
}

// WithBody returns a copy with the given body text.
func (a Abstract) WithBody(body string) Abstract {
	a.body = body
	return a
}

// WithEvent returns a copy with the given event name.
func (a Abstract) WithEvent(event string) Abstract {
	a.event = event
	return a
}

// WithPublishedAt returns a copy with the given publication date.
func (a Abstract) WithPublishedAt(t time.Time) Abstract {
	a.publishedAt = t
	return a
}

// WithVector returns a copy carrying the given embedding vector.
func (a Abstract) WithVector(vector []float32) Abstract {
	v := make([]float32, len(vector))
	copy(v, vector)
	a.vector = v
	return a
}

// WithoutVector returns a copy with the embedding cleared.
func (a Abstract) WithoutVector() Abstract {
	a.vector = nil
	return a
}
