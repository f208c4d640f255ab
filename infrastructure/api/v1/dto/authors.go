package dto

// AuthorResult represents one author in a search or listing response.
type AuthorResult struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	AbstractCount int      `json:"abstract_count"`
	Score         *float64 `json:"score,omitempty"`
}

// AuthorListResponse represents one page of author results.
type AuthorListResponse struct {
	Query    string         `json:"query"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Results  []AuthorResult `json:"results"`
}

// AuthorAbstract represents one abstract in an author profile.
type AuthorAbstract struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Event       string            `json:"event"`
	PublishedAt *string           `json:"published_at"`
	Categories  []CategorySummary `json:"categories"`
}

// AuthorDetailResponse represents one author with their abstracts,
// newest first.
type AuthorDetailResponse struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	AbstractCount int              `json:"abstract_count"`
	Abstracts     []AuthorAbstract `json:"abstracts"`
}

// SimilarAuthor represents one neighbor in a similar-author lookup.
type SimilarAuthor struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Score *float64 `json:"score,omitempty"`
}

// SimilarAuthorsResponse represents the nearest neighbors of one author
// in vector space. An unknown or vectorless author yields an empty
// result list.
type SimilarAuthorsResponse struct {
	ID      int64           `json:"id"`
	Results []SimilarAuthor `json:"results"`
}

// AuthorPatchRequest represents a partial author update. A nil name
// keeps the current one; recompute rebuilds the aggregate vector from
// the currently embedded abstracts.
type AuthorPatchRequest struct {
	Name      *string `json:"name"`
	Recompute bool    `json:"recompute"`
}

// AuthorPatchResponse represents an applied author update.
type AuthorPatchResponse struct {
	Status      string `json:"status"`
	ID          int64  `json:"id"`
	Recomputed  bool   `json:"recomputed"`
	IndexSynced *bool  `json:"index_synced,omitempty"`
}

// AuthorDeleteResponse represents an author deletion. The author's
// abstracts are kept.
type AuthorDeleteResponse struct {
	Status      string `json:"status"`
	Deleted     int64  `json:"deleted"`
	IndexSynced *bool  `json:"index_synced,omitempty"`
}
