// Package dto defines the JSON request and response shapes of the v1 API.
package dto

// AbstractResult represents one abstract in a search or listing response.
// CategoryTitle is the first linked category, null when there is none;
// the score key is present only when score attachment is on.
type AbstractResult struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Event         string   `json:"event"`
	CategoryTitle *string  `json:"category_title"`
	Score         *float64 `json:"score,omitempty"`
}

// AbstractListResponse represents one page of abstract results.
type AbstractListResponse struct {
	Query    string           `json:"query"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Results  []AbstractResult `json:"results"`
}

// AuthorSummary names one author linked to an abstract.
type AuthorSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CategorySummary names one category linked to an abstract.
type CategorySummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// AbstractDetailResponse represents one abstract with its linked authors
// and categories. PublishedAt is RFC 3339, null when unknown.
type AbstractDetailResponse struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Event       string            `json:"event"`
	PublishedAt *string           `json:"published_at"`
	Authors     []AuthorSummary   `json:"authors"`
	Categories  []CategorySummary `json:"categories"`
}

// ImportAuthor references one author in an import row, by id, by name,
// or both.
type ImportAuthor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ImportCategory references one category in an import row.
type ImportCategory struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// ImportRow represents one abstract in an import payload. PublishedAt
// accepts RFC 3339 or a plain YYYY-MM-DD date; empty means unknown.
type ImportRow struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Body        string           `json:"body"`
	Event       string           `json:"event"`
	PublishedAt string           `json:"published_at"`
	Authors     []ImportAuthor   `json:"authors"`
	Categories  []ImportCategory `json:"categories"`
}

// ImportResponse represents the outcome of one import run. IndexSynced
// appears, as false, only when the relational commit succeeded but the
// index update did not.
type ImportResponse struct {
	Status         string  `json:"status"`
	Count          int     `json:"count"`
	AuthorsUpdated int     `json:"authors_updated"`
	OpID           string  `json:"op_id"`
	DurationMS     float64 `json:"duration_ms"`
	IndexSynced    *bool   `json:"index_synced,omitempty"`
}

// AbstractPatchRequest represents a partial abstract update. Absent
// fields keep their stored value; an empty published_at clears the date;
// a present categories array replaces the linked set.
type AbstractPatchRequest struct {
	Title       *string           `json:"title"`
	Body        *string           `json:"body"`
	Event       *string           `json:"event"`
	PublishedAt *string           `json:"published_at"`
	Categories  *[]ImportCategory `json:"categories"`
}

// AbstractPatchResponse represents an applied abstract update.
type AbstractPatchResponse struct {
	Status      string `json:"status"`
	ID          int64  `json:"id"`
	Reembedded  bool   `json:"reembedded"`
	IndexSynced *bool  `json:"index_synced,omitempty"`
}

// AbstractDeleteResponse represents an abstract deletion together with
// the author-side fallout of removing its vector.
type AbstractDeleteResponse struct {
	Status                  string `json:"status"`
	Deleted                 int64  `json:"deleted"`
	AuthorsReembedded       int    `json:"authors_reembedded"`
	AuthorsRemovedFromIndex int    `json:"authors_removed_from_index"`
	IndexSynced             *bool  `json:"index_synced,omitempty"`
}
