package dto

// CategoryResult represents one category with the number of abstracts
// linked to it.
type CategoryResult struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	AbstractCount int    `json:"abstract_count"`
}
