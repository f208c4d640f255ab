package repository

// WithTitle filters by the "title" column.
func WithTitle(title string) Option {
	return WithCondition("title", title)
}

// WithName filters by the "name" column.
func WithName(name string) Option {
	return WithCondition("name", name)
}

// WithRecencyOrder orders rows by publication date (newest first, undated
// rows last) with descending id as the tie breaker. This is the canonical
// ordering for abstract listings.
func WithRecencyOrder() []Option {
	return []Option{
		WithOrderDescNullsLast("publication_date"),
		WithOrderDesc("id"),
	}
}
