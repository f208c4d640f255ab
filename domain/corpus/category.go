package corpus

// Category is a topic label attached to abstracts; titles are unique.
type Category struct {
	id    int64
	title string
}

// NewCategory creates a new Category. A zero id means the store assigns
// one on save.
func NewCategory(id int64, title string) Category {
	return Category{id: id, title: title}
}

// ID returns the category id.
func (c Category) ID() int64 { return c.id }

// Title returns the category title.
func (c Category) Title() string { return c.title }
