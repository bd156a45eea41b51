package domain

import "time"

// Category groups links on the landing page
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Catalog is the exportable set of links and categories
type Catalog struct {
	Links      []Link     `json:"links"`
	Categories []Category `json:"categories"`
}
