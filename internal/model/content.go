package model

// NavigationItem is one entry of the site navigation tree.
type NavigationItem struct {
	Title    string           `json:"title" validate:"required"`
	Link     string           `json:"link" validate:"required"`
	Active   bool             `json:"active,omitempty"`
	Target   string           `json:"target,omitempty"`
	Children []NavigationItem `json:"children,omitempty" validate:"omitempty,dive"`
}

// Navigation is the structural navigation response of the CMS.
type Navigation struct {
	Items []NavigationItem `json:"items" validate:"required,dive"`
}

// ContentElement is one block of page content.
type ContentElement struct {
	ID      int    `json:"id" validate:"required,gt=0"`
	Type    string `json:"type" validate:"required"`
	Header  string `json:"header,omitempty"`
	Content any    `json:"content,omitempty"`
}

// Page is a CMS page with its content elements.
type Page struct {
	ID          int              `json:"id" validate:"required,gt=0"`
	Title       string           `json:"title" validate:"required"`
	Slug        string           `json:"slug"`
	Description string           `json:"description,omitempty"`
	Content     []ContentElement `json:"content" validate:"dive"`
}

// Health is the CMS health report.
type Health struct {
	Status    string `json:"status" validate:"required"`
	Timestamp any    `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
}
