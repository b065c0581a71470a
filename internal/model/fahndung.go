package model

// FahndungStatus is the lifecycle state of a notice.
type FahndungStatus string

const (
	StatusActive    FahndungStatus = "active"
	StatusCompleted FahndungStatus = "completed"
	StatusArchived  FahndungStatus = "archived"
)

// FahndungType is the kind of notice.
type FahndungType string

const (
	TypeMissingPerson FahndungType = "missing_person"
	TypeWitnessAppeal FahndungType = "witness_appeal"
	TypeWanted        FahndungType = "wanted"
)

// Image is a picture attached to a notice.
type Image struct {
	URL         string `json:"url"`
	Alternative string `json:"alternative,omitempty"`
}

// FahndungItem is a single wanted/missing-person notice as shown in listings.
type FahndungItem struct {
	ID          int            `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Status      FahndungStatus `json:"status"`
	Type        FahndungType   `json:"type"`
	Location    string         `json:"location,omitempty"`
	Delikt      string         `json:"delikt,omitempty"`
	PublishedAt string         `json:"publishedAt,omitempty"`
	Slug        string         `json:"slug"`
	Image       *Image         `json:"image,omitempty"`
}

// Meta is the pagination block of a listing.
type Meta struct {
	Total       int   `json:"total"`
	Page        int   `json:"page"`
	PageSize    int   `json:"pageSize"`
	LastUpdated int64 `json:"lastUpdated"`
}

// FahndungenResponse is a normalized listing page.
type FahndungenResponse struct {
	Meta  Meta           `json:"meta"`
	Items []FahndungItem `json:"items"`
}
