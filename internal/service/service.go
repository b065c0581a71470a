package service

import (
	"context"

	"fahndungsportal/internal/model"
	"fahndungsportal/internal/typo3"
)

// CMS is the subset of the TYPO3 client used by the services.
type CMS interface {
	ListFahndungen(ctx context.Context, params typo3.ListParams) (*typo3.ListResult, error)
	GetFahndungBySlug(ctx context.Context, slug string) (*model.FahndungItem, error)
	GetNavigation(ctx context.Context) (*model.Navigation, error)
	GetPage(ctx context.Context, slug string) (*model.Page, error)
	Health(ctx context.Context) (*model.Health, error)
}

// FahndungService defines operations for wanted/missing-person notices.
type FahndungService interface {
	// List returns a listing page. It never fails because of the CMS; see
	// typo3.Client.ListFahndungen.
	List(ctx context.Context, params typo3.ListParams) (*typo3.ListResult, error)

	// GetBySlug returns a single notice or the CMS error.
	GetBySlug(ctx context.Context, slug string) (*model.FahndungItem, error)
}

// ContentService defines operations for structural CMS content.
type ContentService interface {
	// Navigation returns the site navigation.
	Navigation(ctx context.Context) (*model.Navigation, error)

	// Page returns a content page.
	Page(ctx context.Context, slug string) (*model.Page, error)

	// Health reports the CMS health.
	Health(ctx context.Context) (*model.Health, error)
}

// Cache tags attached to cached CMS responses.
const (
	TagFahndungen = "fahndungen"
	TagNavigation = "navigation"
)

// FahndungTag is the tag of a single notice.
func FahndungTag(slug string) string { return "fahndung:" + slug }

// PageTag is the tag of a single content page.
func PageTag(slug string) string { return "page:" + slug }
