package service

import (
	"context"
	"time"

	"fahndungsportal/internal/cache"
	"fahndungsportal/internal/model"

	"github.com/rs/zerolog"
)

// contentService implements ContentService.
type contentService struct {
	cms    CMS
	cache  *cache.Store
	ttl    time.Duration
	logger zerolog.Logger
}

// NewContentService creates a new structural content service.
func NewContentService(cms CMS, store *cache.Store, ttl time.Duration, logger zerolog.Logger) ContentService {
	return &contentService{
		cms:    cms,
		cache:  store,
		ttl:    ttl,
		logger: logger.With().Str("service", "content").Logger(),
	}
}

// Navigation retrieves the site navigation.
func (s *contentService) Navigation(ctx context.Context) (*model.Navigation, error) {
	if v, ok := s.lookup("navigation"); ok {
		return v.(*model.Navigation), nil
	}

	nav, err := s.cms.GetNavigation(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get navigation")
		return nil, err
	}

	s.store("navigation", nav, TagNavigation)
	return nav, nil
}

// Page retrieves a content page.
func (s *contentService) Page(ctx context.Context, slug string) (*model.Page, error) {
	key := "page:" + slug
	if v, ok := s.lookup(key); ok {
		return v.(*model.Page), nil
	}

	page, err := s.cms.GetPage(ctx, slug)
	if err != nil {
		s.logger.Error().Err(err).Str("slug", slug).Msg("failed to get page")
		return nil, err
	}

	s.store(key, page, PageTag(slug))
	return page, nil
}

// Health asks the CMS for its health. It is never cached.
func (s *contentService) Health(ctx context.Context) (*model.Health, error) {
	h, err := s.cms.Health(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("CMS health check failed")
		return nil, err
	}
	return h, nil
}

func (s *contentService) lookup(key string) (any, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *contentService) store(key string, v any, tags ...string) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	s.cache.Set(key, v, s.ttl, tags...)
}
