package service

import (
	"context"
	"fmt"
	"time"

	"fahndungsportal/internal/cache"
	"fahndungsportal/internal/model"
	"fahndungsportal/internal/typo3"

	"github.com/rs/zerolog"
)

// fahndungService implements FahndungService.
type fahndungService struct {
	cms    CMS
	cache  *cache.Store
	ttl    time.Duration
	logger zerolog.Logger
}

// NewFahndungService creates a new notice service. A nil cache or zero ttl
// disables caching.
func NewFahndungService(cms CMS, store *cache.Store, ttl time.Duration, logger zerolog.Logger) FahndungService {
	return &fahndungService{
		cms:    cms,
		cache:  store,
		ttl:    ttl,
		logger: logger.With().Str("service", "fahndung").Logger(),
	}
}

// List retrieves a listing page. Fallback listings are not cached so the next
// request tries the CMS again.
func (s *fahndungService) List(ctx context.Context, params typo3.ListParams) (*typo3.ListResult, error) {
	if params.Page < 0 {
		params.Page = 0
	}
	if params.PageSize < 0 {
		params.PageSize = 0
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	key := fmt.Sprintf("fahndungen:%d:%d:%s:%s:%s:%s",
		params.Page, params.PageSize, params.Status, params.Type, params.Delikt, params.Query)
	if res, ok := s.lookup(key); ok {
		return res.(*typo3.ListResult), nil
	}

	res, err := s.cms.ListFahndungen(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list fahndungen")
		return nil, fmt.Errorf("failed to list fahndungen: %w", err)
	}

	if res.Fallback {
		s.logger.Info().Str("reason", res.Reason).Msg("serving fallback listing")
	} else {
		tags := []string{TagFahndungen}
		for _, item := range res.Response.Items {
			tags = append(tags, FahndungTag(item.Slug))
		}
		s.store(key, res, tags...)
	}

	return res, nil
}

// GetBySlug retrieves a single notice.
func (s *fahndungService) GetBySlug(ctx context.Context, slug string) (*model.FahndungItem, error) {
	key := "fahndung:" + slug
	if item, ok := s.lookup(key); ok {
		return item.(*model.FahndungItem), nil
	}

	item, err := s.cms.GetFahndungBySlug(ctx, slug)
	if err != nil {
		if model.IsNotFound(err) {
			s.logger.Debug().Str("slug", slug).Msg("fahndung not found")
		} else {
			s.logger.Error().Err(err).Str("slug", slug).Msg("failed to get fahndung")
		}
		return nil, err
	}

	s.store(key, item, TagFahndungen, FahndungTag(slug))
	return item, nil
}

func (s *fahndungService) lookup(key string) (any, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return nil, false
	}
	v, ok := s.cache.Get(key)
	if ok {
		s.logger.Debug().Str("key", key).Msg("cache hit")
	}
	return v, ok
}

func (s *fahndungService) store(key string, v any, tags ...string) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	s.cache.Set(key, v, s.ttl, tags...)
}
