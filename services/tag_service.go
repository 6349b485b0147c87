package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/adityarawat/examdesk/model"
	"github.com/adityarawat/examdesk/utils/cache"
	"gorm.io/gorm"
)

const (
	tagDirectoryCacheKey = "tags:directory"
	tagDirectoryCacheTTL = 10 * time.Minute
)

// TagService is the read-only question-tag directory consumed during review
// editing
type TagService struct {
	db    *gorm.DB
	cache *cache.RedisCache
}

// NewTagService creates a new tag service. The cache may be nil; lookups then
// always hit the database.
func NewTagService(db *gorm.DB, redisCache *cache.RedisCache) *TagService {
	return &TagService{db: db, cache: redisCache}
}

// ListTags returns all available tags, serving from cache when possible
func (s *TagService) ListTags(ctx context.Context) ([]model.Tag, error) {
	if s.cache != nil {
		var cached []model.Tag
		if err := s.cache.GetJSON(ctx, tagDirectoryCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	var tags []model.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, tagDirectoryCacheKey, tags, tagDirectoryCacheTTL); err != nil {
			log.Printf("TagService: failed to cache tag directory: %v", err)
		}
	}

	return tags, nil
}

// InvalidateCache drops the cached directory; called after commits create tags
func (s *TagService) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, tagDirectoryCacheKey); err != nil {
		log.Printf("TagService: failed to invalidate tag cache: %v", err)
	}
}
