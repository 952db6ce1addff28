// Package news assembles pages of newest Hacker News stories from the shared
// cache, falling back to the upstream API on a miss.
package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hnproxy/internal/models"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultPage             = 1
	DefaultPageSize         = 10
	DefaultCacheTTL         = 5 * time.Minute
	DefaultTopStoriesLimit  = 200
	DefaultFetchConcurrency = 8

	storyIDsKey = "story_ids"
)

// Cache is the subset of the cache manager the service relies on.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
}

// Fetcher is the upstream story source.
type Fetcher interface {
	NewStoryIDs(ctx context.Context) ([]int, error)
	Item(ctx context.Context, id int) (*models.Story, error)
}

type Options struct {
	CacheTTL         time.Duration
	TopStoriesLimit  int
	FetchConcurrency int
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.TopStoriesLimit <= 0 {
		o.TopStoriesLimit = DefaultTopStoriesLimit
	}
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = DefaultFetchConcurrency
	}
	return o
}

type Service struct {
	cache    Cache
	fetcher  Fetcher
	opts     Options
	inflight singleflight.Group
}

func NewService(cache Cache, fetcher Fetcher, opts Options) *Service {
	return &Service{
		cache:   cache,
		fetcher: fetcher,
		opts:    opts.withDefaults(),
	}
}

// GetNewestStories returns one page of the newest stories that have a URL,
// optionally restricted to titles containing query (case-insensitive).
// page < 1 is treated as 1 and pageSize < 1 as DefaultPageSize. Any upstream
// failure fails the whole call.
func (s *Service) GetNewestStories(ctx context.Context, page, pageSize int, query string) (*models.PagedResult, error) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	stories, err := s.loadStories(ctx)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return models.NewPagedResult(nil, 0, page, pageSize), nil
	}

	stories = filterByTitle(stories, query)

	return models.NewPagedResult(paginate(stories, page, pageSize), len(stories), page, pageSize), nil
}

// Warm populates the cache with the ID list and every story in the window.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.loadStories(ctx)
	return err
}

// Refresh drops the cached ID list so the next load sees the current
// ranking, then warms the cache. Cached stories are kept until they expire.
func (s *Service) Refresh(ctx context.Context) error {
	s.cache.Delete(storyIDsKey)
	return s.Warm(ctx)
}

func (s *Service) loadStories(ctx context.Context) ([]models.Story, error) {
	ids, err := s.storyIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if len(ids) > s.opts.TopStoriesLimit {
		ids = ids[:s.opts.TopStoriesLimit]
	}

	// Each slot is owned by one goroutine, so order survives the fan-out.
	slots := make([]*models.Story, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			story, err := s.story(gctx, id)
			if err != nil {
				return err
			}
			slots[i] = story
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stories := make([]models.Story, 0, len(slots))
	for _, story := range slots {
		if story.HasURL() {
			stories = append(stories, *story)
		}
	}
	return stories, nil
}

func (s *Service) storyIDs(ctx context.Context) ([]int, error) {
	if cached, found := s.cache.Get(storyIDsKey); found {
		if ids, ok := cached.([]int); ok && len(ids) > 0 {
			return ids, nil
		}
	}

	v, err := s.do(ctx, storyIDsKey, func(ctx context.Context) (interface{}, error) {
		ids, err := s.fetcher.NewStoryIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch newest story ids: %w", err)
		}
		if len(ids) > 0 {
			s.cache.Set(storyIDsKey, ids, s.opts.CacheTTL)
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]int), nil
}

// story returns the cached record for id, fetching it on a miss. Stories
// without a URL are never cached and come back as nil.
func (s *Service) story(ctx context.Context, id int) (*models.Story, error) {
	key := storyKey(id)
	if cached, found := s.cache.Get(key); found {
		if story, ok := cached.(*models.Story); ok {
			return story, nil
		}
	}

	v, err := s.do(ctx, key, func(ctx context.Context) (interface{}, error) {
		story, err := s.fetcher.Item(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch story %d: %w", id, err)
		}
		if !story.HasURL() {
			return (*models.Story)(nil), nil
		}
		s.cache.Set(key, story, s.opts.CacheTTL)
		return story, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Story), nil
}

// do collapses concurrent misses on the same key into one upstream call.
// The shared call runs on the first caller's context. A waiter whose own
// context is still live retries once if that shared call was cancelled.
func (s *Service) do(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	for attempt := 0; ; attempt++ {
		ch := s.inflight.DoChan(key, func() (interface{}, error) {
			return fn(ctx)
		})

		select {
		case res := <-ch:
			if res.Err != nil && res.Shared && attempt == 0 && ctx.Err() == nil && isContextErr(res.Err) {
				continue
			}
			return res.Val, res.Err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func storyKey(id int) string {
	return fmt.Sprintf("story:%d", id)
}

func filterByTitle(stories []models.Story, query string) []models.Story {
	if strings.TrimSpace(query) == "" {
		return stories
	}

	needle := strings.ToLower(query)
	filtered := make([]models.Story, 0, len(stories))
	for _, story := range stories {
		if story.Title != "" && strings.Contains(strings.ToLower(story.Title), needle) {
			filtered = append(filtered, story)
		}
	}
	return filtered
}

func paginate(stories []models.Story, page, pageSize int) []models.Story {
	start := (page - 1) * pageSize
	// Guard against overflow on very large page numbers.
	if start < 0 || start >= len(stories) || page-1 > len(stories)/pageSize {
		return []models.Story{}
	}

	end := start + pageSize
	if end > len(stories) || end < start {
		end = len(stories)
	}
	return stories[start:end]
}
