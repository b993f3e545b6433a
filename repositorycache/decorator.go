package repositorycache

import (
	"context"
	"slices"
	"time"

	"github.com/goliatone/go-article-catalog/cache"
	"github.com/goliatone/go-article-catalog/store"
)

// Cache regions used by the decorators.
const (
	RegionArticle         = "article"
	RegionArticleAuthors  = "article.authors"
	RegionArticleKeywords = "article.keywords"
	RegionAuthor          = "author"
	RegionKeyword         = "keyword"
)

// Interface assertions to ensure the decorators are drop-in replacements.
var (
	_ store.ArticleRepository = (*CachedArticles)(nil)
	_ store.AuthorRepository  = (*CachedMembers[store.AuthorRecord])(nil)
	_ store.KeywordRepository = (*CachedMembers[store.KeywordRecord])(nil)
)

// CachedArticles decorates an article repository with caching functionality.
// Single-article reads are cached per region; predicate and collection
// queries always go to the store.
type CachedArticles struct {
	base  store.ArticleRepository
	cache cache.CacheService
}

// NewArticles creates a CachedArticles that wraps the base repository.
func NewArticles(base store.ArticleRepository, cacheService cache.CacheService) *CachedArticles {
	return &CachedArticles{base: base, cache: cacheService}
}

// Get retrieves the scalar article row, with caching.
func (c *CachedArticles) Get(ctx context.Context, id int64) (store.ArticleRecord, error) {
	return cache.GetOrFetch(ctx, c.cache, RegionArticle, id, func(ctx context.Context) (store.ArticleRecord, error) {
		return c.base.Get(ctx, id)
	})
}

// AuthorIDs retrieves the article's author membership view, with caching.
func (c *CachedArticles) AuthorIDs(ctx context.Context, id int64) ([]int64, error) {
	return cache.GetOrFetch(ctx, c.cache, RegionArticleAuthors, id, func(ctx context.Context) ([]int64, error) {
		return c.base.AuthorIDs(ctx, id)
	})
}

// KeywordIDs retrieves the article's keyword membership view, with caching.
func (c *CachedArticles) KeywordIDs(ctx context.Context, id int64) ([]int64, error) {
	return cache.GetOrFetch(ctx, c.cache, RegionArticleKeywords, id, func(ctx context.Context) ([]int64, error) {
		return c.base.KeywordIDs(ctx, id)
	})
}

// List passes through to the base repository
func (c *CachedArticles) List(ctx context.Context) ([]store.ArticleRecord, error) {
	return c.base.List(ctx)
}

// FindByAuthor passes through to the base repository
func (c *CachedArticles) FindByAuthor(ctx context.Context, authorID int64) ([]store.ArticleRecord, error) {
	return c.base.FindByAuthor(ctx, authorID)
}

// FindByKeyword passes through to the base repository
func (c *CachedArticles) FindByKeyword(ctx context.Context, description string) ([]store.ArticleRecord, error) {
	return c.base.FindByKeyword(ctx, description)
}

// FindByPublicationDateRange passes through to the base repository
func (c *CachedArticles) FindByPublicationDateRange(ctx context.Context, start, end time.Time) ([]store.ArticleRecord, error) {
	return c.base.FindByPublicationDateRange(ctx, start, end)
}

// Create passes through. A new identity has nothing cached under it, and
// there are no author or keyword side views to refresh.
func (c *CachedArticles) Create(ctx context.Context, rec store.ArticleRecord, links store.Links) (store.ArticleRecord, error) {
	return c.base.Create(ctx, rec, links)
}

// Update writes through and then invalidates the scalar entry plus whichever
// membership views actually changed.
func (c *CachedArticles) Update(ctx context.Context, rec store.ArticleRecord, links store.Links) (store.ArticleChange, error) {
	change, err := c.base.Update(ctx, rec, links)
	if err == nil {
		c.invalidateAfterUpdate(ctx, rec.ID, change)
	}
	return change, err
}

// Delete writes through and then drops every entry keyed by the article.
func (c *CachedArticles) Delete(ctx context.Context, id int64) error {
	err := c.base.Delete(ctx, id)
	if err == nil {
		c.invalidateAfterDelete(ctx, id)
	}
	return err
}

func (c *CachedArticles) invalidateAfterUpdate(ctx context.Context, id int64, change store.ArticleChange) {
	cache.Invalidate(ctx, c.cache, RegionArticle, id)
	if change.AuthorsChanged {
		cache.Invalidate(ctx, c.cache, RegionArticleAuthors, id)
	}
	if change.KeywordsChanged {
		cache.Invalidate(ctx, c.cache, RegionArticleKeywords, id)
	}
}

func (c *CachedArticles) invalidateAfterDelete(ctx context.Context, id int64) {
	cache.Invalidate(ctx, c.cache, RegionArticle, id)
	cache.Invalidate(ctx, c.cache, RegionArticleAuthors, id)
	cache.Invalidate(ctx, c.cache, RegionArticleKeywords, id)
}

// CachedMembers decorates an author or keyword repository with caching.
type CachedMembers[T store.Record] struct {
	base  store.MemberRepository[T]
	cache cache.CacheService
	// region holds the entities; articleView is the article membership
	// region that lists them.
	region      string
	articleView string
}

// NewAuthors creates the cached author repository.
func NewAuthors(base store.AuthorRepository, cacheService cache.CacheService) *CachedMembers[store.AuthorRecord] {
	return &CachedMembers[store.AuthorRecord]{base: base, cache: cacheService, region: RegionAuthor, articleView: RegionArticleAuthors}
}

// NewKeywords creates the cached keyword repository.
func NewKeywords(base store.KeywordRepository, cacheService cache.CacheService) *CachedMembers[store.KeywordRecord] {
	return &CachedMembers[store.KeywordRecord]{base: base, cache: cacheService, region: RegionKeyword, articleView: RegionArticleKeywords}
}

// Get retrieves a single record by id, with caching
func (c *CachedMembers[T]) Get(ctx context.Context, id int64) (T, error) {
	return cache.GetOrFetch(ctx, c.cache, c.region, id, func(ctx context.Context) (T, error) {
		return c.base.Get(ctx, id)
	})
}

// GetMany serves cached records and loads every miss with one store call.
// Unknown ids are skipped; the result is ordered by id.
func (c *CachedMembers[T]) GetMany(ctx context.Context, ids []int64) ([]T, error) {
	found, err := cache.GetManyOrFetch(ctx, c.cache, c.region, ids, func(ctx context.Context, missing []int64) (map[int64]T, error) {
		recs, err := c.base.GetMany(ctx, missing)
		if err != nil {
			return nil, err
		}
		out := make(map[int64]T, len(recs))
		for _, rec := range recs {
			out[rec.RecordID()] = rec
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	keys := make([]int64, 0, len(found))
	for id := range found {
		keys = append(keys, id)
	}
	slices.Sort(keys)

	out := make([]T, len(keys))
	for i, id := range keys {
		out[i] = found[id]
	}
	return out, nil
}

// List passes through to the base repository
func (c *CachedMembers[T]) List(ctx context.Context) ([]T, error) {
	return c.base.List(ctx)
}

// Create passes through to the base repository
func (c *CachedMembers[T]) Create(ctx context.Context, rec T) (T, error) {
	return c.base.Create(ctx, rec)
}

// Update writes through and then invalidates the record
func (c *CachedMembers[T]) Update(ctx context.Context, rec T) (T, error) {
	result, err := c.base.Update(ctx, rec)
	if err == nil {
		cache.Invalidate(ctx, c.cache, c.region, rec.RecordID())
	}
	return result, err
}

// Delete writes through and then invalidates the record together with the
// membership views of every article that referenced it.
func (c *CachedMembers[T]) Delete(ctx context.Context, id int64) ([]int64, error) {
	articleIDs, err := c.base.Delete(ctx, id)
	if err == nil {
		cache.Invalidate(ctx, c.cache, c.region, id)
		cache.Invalidate(ctx, c.cache, c.articleView, articleIDs...)
	}
	return articleIDs, err
}
