package catalog_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-article-catalog/cache"
	"github.com/goliatone/go-article-catalog/catalog"
	"github.com/goliatone/go-article-catalog/model"
	"github.com/goliatone/go-article-catalog/pkg/testsupport"
	"github.com/goliatone/go-article-catalog/repositorycache"
	"github.com/goliatone/go-article-catalog/store"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type queryCounter struct {
	n atomic.Int64
}

func (c *queryCounter) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (c *queryCounter) AfterQuery(context.Context, *bun.QueryEvent) {
	c.n.Add(1)
}

func (c *queryCounter) reset() int64 {
	return c.n.Swap(0)
}

type harness struct {
	svc     *catalog.Service
	db      *bun.DB
	cache   cache.CacheService
	queries *queryCounter
}

func newHarness(t *testing.T, opts ...catalog.Option) *harness {
	t.Helper()
	cacheService, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)
	return newHarnessWithCache(t, cacheService, opts...)
}

func newHarnessWithCache(t *testing.T, cacheService cache.CacheService, opts ...catalog.Option) *harness {
	t.Helper()
	ctx := context.Background()

	db := testsupport.OpenSQLite(t)
	store.RegisterModels(db)
	require.NoError(t, store.CreateSchema(ctx, db))

	counter := &queryCounter{}
	db.AddQueryHook(counter)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]catalog.Option{catalog.WithLogger(logger)}, opts...)

	svc := catalog.New(
		repositorycache.NewArticles(store.NewArticleStore(db), cacheService),
		repositorycache.NewAuthors(store.NewAuthorStore(db), cacheService),
		repositorycache.NewKeywords(store.NewKeywordStore(db), cacheService),
		opts...,
	)
	return &harness{svc: svc, db: db, cache: cacheService, queries: counter}
}

type seededCatalog struct {
	authors  []model.Author
	keywords []model.Keyword
	articles []model.Article
}

func (h *harness) seed(t *testing.T) seededCatalog {
	t.Helper()
	ctx := context.Background()
	fx := testsupport.LoadCatalog(t)

	var out seededCatalog
	for _, a := range fx.Authors {
		created, err := h.svc.CreateAuthor(ctx, model.Author{FirstName: a.FirstName, LastName: a.LastName})
		require.NoError(t, err)
		out.authors = append(out.authors, created)
	}
	for _, k := range fx.Keywords {
		created, err := h.svc.CreateKeyword(ctx, model.Keyword{Description: k.Description})
		require.NoError(t, err)
		out.keywords = append(out.keywords, created)
	}
	for _, a := range fx.Articles {
		article := model.Article{
			Header:          a.Header,
			Description:     a.Description,
			Text:            a.Text,
			PublicationDate: a.PublicationDate,
		}
		for _, idx := range a.Authors {
			require.NoError(t, article.AddAuthor(out.authors[idx]))
		}
		for _, idx := range a.Keywords {
			require.NoError(t, article.AddKeyword(out.keywords[idx]))
		}
		created, err := h.svc.CreateArticle(ctx, article)
		require.NoError(t, err)
		out.articles = append(out.articles, created)
	}
	h.queries.reset()
	return out
}

// articleView is a comparable projection of a hydrated article.
type articleView struct {
	ID          int64
	Header      string
	Description string
	Text        string
	Published   string
	Authors     []string
	Keywords    []string
}

func view(a model.Article) articleView {
	v := articleView{
		ID:          a.ID.MustInt64(),
		Header:      a.Header,
		Description: a.Description,
		Text:        a.Text,
	}
	if a.PublicationDate != nil {
		v.Published = a.PublicationDate.UTC().Format(time.RFC3339Nano)
	}
	for _, au := range a.Authors.Items() {
		v.Authors = append(v.Authors, au.FirstName+" "+au.LastName)
	}
	for _, k := range a.Keywords.Items() {
		v.Keywords = append(v.Keywords, k.Description)
	}
	return v
}

func views(articles []model.Article) []articleView {
	out := make([]articleView, len(articles))
	for i, a := range articles {
		out[i] = view(a)
	}
	return out
}

func ids(articles []model.Article) []int64 {
	out := make([]int64, len(articles))
	for i, a := range articles {
		out[i] = a.ID.MustInt64()
	}
	return out
}
