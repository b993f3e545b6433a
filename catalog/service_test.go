package catalog_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-article-catalog/catalog"
	"github.com/goliatone/go-article-catalog/internal/cacheinfra"
	"github.com/goliatone/go-article-catalog/model"
	"github.com/goliatone/go-article-catalog/repositorycache"
	"github.com/goliatone/go-article-catalog/store"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_AuthorDeletionUnlinksArticles(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	jane, err := h.svc.CreateAuthor(ctx, model.Author{FirstName: "Jane"})
	require.NoError(t, err)
	assert.True(t, jane.ID.Equal(model.NewID(1)))

	tech, err := h.svc.CreateKeyword(ctx, model.Keyword{Description: "tech"})
	require.NoError(t, err)
	assert.True(t, tech.ID.Equal(model.NewID(1)))

	article := model.Article{Header: "X"}
	require.NoError(t, article.AddAuthor(model.AuthorRef(1)))
	require.NoError(t, article.AddKeyword(model.KeywordRef(1)))
	created, err := h.svc.CreateArticle(ctx, article)
	require.NoError(t, err)
	assert.True(t, created.ID.Equal(model.NewID(1)))

	byAuthor, err := h.svc.FindArticlesByAuthor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(byAuthor))

	byKeyword, err := h.svc.FindArticlesByKeyword(ctx, "tech")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(byKeyword))

	// warm the cache so the deletion has something to invalidate
	got, err := h.svc.GetArticle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Authors.Len())

	require.NoError(t, h.svc.DeleteAuthor(ctx, 1))

	byAuthor, err = h.svc.FindArticlesByAuthor(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, byAuthor)

	got, err = h.svc.GetArticle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Authors.Len())
	assert.Equal(t, 1, got.Keywords.Len())
}

func TestCreateArticle_ReturnsHydratedArticle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	first := s.articles[0]
	want := articleView{
		ID:          first.ID.MustInt64(),
		Header:      "Go in production",
		Description: "Notes from running Go services",
		Text:        "Long form text about Go services.",
		Published:   "2024-01-15T09:30:00Z",
		Authors:     []string{"Jane Doe", "John Smith"},
		Keywords:    []string{"tech"},
	}
	if diff := cmp.Diff(want, view(first)); diff != "" {
		t.Errorf("created article mismatch (-want +got):\n%s", diff)
	}

	got, err := h.svc.GetArticle(ctx, first.ID.MustInt64())
	require.NoError(t, err)
	assert.True(t, got.Equal(first))
	if diff := cmp.Diff(view(first), view(got)); diff != "" {
		t.Errorf("GetArticle mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_RejectsExistingIdentity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.CreateArticle(ctx, model.Article{ID: model.NewID(5), Header: "x"})
	assert.ErrorIs(t, err, model.ErrIdentityConflict)

	_, err = h.svc.CreateAuthor(ctx, model.Author{ID: model.NewID(5)})
	assert.ErrorIs(t, err, model.ErrIdentityConflict)

	_, err = h.svc.CreateKeyword(ctx, model.Keyword{ID: model.NewID(5)})
	assert.ErrorIs(t, err, model.ErrIdentityConflict)

	all, err := h.svc.ListArticles(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateArticle_UnknownReferencePersistsNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	article := model.Article{Header: "orphan"}
	require.NoError(t, article.AddAuthor(s.authors[0]))
	require.NoError(t, article.AddKeyword(model.KeywordRef(999)))

	_, err := h.svc.CreateArticle(ctx, article)
	assert.ErrorIs(t, err, model.ErrNotFound)

	all, err := h.svc.ListArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids(s.articles), ids(all))
}

func TestUpdate_WithoutIdentityCreates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	author, err := h.svc.UpdateAuthor(ctx, model.Author{FirstName: "New"})
	require.NoError(t, err)
	assert.True(t, author.ID.Valid())

	keyword, err := h.svc.UpdateKeyword(ctx, model.Keyword{Description: "fresh"})
	require.NoError(t, err)
	assert.True(t, keyword.ID.Valid())

	article := model.Article{Header: "via update"}
	require.NoError(t, article.AddAuthor(author))
	created, err := h.svc.UpdateArticle(ctx, article)
	require.NoError(t, err)
	assert.True(t, created.ID.Valid())
	assert.Equal(t, 1, created.Authors.Len())
}

func TestUpdate_UnknownIdentityIsNotFound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.UpdateArticle(ctx, model.Article{ID: model.NewID(42), Header: "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = h.svc.UpdateAuthor(ctx, model.Author{ID: model.NewID(42)})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = h.svc.UpdateKeyword(ctx, model.Keyword{ID: model.NewID(42)})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateArticle_ReadYourWrites(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	id := s.articles[0].ID.MustInt64()
	before, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)

	edited := before
	edited.Header = "Revised"
	edited.RemoveAuthor(s.authors[0])
	require.NoError(t, edited.AddAuthor(s.authors[2]))
	edited.RemoveKeyword(s.keywords[0])

	updated, err := h.svc.UpdateArticle(ctx, edited)
	require.NoError(t, err)

	got, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)
	want := articleView{
		ID:          id,
		Header:      "Revised",
		Description: before.Description,
		Text:        before.Text,
		Published:   "2024-01-15T09:30:00Z",
		Authors:     []string{"John Smith", "Ada Lovelace"},
	}
	if diff := cmp.Diff(want, view(got)); diff != "" {
		t.Errorf("article after update mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(view(updated), view(got)); diff != "" {
		t.Errorf("update result differs from subsequent read (-want +got):\n%s", diff)
	}
}

func TestUpdateAuthor_VisibleThroughCachedArticle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	id := s.articles[0].ID.MustInt64()
	_, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)

	jane := s.authors[0]
	jane.LastName = "Roe"
	_, err = h.svc.UpdateAuthor(ctx, jane)
	require.NoError(t, err)

	got, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Roe", "John Smith"}, view(got).Authors)
}

func TestUpdateKeyword_ChangesLookup(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	tech := s.keywords[0]
	tech.Description = "technology"
	_, err := h.svc.UpdateKeyword(ctx, tech)
	require.NoError(t, err)

	found, err := h.svc.FindArticlesByKeyword(ctx, "tech")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = h.svc.FindArticlesByKeyword(ctx, "technology")
	require.NoError(t, err)
	assert.Equal(t, []int64{s.articles[0].ID.MustInt64()}, ids(found))

	got, err := h.svc.GetKeyword(ctx, tech.ID.MustInt64())
	require.NoError(t, err)
	assert.Equal(t, "technology", got.Description)
}

func TestDelete_UnknownAndRepeatedAreNotFound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	assert.ErrorIs(t, h.svc.DeleteArticle(ctx, 999), model.ErrNotFound)
	assert.ErrorIs(t, h.svc.DeleteAuthor(ctx, 999), model.ErrNotFound)
	assert.ErrorIs(t, h.svc.DeleteKeyword(ctx, 999), model.ErrNotFound)
	assert.ErrorIs(t, h.svc.DeleteArticle(ctx, 0), model.ErrNotFound)

	id := s.articles[1].ID.MustInt64()
	_, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)

	require.NoError(t, h.svc.DeleteArticle(ctx, id))
	assert.ErrorIs(t, h.svc.DeleteArticle(ctx, id), model.ErrNotFound)

	_, err = h.svc.GetArticle(ctx, id)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// members of a deleted article survive
	_, err = h.svc.GetAuthor(ctx, s.authors[2].ID.MustInt64())
	require.NoError(t, err)
}

func TestDeleteKeyword_UnlinksCachedArticles(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	id := s.articles[1].ID.MustInt64()
	before, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []string{"Tech", "science"}, view(before).Keywords)

	require.NoError(t, h.svc.DeleteKeyword(ctx, s.keywords[2].ID.MustInt64()))

	after, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tech"}, view(after).Keywords)

	_, err = h.svc.GetKeyword(ctx, s.keywords[2].ID.MustInt64())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetArticle_UnknownIsNotFound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.GetArticle(ctx, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = h.svc.GetArticle(ctx, -3)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = h.svc.GetAuthor(ctx, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = h.svc.GetKeyword(ctx, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetArticle_ServedFromCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	id := s.articles[0].ID.MustInt64()
	// seeding already cached the authors and keywords through CreateArticle
	_, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)
	assert.LessOrEqual(t, h.queries.reset(), int64(3), "scalar row plus one membership query per association")

	_, err = h.svc.GetArticle(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, h.queries.reset(), "a warm article must not touch the store")
}

func TestGetArticle_ColdMembersAreBatched(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	require.NoError(t, h.cache.Clear(ctx))
	h.queries.reset()

	_, err := h.svc.GetArticle(ctx, s.articles[0].ID.MustInt64())
	require.NoError(t, err)
	// scalar row, two membership views, one batch per association
	assert.Equal(t, int64(5), h.queries.reset())
}

func TestListAndFind_AreHydratedAndOrdered(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	all, err := h.svc.ListArticles(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(views(s.articles), views(all)); diff != "" {
		t.Errorf("ListArticles mismatch (-want +got):\n%s", diff)
	}
	assert.LessOrEqual(t, h.queries.reset(), int64(3))

	byAuthor, err := h.svc.FindArticlesByAuthor(ctx, s.authors[1].ID.MustInt64())
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, []string{"Jane Doe", "John Smith"}, view(byAuthor[0]).Authors)

	authors, err := h.svc.ListAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, authors, 3)
	assert.Equal(t, "Jane", authors[0].FirstName)

	keywords, err := h.svc.ListKeywords(ctx)
	require.NoError(t, err)
	require.Len(t, keywords, 3)
	assert.Equal(t, "tech", keywords[0].Description)
}

func TestFindArticlesByKeyword_CaseSensitive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	lower, err := h.svc.FindArticlesByKeyword(ctx, "tech")
	require.NoError(t, err)
	assert.Equal(t, []int64{s.articles[0].ID.MustInt64()}, ids(lower))

	upper, err := h.svc.FindArticlesByKeyword(ctx, "Tech")
	require.NoError(t, err)
	assert.Equal(t, []int64{s.articles[1].ID.MustInt64()}, ids(upper))
}

func TestPredicateValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.FindArticlesByAuthor(ctx, 0)
	assert.ErrorIs(t, err, model.ErrValidationFailure)

	_, err = h.svc.FindArticlesByAuthor(ctx, -1)
	assert.ErrorIs(t, err, model.ErrValidationFailure)

	_, err = h.svc.FindArticlesByKeyword(ctx, "")
	assert.ErrorIs(t, err, model.ErrValidationFailure)

}

func TestFindArticlesByDateRange_Defaults(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	h := newHarness(t, catalog.WithClock(func() time.Time { return now }))
	s := h.seed(t)

	jan := s.articles[0].ID.MustInt64()
	mar := s.articles[1].ID.MustInt64()

	tests := []struct {
		name       string
		start, end *time.Time
		want       []int64
	}{
		{name: "open both ends resolves to epoch..now", want: []int64{jan}},
		{name: "open start", end: ptr(time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)), want: []int64{jan}},
		{name: "open end uses clock", start: ptr(time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))},
		{name: "explicit wide window", start: ptr(time.Unix(0, 0)), end: ptr(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)), want: []int64{jan, mar}},
		{name: "inclusive end bound", start: ptr(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), end: ptr(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), want: []int64{mar}},
		{name: "future start with open end is empty", start: ptr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))},
		{name: "inverted explicit window is empty", start: ptr(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)), end: ptr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.svc.FindArticlesByDateRange(ctx, tt.start, tt.end)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		wantStart bool
		wantEnd   bool
		wantErr   bool
	}{
		{name: "both blank"},
		{name: "start only", start: "2024-01-01T00:00:00Z", wantStart: true},
		{name: "end only with offset", end: "2024-01-01T10:00:00+02:00", wantEnd: true},
		{name: "both with fraction", start: "2024-01-01T00:00:00.5Z", end: "2024-01-02T00:00:00Z", wantStart: true, wantEnd: true},
		{name: "malformed start", start: "yesterday", wantErr: true},
		{name: "date without time", end: "2024-01-01", wantErr: true},
		{name: "start after end parses", start: "2024-02-01T00:00:00Z", end: "2024-01-01T00:00:00Z", wantStart: true, wantEnd: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := catalog.ParseDateRange(tt.start, tt.end)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrValidationFailure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start != nil)
			assert.Equal(t, tt.wantEnd, end != nil)
		})
	}
}

func TestGetArticle_ReturnsPrivateCopies(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	id := s.articles[0].ID.MustInt64()
	first, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)
	first.RemoveAuthor(s.authors[0])
	first.Header = "mutated"

	second, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Go in production", second.Header)
	assert.Equal(t, 2, second.Authors.Len())
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.seed(t)

	id := s.articles[0].ID.MustInt64()
	base, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 10 {
				if i == 0 {
					edited := base.Clone()
					edited.Header = "rev " + time.Now().Format(time.RFC3339Nano)
					if j%2 == 0 {
						edited.RemoveAuthor(s.authors[1])
					}
					if _, err := h.svc.UpdateArticle(ctx, edited); err != nil {
						errs <- err
					}
					continue
				}
				got, err := h.svc.GetArticle(ctx, id)
				if err != nil {
					errs <- err
					continue
				}
				if got.Authors.Len() == 0 {
					errs <- errors.New("observed an article without authors")
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	// once writers are done every reader sees the final state
	final, err := h.svc.ListArticles(ctx)
	require.NoError(t, err)
	got, err := h.svc.GetArticle(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(view(final[0]), view(got)); diff != "" {
		t.Errorf("cached article diverged from store (-store +cached):\n%s", diff)
	}
}

func TestCacheFaultsDegradeToStoreReads(t *testing.T) {
	ctx := context.Background()
	failing := func(string, cacheinfra.Config) (cacheinfra.Backend, error) {
		return nil, errors.New("cache backend down")
	}
	regions, err := cacheinfra.NewRegionService(cacheinfra.DefaultConfig(), failing, nil, nil)
	require.NoError(t, err)

	h := newHarnessWithCache(t, regions)
	s := h.seed(t)

	got, err := h.svc.GetArticle(ctx, s.articles[0].ID.MustInt64())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Authors.Len())

	require.NoError(t, h.svc.DeleteAuthor(ctx, s.authors[0].ID.MustInt64()))
	got, err = h.svc.GetArticle(ctx, s.articles[0].ID.MustInt64())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Authors.Len())
}

func TestStoreFailureIsStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.db.Close())

	_, err := h.svc.ListArticles(ctx)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)

	_, err = h.svc.GetArticle(ctx, 1)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)

	_, err = h.svc.CreateAuthor(ctx, model.Author{FirstName: "x"})
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestGetArticle_CancelledContext(t *testing.T) {
	h := newHarness(t)
	s := h.seed(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.GetArticle(ctx, s.articles[0].ID.MustInt64())
	if err != nil {
		assert.ErrorIs(t, err, model.ErrStoreUnavailable)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func ptr[T any](v T) *T { return &v }

// cancelAfterCommit cancels the caller's context as soon as a write returns.
type cancelAfterCommit struct {
	store.ArticleRepository
	cancel context.CancelFunc
}

func (c cancelAfterCommit) Create(ctx context.Context, rec store.ArticleRecord, links store.Links) (store.ArticleRecord, error) {
	out, err := c.ArticleRepository.Create(ctx, rec, links)
	c.cancel()
	return out, err
}

func (c cancelAfterCommit) Update(ctx context.Context, rec store.ArticleRecord, links store.Links) (store.ArticleChange, error) {
	out, err := c.ArticleRepository.Update(ctx, rec, links)
	c.cancel()
	return out, err
}

func TestArticleWrites_CommittedDespiteCallerCancel(t *testing.T) {
	h := newHarness(t)
	s := h.seed(t)
	cacheService := h.cache

	newSvc := func(cancel context.CancelFunc) *catalog.Service {
		return catalog.New(
			cancelAfterCommit{
				ArticleRepository: repositorycache.NewArticles(store.NewArticleStore(h.db), cacheService),
				cancel:            cancel,
			},
			repositorycache.NewAuthors(store.NewAuthorStore(h.db), cacheService),
			repositorycache.NewKeywords(store.NewKeywordStore(h.db), cacheService),
			catalog.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc := newSvc(cancel)

	draft := model.Article{Header: "Late reader"}
	require.NoError(t, draft.AddAuthor(s.authors[1]))
	created, err := svc.CreateArticle(ctx, draft)
	require.NoError(t, err, "a committed create must not be reported as failed")
	require.True(t, created.ID.Valid())
	assert.Equal(t, []int64{s.authors[1].ID.MustInt64()}, created.Authors.IDs())

	ctx, cancel = context.WithCancel(context.Background())
	svc = newSvc(cancel)

	created.Header = "Late reader, revised"
	updated, err := svc.UpdateArticle(ctx, created)
	require.NoError(t, err, "a committed update must not be reported as failed")
	assert.Equal(t, "Late reader, revised", updated.Header)

	all, err := h.svc.ListArticles(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, len(s.articles)+1, "exactly one article is created")
}
