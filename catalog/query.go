package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-article-catalog/model"
	"github.com/goliatone/go-article-catalog/store"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// GetArticle returns the hydrated article or an error wrapping model.ErrNotFound.
// Scalar fields and membership views come from the cache when present;
// members are resolved with at most one store call per association.
func (s *Service) GetArticle(ctx context.Context, id int64) (a model.Article, err error) {
	ctx, span := s.start(ctx, "GetArticle", attribute.Int64("article.id", id))
	defer func() { s.finish(ctx, span, "GetArticle", err); span.End() }()

	if id <= 0 {
		return model.Article{}, notFound("article", id)
	}

	// the shared hydration must not be cancelled by whichever caller started it
	shared := context.WithoutCancel(ctx)
	ch := s.hydrations.DoChan(s.hydrationKey(id), func() (any, error) {
		return s.hydrate(shared, id)
	})

	select {
	case <-ctx.Done():
		return model.Article{}, fmt.Errorf("get article %d: %w: %w", id, model.ErrStoreUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return model.Article{}, res.Err
		}
		span.SetAttributes(attribute.Bool("article.shared", res.Shared))
		return res.Val.(model.Article).Clone(), nil
	}
}

func (s *Service) hydrate(ctx context.Context, id int64) (model.Article, error) {
	rec, err := s.articles.Get(ctx, id)
	if err != nil {
		return model.Article{}, err
	}

	var (
		authors  []store.AuthorRecord
		keywords []store.KeywordRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.articles.AuthorIDs(gctx, id)
		if err != nil {
			return err
		}
		authors, err = s.authors.GetMany(gctx, ids)
		return err
	})
	g.Go(func() error {
		ids, err := s.articles.KeywordIDs(gctx, id)
		if err != nil {
			return err
		}
		keywords, err = s.keywords.GetMany(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Article{}, err
	}
	return toArticle(rec, authors, keywords)
}

// ListArticles returns every article, hydrated, ordered by id.
func (s *Service) ListArticles(ctx context.Context) (out []model.Article, err error) {
	ctx, span := s.start(ctx, "ListArticles")
	defer func() { s.finish(ctx, span, "ListArticles", err); span.End() }()

	recs, err := s.articles.List(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(recs)))
	return toArticles(recs)
}

// FindArticlesByAuthor returns the articles crediting authorID, hydrated.
func (s *Service) FindArticlesByAuthor(ctx context.Context, authorID int64) (out []model.Article, err error) {
	ctx, span := s.start(ctx, "FindArticlesByAuthor", attribute.Int64("author.id", authorID))
	defer func() { s.finish(ctx, span, "FindArticlesByAuthor", err); span.End() }()

	if err := validateAuthorPredicate(authorID); err != nil {
		return nil, invalid("find articles by author", err)
	}
	recs, err := s.articles.FindByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(recs)))
	return toArticles(recs)
}

// FindArticlesByKeyword returns the articles tagged with a keyword whose
// description equals description exactly, case included.
func (s *Service) FindArticlesByKeyword(ctx context.Context, description string) (out []model.Article, err error) {
	ctx, span := s.start(ctx, "FindArticlesByKeyword", attribute.String("keyword.description", description))
	defer func() { s.finish(ctx, span, "FindArticlesByKeyword", err); span.End() }()

	if err := validateKeywordPredicate(description); err != nil {
		return nil, invalid("find articles by keyword", err)
	}
	recs, err := s.articles.FindByKeyword(ctx, description)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(recs)))
	return toArticles(recs)
}

// FindArticlesByDateRange returns articles published within [start, end].
// A nil start means the Unix epoch and a nil end means the clock's now.
// A start after the end yields an empty result.
func (s *Service) FindArticlesByDateRange(ctx context.Context, start, end *time.Time) (out []model.Article, err error) {
	from, to := epoch, s.now()
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}

	ctx, span := s.start(ctx, "FindArticlesByDateRange",
		attribute.String("range.start", from.UTC().Format(time.RFC3339Nano)),
		attribute.String("range.end", to.UTC().Format(time.RFC3339Nano)),
	)
	defer func() { s.finish(ctx, span, "FindArticlesByDateRange", err); span.End() }()

	if from.After(to) {
		// an inverted window matches nothing
		return []model.Article{}, nil
	}
	recs, err := s.articles.FindByPublicationDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(recs)))
	return toArticles(recs)
}

// GetAuthor returns the author or an error wrapping model.ErrNotFound.
func (s *Service) GetAuthor(ctx context.Context, id int64) (a model.Author, err error) {
	ctx, span := s.start(ctx, "GetAuthor", attribute.Int64("author.id", id))
	defer func() { s.finish(ctx, span, "GetAuthor", err); span.End() }()

	if id <= 0 {
		return model.Author{}, notFound("author", id)
	}
	rec, err := s.authors.Get(ctx, id)
	if err != nil {
		return model.Author{}, err
	}
	return toAuthor(rec), nil
}

// ListAuthors returns every author ordered by id.
func (s *Service) ListAuthors(ctx context.Context) (out []model.Author, err error) {
	ctx, span := s.start(ctx, "ListAuthors")
	defer func() { s.finish(ctx, span, "ListAuthors", err); span.End() }()

	recs, err := s.authors.List(ctx)
	if err != nil {
		return nil, err
	}
	out = make([]model.Author, len(recs))
	for i, rec := range recs {
		out[i] = toAuthor(rec)
	}
	return out, nil
}

// GetKeyword returns the keyword or an error wrapping model.ErrNotFound.
func (s *Service) GetKeyword(ctx context.Context, id int64) (k model.Keyword, err error) {
	ctx, span := s.start(ctx, "GetKeyword", attribute.Int64("keyword.id", id))
	defer func() { s.finish(ctx, span, "GetKeyword", err); span.End() }()

	if id <= 0 {
		return model.Keyword{}, notFound("keyword", id)
	}
	rec, err := s.keywords.Get(ctx, id)
	if err != nil {
		return model.Keyword{}, err
	}
	return toKeyword(rec), nil
}

// ListKeywords returns every keyword ordered by id.
func (s *Service) ListKeywords(ctx context.Context) (out []model.Keyword, err error) {
	ctx, span := s.start(ctx, "ListKeywords")
	defer func() { s.finish(ctx, span, "ListKeywords", err); span.End() }()

	recs, err := s.keywords.List(ctx)
	if err != nil {
		return nil, err
	}
	out = make([]model.Keyword, len(recs))
	for i, rec := range recs {
		out[i] = toKeyword(rec)
	}
	return out, nil
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, model.ErrNotFound)
}
