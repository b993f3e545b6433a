package catalog

import (
	"context"
	"fmt"

	"github.com/goliatone/go-article-catalog/model"
	"go.opentelemetry.io/otel/attribute"
)

// CreateArticle persists a new article with its memberships and returns it
// hydrated. An article that already has an identity is rejected with
// model.ErrIdentityConflict; an unknown author or keyword with model.ErrNotFound.
func (s *Service) CreateArticle(ctx context.Context, a model.Article) (out model.Article, err error) {
	ctx, span := s.start(ctx, "CreateArticle")
	defer func() { s.finish(ctx, span, "CreateArticle", err); span.End() }()

	if a.ID.Valid() {
		return model.Article{}, fmt.Errorf("create article %s: %w", a.ID, model.ErrIdentityConflict)
	}
	return s.createArticle(ctx, a)
}

func (s *Service) createArticle(ctx context.Context, a model.Article) (model.Article, error) {
	rec, links := fromArticle(a)
	created, err := s.articles.Create(ctx, rec, links)
	if err != nil {
		return model.Article{}, err
	}
	s.mutated()
	s.logger.InfoContext(ctx, "article created", "article_id", created.ID)
	// the write is committed; a caller giving up now must not see it reported as failed
	return s.hydrate(context.WithoutCancel(ctx), created.ID)
}

// UpdateArticle replaces the scalar fields and memberships of an existing
// article. An article without identity is created instead.
func (s *Service) UpdateArticle(ctx context.Context, a model.Article) (out model.Article, err error) {
	ctx, span := s.start(ctx, "UpdateArticle", attribute.String("article.id", a.ID.String()))
	defer func() { s.finish(ctx, span, "UpdateArticle", err); span.End() }()

	if !a.ID.Valid() {
		return s.createArticle(ctx, a)
	}

	rec, links := fromArticle(a)
	change, err := s.articles.Update(ctx, rec, links)
	if err != nil {
		return model.Article{}, err
	}
	s.mutated()
	s.logger.InfoContext(ctx, "article updated",
		"article_id", rec.ID,
		"authors_changed", change.AuthorsChanged,
		"keywords_changed", change.KeywordsChanged)
	return s.hydrate(context.WithoutCancel(ctx), rec.ID)
}

// DeleteArticle removes the article and its memberships. Authors and
// keywords are kept.
func (s *Service) DeleteArticle(ctx context.Context, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteArticle", attribute.Int64("article.id", id))
	defer func() { s.finish(ctx, span, "DeleteArticle", err); span.End() }()

	if id <= 0 {
		return notFound("article", id)
	}
	if err := s.articles.Delete(ctx, id); err != nil {
		return err
	}
	s.mutated()
	s.logger.InfoContext(ctx, "article deleted", "article_id", id)
	return nil
}

// CreateAuthor persists a new author.
func (s *Service) CreateAuthor(ctx context.Context, a model.Author) (out model.Author, err error) {
	ctx, span := s.start(ctx, "CreateAuthor")
	defer func() { s.finish(ctx, span, "CreateAuthor", err); span.End() }()

	if a.ID.Valid() {
		return model.Author{}, fmt.Errorf("create author %s: %w", a.ID, model.ErrIdentityConflict)
	}
	return s.createAuthor(ctx, a)
}

func (s *Service) createAuthor(ctx context.Context, a model.Author) (model.Author, error) {
	rec, err := s.authors.Create(ctx, fromAuthor(a))
	if err != nil {
		return model.Author{}, err
	}
	s.mutated()
	s.logger.InfoContext(ctx, "author created", "author_id", rec.ID)
	return toAuthor(rec), nil
}

// UpdateAuthor updates an existing author, or creates one when a has no identity.
func (s *Service) UpdateAuthor(ctx context.Context, a model.Author) (out model.Author, err error) {
	ctx, span := s.start(ctx, "UpdateAuthor", attribute.String("author.id", a.ID.String()))
	defer func() { s.finish(ctx, span, "UpdateAuthor", err); span.End() }()

	if !a.ID.Valid() {
		return s.createAuthor(ctx, a)
	}
	rec, err := s.authors.Update(ctx, fromAuthor(a))
	if err != nil {
		return model.Author{}, err
	}
	s.mutated()
	s.logger.InfoContext(ctx, "author updated", "author_id", rec.ID)
	return toAuthor(rec), nil
}

// DeleteAuthor removes the author and unlinks it from every article.
func (s *Service) DeleteAuthor(ctx context.Context, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteAuthor", attribute.Int64("author.id", id))
	defer func() { s.finish(ctx, span, "DeleteAuthor", err); span.End() }()

	if id <= 0 {
		return notFound("author", id)
	}
	articleIDs, err := s.authors.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.mutated()
	s.logger.InfoContext(ctx, "author deleted", "author_id", id, "unlinked_articles", len(articleIDs))
	return nil
}

// CreateKeyword persists a new keyword.
func (s *Service) CreateKeyword(ctx context.Context, k model.Keyword) (out model.Keyword, err error) {
	ctx, span := s.start(ctx, "CreateKeyword")
	defer func() { s.finish(ctx, span, "CreateKeyword", err); span.End() }()

	if k.ID.Valid() {
		return model.Keyword{}, fmt.Errorf("create keyword %s: %w", k.ID, model.ErrIdentityConflict)
	}
	return s.createKeyword(ctx, k)
}

func (s *Service) createKeyword(ctx context.Context, k model.Keyword) (model.Keyword, error) {
	rec, err := s.keywords.Create(ctx, fromKeyword(k))
	if err != nil {
		return model.Keyword{}, err
	}
	s.mutated()
	s.logger.InfoContext(ctx, "keyword created", "keyword_id", rec.ID)
	return toKeyword(rec), nil
}

// UpdateKeyword updates an existing keyword, or creates one when k has no identity.
func (s *Service) UpdateKeyword(ctx context.Context, k model.Keyword) (out model.Keyword, err error) {
	ctx, span := s.start(ctx, "UpdateKeyword", attribute.String("keyword.id", k.ID.String()))
	defer func() { s.finish(ctx, span, "UpdateKeyword", err); span.End() }()

	if !k.ID.Valid() {
		return s.createKeyword(ctx, k)
	}
	rec, err := s.keywords.Update(ctx, fromKeyword(k))
	if err != nil {
		return model.Keyword{}, err
	}
	s.mutated()
	s.logger.InfoContext(ctx, "keyword updated", "keyword_id", rec.ID)
	return toKeyword(rec), nil
}

// DeleteKeyword removes the keyword and unlinks it from every article.
func (s *Service) DeleteKeyword(ctx context.Context, id int64) (err error) {
	ctx, span := s.start(ctx, "DeleteKeyword", attribute.Int64("keyword.id", id))
	defer func() { s.finish(ctx, span, "DeleteKeyword", err); span.End() }()

	if id <= 0 {
		return notFound("keyword", id)
	}
	articleIDs, err := s.keywords.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.mutated()
	s.logger.InfoContext(ctx, "keyword deleted", "keyword_id", id, "unlinked_articles", len(articleIDs))
	return nil
}
