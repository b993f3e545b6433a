package store

import (
	"context"
	"time"
)

// ArticleRepository is the persistence contract for articles and their edges.
// Mutations run in a single transaction each.
type ArticleRepository interface {
	// List returns every article with both associations hydrated, ordered by id.
	List(ctx context.Context) ([]ArticleRecord, error)
	// Get returns the scalar row only; Authors and Keywords stay empty.
	Get(ctx context.Context, id int64) (ArticleRecord, error)
	// AuthorIDs returns the ids of the authors linked to an article, ascending.
	AuthorIDs(ctx context.Context, id int64) ([]int64, error)
	// KeywordIDs returns the ids of the keywords linked to an article, ascending.
	KeywordIDs(ctx context.Context, id int64) ([]int64, error)
	FindByAuthor(ctx context.Context, authorID int64) ([]ArticleRecord, error)
	FindByKeyword(ctx context.Context, description string) ([]ArticleRecord, error)
	// FindByPublicationDateRange is inclusive on both bounds.
	FindByPublicationDateRange(ctx context.Context, start, end time.Time) ([]ArticleRecord, error)
	Create(ctx context.Context, rec ArticleRecord, links Links) (ArticleRecord, error)
	Update(ctx context.Context, rec ArticleRecord, links Links) (ArticleChange, error)
	Delete(ctx context.Context, id int64) error
}

// MemberRepository is the persistence contract for entities referenced by
// articles (authors and keywords).
type MemberRepository[T Record] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	// GetMany returns the records that exist among ids, ordered by id.
	GetMany(ctx context.Context, ids []int64) ([]T, error)
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, rec T) (T, error)
	// Delete removes the entity and its edges and returns the ids of the
	// articles that referenced it.
	Delete(ctx context.Context, id int64) ([]int64, error)
}

// AuthorRepository is the author flavour of MemberRepository.
type AuthorRepository = MemberRepository[AuthorRecord]

// KeywordRepository is the keyword flavour of MemberRepository.
type KeywordRepository = MemberRepository[KeywordRecord]
