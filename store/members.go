package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// MemberStore persists authors or keywords with bun.
type MemberStore[T Record] struct {
	db   bun.IDB
	kind string
	// edgeModel and edgeColumn locate the article edges pointing at this entity.
	edgeModel  any
	edgeColumn string
}

var (
	_ AuthorRepository  = (*MemberStore[AuthorRecord])(nil)
	_ KeywordRepository = (*MemberStore[KeywordRecord])(nil)
)

// NewAuthorStore returns the author store.
func NewAuthorStore(db bun.IDB) *MemberStore[AuthorRecord] {
	return &MemberStore[AuthorRecord]{db: db, kind: "author", edgeModel: (*ArticleAuthor)(nil), edgeColumn: "author_id"}
}

// NewKeywordStore returns the keyword store.
func NewKeywordStore(db bun.IDB) *MemberStore[KeywordRecord] {
	return &MemberStore[KeywordRecord]{db: db, kind: "keyword", edgeModel: (*ArticleKeyword)(nil), edgeColumn: "keyword_id"}
}

func (s *MemberStore[T]) List(ctx context.Context) ([]T, error) {
	var recs []T
	err := s.db.NewSelect().Model(&recs).OrderExpr("?TableAlias.id ASC").Scan(ctx)
	if err != nil {
		return nil, mapError("list "+s.kind, err)
	}
	return recs, nil
}

func (s *MemberStore[T]) Get(ctx context.Context, id int64) (T, error) {
	var rec T
	err := s.db.NewSelect().Model(&rec).Where("?TableAlias.id = ?", id).Scan(ctx)
	if isNoRows(err) {
		return rec, notFound(s.kind, id)
	}
	if err != nil {
		return rec, mapError(fmt.Sprintf("get %s %d", s.kind, id), err)
	}
	return rec, nil
}

func (s *MemberStore[T]) GetMany(ctx context.Context, ids []int64) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recs []T
	err := s.db.NewSelect().
		Model(&recs).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError("get many "+s.kind, err)
	}
	return recs, nil
}

func (s *MemberStore[T]) Create(ctx context.Context, rec T) (T, error) {
	if _, err := s.db.NewInsert().Model(&rec).Returning("*").Exec(ctx); err != nil {
		var zero T
		return zero, mapError("create "+s.kind, err)
	}
	return rec, nil
}

func (s *MemberStore[T]) Update(ctx context.Context, rec T) (T, error) {
	res, err := s.db.NewUpdate().Model(&rec).WherePK().Exec(ctx)
	if err != nil {
		var zero T
		return zero, mapError(fmt.Sprintf("update %s %d", s.kind, rec.RecordID()), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var zero T
		return zero, notFound(s.kind, rec.RecordID())
	}
	return rec, nil
}

func (s *MemberStore[T]) Delete(ctx context.Context, id int64) ([]int64, error) {
	var articleIDs []int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(s.edgeModel).
			Column("article_id").
			Where("? = ?", bun.Ident(s.edgeColumn), id).
			OrderExpr("article_id ASC").
			Scan(ctx, &articleIDs)
		if err != nil {
			return err
		}

		if _, err := tx.NewDelete().
			Model(s.edgeModel).
			Where("? = ?", bun.Ident(s.edgeColumn), id).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*T)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(s.kind, id)
		}
		return nil
	})
	if err != nil {
		return nil, mapError(fmt.Sprintf("delete %s %d", s.kind, id), err)
	}
	return articleIDs, nil
}
