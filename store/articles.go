package store

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ArticleStore persists articles and their author/keyword edges with bun.
type ArticleStore struct {
	db bun.IDB
}

var _ ArticleRepository = (*ArticleStore)(nil)

// NewArticleStore returns the article store.
func NewArticleStore(db bun.IDB) *ArticleStore {
	return &ArticleStore{db: db}
}

// hydrated selects articles with both associations eagerly loaded. bun runs
// one extra query per relation for the whole result set, never one per row.
func (s *ArticleStore) hydrated(recs *[]ArticleRecord) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(recs).
		Relation("Authors", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("author.id ASC")
		}).
		Relation("Keywords", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("keyword.id ASC")
		}).
		OrderExpr("article.id ASC")
}

func (s *ArticleStore) List(ctx context.Context) ([]ArticleRecord, error) {
	var recs []ArticleRecord
	if err := s.hydrated(&recs).Scan(ctx); err != nil {
		return nil, mapError("list articles", err)
	}
	return recs, nil
}

func (s *ArticleStore) Get(ctx context.Context, id int64) (ArticleRecord, error) {
	var rec ArticleRecord
	err := s.db.NewSelect().Model(&rec).Where("article.id = ?", id).Scan(ctx)
	if isNoRows(err) {
		return ArticleRecord{}, notFound("article", id)
	}
	if err != nil {
		return ArticleRecord{}, mapError(fmt.Sprintf("get article %d", id), err)
	}
	return rec, nil
}

func (s *ArticleStore) AuthorIDs(ctx context.Context, id int64) ([]int64, error) {
	ids := []int64{}
	err := s.db.NewSelect().
		Model((*ArticleAuthor)(nil)).
		Column("author_id").
		Where("article_id = ?", id).
		OrderExpr("author_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, mapError(fmt.Sprintf("article %d authors", id), err)
	}
	return ids, nil
}

func (s *ArticleStore) KeywordIDs(ctx context.Context, id int64) ([]int64, error) {
	ids := []int64{}
	err := s.db.NewSelect().
		Model((*ArticleKeyword)(nil)).
		Column("keyword_id").
		Where("article_id = ?", id).
		OrderExpr("keyword_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, mapError(fmt.Sprintf("article %d keywords", id), err)
	}
	return ids, nil
}

// FindByAuthor filters through a sub-select so the eager fetch still loads
// every author of each matching article, not just the one searched for.
func (s *ArticleStore) FindByAuthor(ctx context.Context, authorID int64) ([]ArticleRecord, error) {
	sub := s.db.NewSelect().
		Model((*ArticleAuthor)(nil)).
		Column("article_id").
		Where("author_id = ?", authorID)

	var recs []ArticleRecord
	if err := s.hydrated(&recs).Where("article.id IN (?)", sub).Scan(ctx); err != nil {
		return nil, mapError(fmt.Sprintf("find articles by author %d", authorID), err)
	}
	return recs, nil
}

// FindByKeyword matches the keyword description exactly, case included.
func (s *ArticleStore) FindByKeyword(ctx context.Context, description string) ([]ArticleRecord, error) {
	sub := s.db.NewSelect().
		TableExpr("article_keyword AS ak").
		ColumnExpr("ak.article_id").
		Join("JOIN keyword AS k ON k.id = ak.keyword_id").
		Where("k.description = ?", description)

	var recs []ArticleRecord
	if err := s.hydrated(&recs).Where("article.id IN (?)", sub).Scan(ctx); err != nil {
		return nil, mapError(fmt.Sprintf("find articles by keyword %q", description), err)
	}
	return recs, nil
}

// FindByPublicationDateRange returns articles published in [start, end].
// Articles without a publication date never match.
func (s *ArticleStore) FindByPublicationDateRange(ctx context.Context, start, end time.Time) ([]ArticleRecord, error) {
	var recs []ArticleRecord
	err := s.hydrated(&recs).
		Where("article.publication_date BETWEEN ? AND ?", normalizeTime(start), normalizeTime(end)).
		Scan(ctx)
	if err != nil {
		return nil, mapError("find articles by publication date", err)
	}
	return recs, nil
}

// Create inserts the article and its edges in one transaction. Any unknown
// author or keyword id aborts the whole write with ErrNotFound.
func (s *ArticleStore) Create(ctx context.Context, rec ArticleRecord, links Links) (ArticleRecord, error) {
	rec.ID = 0
	rec.Authors, rec.Keywords = nil, nil
	rec.PublicationDate = normalizeTimePtr(rec.PublicationDate)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := checkExists(ctx, tx, (*AuthorRecord)(nil), "author", links.AuthorIDs); err != nil {
			return err
		}
		if err := checkExists(ctx, tx, (*KeywordRecord)(nil), "keyword", links.KeywordIDs); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&rec).Returning("*").Exec(ctx); err != nil {
			return err
		}
		if _, err := insertAuthorEdges(ctx, tx, rec.ID, links.AuthorIDs); err != nil {
			return err
		}
		_, err := insertKeywordEdges(ctx, tx, rec.ID, links.KeywordIDs)
		return err
	})
	if err != nil {
		return ArticleRecord{}, mapError("create article", err)
	}
	return rec, nil
}

// Update writes the scalar fields and reconciles both edge sets to exactly
// links, all in one transaction.
func (s *ArticleStore) Update(ctx context.Context, rec ArticleRecord, links Links) (ArticleChange, error) {
	rec.Authors, rec.Keywords = nil, nil
	rec.PublicationDate = normalizeTimePtr(rec.PublicationDate)

	var change ArticleChange
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(&rec).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("article", rec.ID)
		}

		if err := checkExists(ctx, tx, (*AuthorRecord)(nil), "author", links.AuthorIDs); err != nil {
			return err
		}
		if err := checkExists(ctx, tx, (*KeywordRecord)(nil), "keyword", links.KeywordIDs); err != nil {
			return err
		}

		removed, err := pruneEdges(ctx, tx, (*ArticleAuthor)(nil), "author_id", rec.ID, links.AuthorIDs)
		if err != nil {
			return err
		}
		added, err := insertAuthorEdges(ctx, tx, rec.ID, links.AuthorIDs)
		if err != nil {
			return err
		}
		change.AuthorsChanged = removed+added > 0

		removed, err = pruneEdges(ctx, tx, (*ArticleKeyword)(nil), "keyword_id", rec.ID, links.KeywordIDs)
		if err != nil {
			return err
		}
		added, err = insertKeywordEdges(ctx, tx, rec.ID, links.KeywordIDs)
		if err != nil {
			return err
		}
		change.KeywordsChanged = removed+added > 0
		return nil
	})
	if err != nil {
		return ArticleChange{}, mapError(fmt.Sprintf("update article %d", rec.ID), err)
	}
	return change, nil
}

// Delete removes the article and its edges. The referenced authors and
// keywords are left untouched.
func (s *ArticleStore) Delete(ctx context.Context, id int64) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*ArticleAuthor)(nil)).Where("article_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*ArticleKeyword)(nil)).Where("article_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*ArticleRecord)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("article", id)
		}
		return nil
	})
	return mapError(fmt.Sprintf("delete article %d", id), err)
}

func checkExists(ctx context.Context, tx bun.Tx, model any, kind string, ids []int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	var found []int64
	err := tx.NewSelect().
		Model(model).
		Column("id").
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx, &found)
	if err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}
	present := make(map[int64]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			return notFound(kind, id)
		}
	}
	return nil
}

func insertAuthorEdges(ctx context.Context, tx bun.Tx, articleID int64, ids []int64) (int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	edges := make([]ArticleAuthor, len(ids))
	for i, id := range ids {
		edges[i] = ArticleAuthor{ArticleID: articleID, AuthorID: id}
	}
	return insertEdges(ctx, tx, &edges)
}

func insertKeywordEdges(ctx context.Context, tx bun.Tx, articleID int64, ids []int64) (int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	edges := make([]ArticleKeyword, len(ids))
	for i, id := range ids {
		edges[i] = ArticleKeyword{ArticleID: articleID, KeywordID: id}
	}
	return insertEdges(ctx, tx, &edges)
}

// insertEdges is idempotent: an existing pair is left alone.
func insertEdges(ctx context.Context, tx bun.Tx, edges any) (int64, error) {
	res, err := tx.NewInsert().Model(edges).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// pruneEdges removes the article's edges whose member is not in keep.
func pruneEdges(ctx context.Context, tx bun.Tx, edge any, column string, articleID int64, keep []int64) (int64, error) {
	q := tx.NewDelete().Model(edge).Where("article_id = ?", articleID)
	if keep = uniqueIDs(keep); len(keep) > 0 {
		q = q.Where("? NOT IN (?)", bun.Ident(column), bun.In(keep))
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func uniqueIDs(ids []int64) []int64 {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// normalizeTime stores instants in UTC at microsecond precision, the finest
// both supported dialects keep.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func normalizeTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := normalizeTime(*t)
	return &n
}
