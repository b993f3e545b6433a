package store

import (
	"time"

	"github.com/uptrace/bun"
)

// Record is a persisted row with a store-assigned numeric identity.
type Record interface {
	RecordID() int64
}

// AuthorRecord maps the author table.
type AuthorRecord struct {
	bun.BaseModel `bun:"table:author,alias:author" msgpack:"-"`

	ID        int64  `bun:"id,pk,autoincrement" msgpack:"id"`
	FirstName string `bun:"first_name,notnull" msgpack:"first_name"`
	LastName  string `bun:"last_name,notnull" msgpack:"last_name"`
}

// RecordID implements Record.
func (r AuthorRecord) RecordID() int64 { return r.ID }

// KeywordRecord maps the keyword table.
type KeywordRecord struct {
	bun.BaseModel `bun:"table:keyword,alias:keyword" msgpack:"-"`

	ID          int64  `bun:"id,pk,autoincrement" msgpack:"id"`
	Description string `bun:"description,notnull" msgpack:"description"`
}

// RecordID implements Record.
func (r KeywordRecord) RecordID() int64 { return r.ID }

// ArticleRecord maps the article table. Authors and Keywords are only
// populated by the eager-fetch queries and are never cached with the row.
type ArticleRecord struct {
	bun.BaseModel `bun:"table:article,alias:article" msgpack:"-"`

	ID              int64      `bun:"id,pk,autoincrement" msgpack:"id"`
	Header          string     `bun:"header,notnull" msgpack:"header"`
	Description     string     `bun:"description,notnull" msgpack:"description"`
	Text            string     `bun:"text,notnull" msgpack:"text"`
	PublicationDate *time.Time `bun:"publication_date,nullzero" msgpack:"publication_date"`

	Authors  []AuthorRecord  `bun:"m2m:article_author,join:Article=Author" msgpack:"-"`
	Keywords []KeywordRecord `bun:"m2m:article_keyword,join:Article=Keyword" msgpack:"-"`
}

// RecordID implements Record.
func (r ArticleRecord) RecordID() int64 { return r.ID }

// ArticleAuthor is the article_author edge.
type ArticleAuthor struct {
	bun.BaseModel `bun:"table:article_author,alias:article_author"`

	ArticleID int64          `bun:"article_id,pk"`
	Article   *ArticleRecord `bun:"rel:belongs-to,join:article_id=id"`
	AuthorID  int64          `bun:"author_id,pk"`
	Author    *AuthorRecord  `bun:"rel:belongs-to,join:author_id=id"`
}

// ArticleKeyword is the article_keyword edge.
type ArticleKeyword struct {
	bun.BaseModel `bun:"table:article_keyword,alias:article_keyword"`

	ArticleID int64          `bun:"article_id,pk"`
	Article   *ArticleRecord `bun:"rel:belongs-to,join:article_id=id"`
	KeywordID int64          `bun:"keyword_id,pk"`
	Keyword   *KeywordRecord `bun:"rel:belongs-to,join:keyword_id=id"`
}

// Links carries the membership an article should end up with.
type Links struct {
	AuthorIDs  []int64
	KeywordIDs []int64
}

// ArticleChange reports which parts of an article an update actually touched.
type ArticleChange struct {
	AuthorsChanged  bool
	KeywordsChanged bool
}
