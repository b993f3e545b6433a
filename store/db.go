package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Config describes how to reach the relational store.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// LogQueries installs a QueryHook that logs every statement at debug level.
	LogQueries bool
}

// DefaultConfig returns an in-memory sqlite configuration.
func DefaultConfig() Config {
	return Config{
		Driver:       DriverSQLite,
		DSN:          "file:catalog?mode=memory&cache=shared&_foreign_keys=on",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// Open connects to the store and returns a bun.DB with the edge models registered.
func Open(cfg Config, logger *slog.Logger) (*bun.DB, error) {
	var dialect schema.Dialect
	switch cfg.Driver {
	case DriverSQLite:
		dialect = sqlitedialect.New()
	case DriverPostgres:
		dialect = pgdialect.New()
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	db := bun.NewDB(sqldb, dialect)
	RegisterModels(db)
	if cfg.LogQueries {
		db.AddQueryHook(NewLogHook(logger))
	}
	return db, nil
}

// RegisterModels registers the m2m edge models. bun needs them before any
// query touches the Authors or Keywords relations.
func RegisterModels(db *bun.DB) {
	db.RegisterModel((*ArticleAuthor)(nil), (*ArticleKeyword)(nil))
}

// CreateSchema creates the catalog tables and indexes if they do not exist.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	tables := []struct {
		model       any
		foreignKeys []string
	}{
		{model: (*AuthorRecord)(nil)},
		{model: (*KeywordRecord)(nil)},
		{model: (*ArticleRecord)(nil)},
		{
			model: (*ArticleAuthor)(nil),
			foreignKeys: []string{
				`("article_id") REFERENCES "article" ("id") ON DELETE CASCADE`,
				`("author_id") REFERENCES "author" ("id") ON DELETE CASCADE`,
			},
		},
		{
			model: (*ArticleKeyword)(nil),
			foreignKeys: []string{
				`("article_id") REFERENCES "article" ("id") ON DELETE CASCADE`,
				`("keyword_id") REFERENCES "keyword" ("id") ON DELETE CASCADE`,
			},
		},
	}

	for _, table := range tables {
		q := db.NewCreateTable().Model(table.model).IfNotExists()
		for _, fk := range table.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("store: create table %T: %w", table.model, err)
		}
	}

	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{model: (*ArticleRecord)(nil), name: "article_publication_date_idx", column: "publication_date"},
		{model: (*KeywordRecord)(nil), name: "keyword_description_idx", column: "description"},
		{model: (*ArticleAuthor)(nil), name: "article_author_author_idx", column: "author_id"},
		{model: (*ArticleKeyword)(nil), name: "article_keyword_keyword_idx", column: "keyword_id"},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("store: create index %s: %w", idx.name, err)
		}
	}
	return nil
}
