package catalog

import (
	"fmt"
	"time"

	"github.com/goliatone/go-article-catalog/model"
	"github.com/goliatone/go-article-catalog/store"
)

func toAuthor(rec store.AuthorRecord) model.Author {
	return model.Author{ID: model.NewID(rec.ID), FirstName: rec.FirstName, LastName: rec.LastName}
}

func toKeyword(rec store.KeywordRecord) model.Keyword {
	return model.Keyword{ID: model.NewID(rec.ID), Description: rec.Description}
}

func fromAuthor(a model.Author) store.AuthorRecord {
	id, _ := a.ID.Int64()
	return store.AuthorRecord{ID: id, FirstName: a.FirstName, LastName: a.LastName}
}

func fromKeyword(k model.Keyword) store.KeywordRecord {
	id, _ := k.ID.Int64()
	return store.KeywordRecord{ID: id, Description: k.Description}
}

// toArticle builds a hydrated article. Cached records decode their
// timestamps in the local zone, so instants are normalised to UTC here.
func toArticle(rec store.ArticleRecord, authors []store.AuthorRecord, keywords []store.KeywordRecord) (model.Article, error) {
	a := model.Article{
		ID:          model.NewID(rec.ID),
		Header:      rec.Header,
		Description: rec.Description,
		Text:        rec.Text,
	}
	if rec.PublicationDate != nil {
		t := rec.PublicationDate.UTC()
		a.PublicationDate = &t
	}
	for _, r := range authors {
		if err := a.Authors.Add(toAuthor(r)); err != nil {
			return model.Article{}, fmt.Errorf("hydrate article %d: %w", rec.ID, err)
		}
	}
	for _, r := range keywords {
		if err := a.Keywords.Add(toKeyword(r)); err != nil {
			return model.Article{}, fmt.Errorf("hydrate article %d: %w", rec.ID, err)
		}
	}
	return a, nil
}

func toArticles(recs []store.ArticleRecord) ([]model.Article, error) {
	out := make([]model.Article, 0, len(recs))
	for _, rec := range recs {
		a, err := toArticle(rec, rec.Authors, rec.Keywords)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func fromArticle(a model.Article) (store.ArticleRecord, store.Links) {
	id, _ := a.ID.Int64()
	rec := store.ArticleRecord{
		ID:          id,
		Header:      a.Header,
		Description: a.Description,
		Text:        a.Text,
	}
	if a.PublicationDate != nil {
		t := a.PublicationDate.UTC()
		rec.PublicationDate = &t
	}
	return rec, store.Links{AuthorIDs: a.Authors.IDs(), KeywordIDs: a.Keywords.IDs()}
}

var epoch = time.Unix(0, 0).UTC()
