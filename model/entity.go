// Package model defines the catalog entities and their association rules.
//
// Articles own two membership sets, one of authors and one of keywords.
// Membership is by identity only: an article never owns the lifecycle of the
// authors or keywords it references, and a member must be persisted before
// it can be associated.
package model

import "time"

// Author is a person credited on articles.
type Author struct {
	ID        ID     `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Identity implements Entity.
func (a Author) Identity() ID { return a.ID }

// Equal compares authors by identity.
func (a Author) Equal(other Author) bool { return a.ID.Equal(other.ID) }

// Keyword is a lookup tag. Description is the exact, case-sensitive lookup key.
type Keyword struct {
	ID          ID     `json:"id"`
	Description string `json:"description"`
}

// Identity implements Entity.
func (k Keyword) Identity() ID { return k.ID }

// Equal compares keywords by identity.
func (k Keyword) Equal(other Keyword) bool { return k.ID.Equal(other.ID) }

// Article is a catalog entry with its author and keyword memberships.
// PublicationDate is nil when the article has no publication date.
type Article struct {
	ID              ID           `json:"id"`
	Header          string       `json:"header"`
	Description     string       `json:"description"`
	Text            string       `json:"text"`
	PublicationDate *time.Time   `json:"publicationDate,omitempty"`
	Authors         Set[Author]  `json:"authors"`
	Keywords        Set[Keyword] `json:"keywords"`
}

// Identity implements Entity.
func (a Article) Identity() ID { return a.ID }

// Equal compares articles by identity.
func (a Article) Equal(other Article) bool { return a.ID.Equal(other.ID) }

// Clone returns a deep copy, safe to modify independently of a.
func (a Article) Clone() Article {
	out := a
	if a.PublicationDate != nil {
		t := *a.PublicationDate
		out.PublicationDate = &t
	}
	out.Authors = a.Authors.Clone()
	out.Keywords = a.Keywords.Clone()
	return out
}

// AddAuthor adds author to the article's author set.
func (a *Article) AddAuthor(author Author) error {
	return a.Authors.Add(author)
}

// RemoveAuthor removes author from the article's author set.
func (a *Article) RemoveAuthor(author Author) {
	a.Authors.Remove(author)
}

// AddKeyword adds keyword to the article's keyword set.
func (a *Article) AddKeyword(keyword Keyword) error {
	return a.Keywords.Add(keyword)
}

// RemoveKeyword removes keyword from the article's keyword set.
func (a *Article) RemoveKeyword(keyword Keyword) {
	a.Keywords.Remove(keyword)
}

// AuthorRef returns an author reference carrying only an identity.
func AuthorRef(id int64) Author {
	return Author{ID: NewID(id)}
}

// KeywordRef returns a keyword reference carrying only an identity.
func KeywordRef(id int64) Keyword {
	return Keyword{ID: NewID(id)}
}
