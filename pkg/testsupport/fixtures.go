package testsupport

import (
	_ "embed"
	"encoding/json"
	"testing"
	"time"
)

//go:embed testdata/catalog.json
var catalogJSON []byte

// CatalogFixture is the seed data shared by the store and catalog tests.
// Article links refer to authors and keywords by their position in the
// fixture, since identities are only known after persistence.
type CatalogFixture struct {
	Authors  []AuthorFixture  `json:"authors"`
	Keywords []KeywordFixture `json:"keywords"`
	Articles []ArticleFixture `json:"articles"`
}

// AuthorFixture is an author seed row.
type AuthorFixture struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// KeywordFixture is a keyword seed row.
type KeywordFixture struct {
	Description string `json:"description"`
}

// ArticleFixture is an article seed row.
type ArticleFixture struct {
	Header          string     `json:"header"`
	Description     string     `json:"description"`
	Text            string     `json:"text"`
	PublicationDate *time.Time `json:"publicationDate"`
	Authors         []int      `json:"authors"`
	Keywords        []int      `json:"keywords"`
}

// LoadCatalog returns a fresh copy of the embedded catalog fixture.
func LoadCatalog(t testing.TB) CatalogFixture {
	t.Helper()

	var fx CatalogFixture
	if err := json.Unmarshal(catalogJSON, &fx); err != nil {
		t.Fatalf("failed to unmarshal catalog fixture: %v", err)
	}
	return fx
}
