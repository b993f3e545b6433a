// Package repositorycache provides cached decorators for the catalog store repositories.
//
// # Overview
//
// The decorators wrap store.ArticleRepository and store.MemberRepository and
// implement the same interfaces, so the catalog service cannot tell a cached
// repository from the store itself. Reads keyed by a single identity go
// through the cache; everything else is delegated directly to the base
// repository.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	articles := repositorycache.NewArticles(store.NewArticleStore(db), svc)
//	authors := repositorycache.NewAuthors(store.NewAuthorStore(db), svc)
//	keywords := repositorycache.NewKeywords(store.NewKeywordStore(db), svc)
//
// # Cached vs Pass-through Operations
//
// Cached, one entry per identity and region:
//   - CachedArticles.Get ("article"), AuthorIDs ("article.authors"), KeywordIDs ("article.keywords")
//   - CachedMembers.Get and GetMany ("author" or "keyword")
//
// Pass-through:
//   - List and every Find* predicate query
//   - Create
//
// GetMany looks every id up in the cache and resolves all misses with a
// single store call, so hydrating an article costs at most one round trip per
// association.
//
// # Invalidation
//
// Writes go to the store first. Once the store call returns without error the
// decorator invalidates:
//
//   - Article Update: the scalar entry, plus each membership view whose edges changed
//   - Article Delete: the scalar entry and both membership views
//   - Author/Keyword Update: the entity entry
//   - Author/Keyword Delete: the entity entry and the membership view of every
//     article that referenced it
//
// There are no author-side or keyword-side membership views, so creating or
// updating an article never touches the author or keyword regions.
//
// A fetch that overlaps an invalidation never repopulates the cache with its
// result (see cache.GetOrFetch), so a read that started before a write cannot
// resurrect pre-write state.
//
// # Error Handling
//
// Errors from the base repository are propagated unchanged and never cached.
// Cache backend faults are absorbed by the cache service and behave as misses.
package repositorycache
