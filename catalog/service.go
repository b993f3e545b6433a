// Package catalog is the article catalog boundary: hydrated queries over
// articles, authors and keywords, and the mutations that keep the store and
// the read cache consistent.
package catalog

import (
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-article-catalog/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const instrumentationName = "github.com/goliatone/go-article-catalog/catalog"

// Service implements the catalog operations on top of the (usually cached)
// store repositories.
type Service struct {
	articles store.ArticleRepository
	authors  store.AuthorRepository
	keywords store.KeywordRepository

	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time

	// hydrations coalesces concurrent GetArticle misses. Keys carry the
	// write epoch, so a read that starts after a mutation never joins a
	// hydration that started before it.
	hydrations singleflight.Group
	epoch      atomic.Uint64
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracerProvider sets the provider used to create spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithClock sets the clock used to resolve an open-ended date range.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Service over the given repositories.
func New(articles store.ArticleRepository, authors store.AuthorRepository, keywords store.KeywordRepository, opts ...Option) *Service {
	s := &Service{
		articles: articles,
		authors:  authors,
		keywords: keywords,
		logger:   slog.Default(),
		tracer:   otel.Tracer(instrumentationName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) hydrationKey(id int64) string {
	return strconv.FormatInt(id, 10) + "@" + strconv.FormatUint(s.epoch.Load(), 10)
}

// mutated must be called after every successful write, once its cache
// invalidation is done.
func (s *Service) mutated() {
	s.epoch.Add(1)
}
