package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-article-catalog/model"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func invalid(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrValidationFailure, err)
}

func validateAuthorPredicate(authorID int64) error {
	return validation.Validate(authorID, validation.Required, validation.Min(int64(1)))
}

func validateKeywordPredicate(description string) error {
	return validation.Validate(description, validation.Required)
}

// ParseDateRange parses optional RFC 3339 bounds as supplied by a request
// layer. Blank input yields a nil bound. Malformed values fail with
// model.ErrValidationFailure; bound ordering is left to FindArticlesByDateRange.
func ParseDateRange(startRaw, endRaw string) (start, end *time.Time, err error) {
	parse := func(raw string) (*time.Time, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}

	start, startErr := parse(startRaw)
	end, endErr := parse(endRaw)
	errs := validation.Errors{
		"start": startErr,
		"end":   endErr,
	}.Filter()
	if errs != nil {
		return nil, nil, invalid("parse date range", errs)
	}
	return start, end, nil
}
