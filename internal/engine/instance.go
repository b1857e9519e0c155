package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gcbaptista/quicksearch/config"
	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/internal/filter"
	"github.com/gcbaptista/quicksearch/internal/indexing"
	"github.com/gcbaptista/quicksearch/internal/tokenizer"
	"github.com/gcbaptista/quicksearch/model"
)

// indexInstance is everything needed to build or query the index selected
// by one set of search options.
type indexInstance struct {
	settings  *config.IndexSettings
	identity  string
	tokenizer *tokenizer.Tokenizer
	builder   *indexing.Builder
}

// newIndexInstance validates the index settings, resolves the analyzer and
// prepares a builder whose filter failures are logged.
func (e *Engine) newIndexInstance(language string, fields []model.FieldBoost, f filter.Filter) (*indexInstance, error) {
	if language == "" {
		language = e.defaultLanguage
	}
	settings := config.NewIndexSettings(language, copyFields(fields), f)

	if conflicts := settings.ValidateFieldNames(); len(conflicts) > 0 {
		return nil, internalErrors.NewValidationError("fields", strings.Join(conflicts, "; "))
	}

	tok, err := e.tokenizers.Get(settings.Language)
	if err != nil {
		return nil, err
	}

	builder, err := indexing.NewBuilder(settings.Fields, tok, settings.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to create index builder: %w", err)
	}

	instance := &indexInstance{
		settings:  settings,
		identity:  settings.Identity(),
		tokenizer: tok,
		builder:   builder,
	}
	builder.OnFilterError = func(docID string, err error) {
		e.logger.Warn("filter failed, document excluded from index",
			zap.String("index", instance.identity), zap.String("doc_id", docID), zap.Error(err))
	}
	return instance, nil
}

// copyFields keeps sorting from reordering the caller's slice.
func copyFields(fields []model.FieldBoost) []model.FieldBoost {
	out := make([]model.FieldBoost, len(fields))
	copy(out, fields)
	return out
}
