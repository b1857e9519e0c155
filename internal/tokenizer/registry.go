package tokenizer

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	lru "github.com/hashicorp/golang-lru/v2"

	// language analyzers register themselves with bleve's registry
	_ "github.com/blevesearch/bleve/v2/analysis/lang/de"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/en"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/es"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/fr"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/it"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/nl"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/pt"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/ru"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/sv"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
)

// DefaultCacheSize bounds the number of resolved tokenizers kept around.
const DefaultCacheSize = 16

// Registry resolves language codes to tokenizers. Resolved tokenizers are
// kept in an LRU cache; the underlying bleve analyzers are cached by the
// mapping itself.
type Registry struct {
	mapping *mapping.IndexMappingImpl
	cache   *lru.Cache[string, *Tokenizer]
}

// NewRegistry creates a registry holding at most cacheSize tokenizers.
func NewRegistry(cacheSize int) (*Registry, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Tokenizer](cacheSize)
	if err != nil {
		return nil, err
	}

	im := bleve.NewIndexMapping()
	err = im.AddCustomAnalyzer(PlainLanguage, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     PlainTokenizerName,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}

	return &Registry{mapping: im, cache: cache}, nil
}

// Get returns the tokenizer for language, or an UnsupportedLanguageError when
// bleve has no analyzer by that name. An empty language selects the default.
func (r *Registry) Get(language string) (*Tokenizer, error) {
	if language == "" {
		language = DefaultLanguage
	}
	if t, ok := r.cache.Get(language); ok {
		return t, nil
	}

	if _, err := r.mapping.AnalyzeText(language, []byte("probe")); err != nil {
		return nil, internalErrors.NewUnsupportedLanguageError(language)
	}

	t := &Tokenizer{language: language, mapping: r.mapping}
	r.cache.Add(language, t)
	return t, nil
}

// Supported reports whether language resolves to an analyzer.
func (r *Registry) Supported(language string) bool {
	_, err := r.Get(language)
	return err == nil
}
