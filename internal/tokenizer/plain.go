package tokenizer

import (
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// PlainTokenizerName is the bleve tokenizer splitting on non-alphanumerics
	// and camel case boundaries.
	PlainTokenizerName = "quicksearch_plain"

	// PlainLanguage selects an analyzer without stop words or stemming.
	PlainLanguage = "plain"
)

// nonAlphanumericRegex matches sequences of non-alphanumeric characters.
var nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// acronymRegex handles cases like "HTTPRequest" -> "HTTP Request"
var acronymRegex = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)

// camelCaseRegex handles cases like "theOffice" -> "the Office" or "myAPI" -> "my API"
var camelCaseRegex = regexp.MustCompile(`([a-z0-9])([A-Z])`)

func init() {
	_ = registry.RegisterTokenizer(PlainTokenizerName, plainTokenizerConstructor)
}

func plainTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &plainTokenizer{}, nil
}

// plainTokenizer implements analysis.Tokenizer. Case is kept; the analyzer
// chains bleve's lowercase filter after it.
type plainTokenizer struct{}

func (p *plainTokenizer) Tokenize(input []byte) analysis.TokenStream {
	words := splitWords(string(input))
	stream := make(analysis.TokenStream, 0, len(words))
	for i, word := range words {
		stream = append(stream, &analysis.Token{
			Term:     []byte(word),
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return stream
}

// splitWords splits camel/PascalCase and then on non-alphanumeric characters.
func splitWords(text string) []string {
	processed := acronymRegex.ReplaceAllString(text, "$1 $2")
	processed = camelCaseRegex.ReplaceAllString(processed, "$1 $2")

	words := make([]string, 0)
	for _, s := range nonAlphanumericRegex.Split(processed, -1) {
		if strings.TrimSpace(s) != "" {
			words = append(words, s)
		}
	}
	return words
}
