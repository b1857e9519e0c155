package search

import (
	"context"
	"regexp"

	"github.com/gcbaptista/quicksearch/model"
	"github.com/gcbaptista/quicksearch/services"
)

// Highlight attaches, for every field in which a result matched, the field
// text with each matched term (and the letters following it) wrapped in pre
// and post. Empty pre or post select the <strong> defaults. Attached
// documents are reused; others are fetched.
func (s *Service) Highlight(ctx context.Context, results []model.ScoredResult, fields []model.FieldBoost, matches *Matches, pre, post string) error {
	if pre == "" {
		pre = services.DefaultHighlightPre
	}
	if post == "" {
		post = services.DefaultHighlightPost
	}

	docs, err := s.fetchDocs(ctx, results, true)
	if err != nil {
		return err
	}

	patterns := make(map[string]*regexp.Regexp, len(matches.Terms))
	for _, term := range matches.Terms {
		patterns[term] = termPattern(term)
	}

	for i := range results {
		highlighting := make(map[string]string)
		for f, fb := range fields {
			terms := matches.FieldTerms(results[i].ID, f)
			if len(terms) == 0 {
				continue
			}
			text := docs[i].FieldText(fb)
			for _, term := range terms {
				text = wrap(patterns[term], text, pre, post)
			}
			highlighting[fb.Field] = text
		}
		results[i].Highlighting = highlighting
	}
	return nil
}

// HighlightText wraps every case-insensitive occurrence of each term, plus
// any letters directly after it, in pre and post. Terms are applied
// one after another, so a later term can match inside earlier markup.
func HighlightText(text string, terms []string, pre, post string) string {
	for _, term := range terms {
		text = wrap(termPattern(term), text, pre, post)
	}
	return text
}

func termPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(` + regexp.QuoteMeta(term) + `[a-z]*)`)
}

func wrap(pattern *regexp.Regexp, text, pre, post string) string {
	return pattern.ReplaceAllStringFunc(text, func(match string) string {
		return pre + match + post
	})
}
