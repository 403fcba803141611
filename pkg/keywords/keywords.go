// Package keywords merges a dataset's observed properties and free-form
// keywords into vocabulary-grouped term lists.
package keywords

import (
	"datasetmd/internal/ordered"
	"datasetmd/pkg/metadata"
)

// Term is a member of a vocabulary group.
type Term struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Vocabulary is one group of terms drawn from the same DefinedTermSet.
// PublicationDate is taken from the first term that introduced the group.
type Vocabulary struct {
	Title           string        `json:"title,omitempty"`
	URL             string        `json:"url,omitempty"`
	PublicationDate metadata.Date `json:"publication_date,omitzero"`
	Terms           []Term        `json:"terms"`
}

type vocabularyKey struct{ title, url string }

// Usable reports whether t carries enough to be rendered as a term: it must
// be non-nil with a title or a url. Schema.org variableMeasured uses the same
// rule.
func Usable(t *metadata.DefinedTerm) bool {
	return t != nil && !t.IsBlank()
}

// Group returns the vocabularies of observed followed by keywords, in first
// seen order. Terms without a vocabulary are dropped. ok is false when no
// group was produced.
func Group(observed, keywords []*metadata.DefinedTerm) (groups []Vocabulary, ok bool) {
	var (
		index   ordered.Index[vocabularyKey]
		members []ordered.Index[Term]
	)
	for _, source := range [][]*metadata.DefinedTerm{observed, keywords} {
		for _, t := range source {
			if !Usable(t) || t.InDefinedTermSet == nil {
				continue
			}
			set := t.InDefinedTermSet
			pos, added := index.Add(vocabularyKey{title: set.Title, url: set.URL})
			if added {
				groups = append(groups, Vocabulary{Title: set.Title, URL: set.URL, PublicationDate: set.PublicationDate})
				members = append(members, ordered.Index[Term]{})
			}
			term := Term{Title: t.Title, URL: t.URL}
			if _, fresh := members[pos].Add(term); fresh {
				groups[pos].Terms = append(groups[pos].Terms, term)
			}
		}
	}
	return groups, len(groups) > 0
}
