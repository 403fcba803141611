package metadata

// DefinedTerm is a term taken from a controlled vocabulary, taxonomy or
// ontology. Observed properties and free-form keywords share this type.
type DefinedTerm struct {
	InDefinedTermSet *DefinedTermSet `json:"in_defined_term_set,omitempty" yaml:"in_defined_term_set"`
	PublicationDate  Date            `json:"publication_date,omitzero" yaml:"publication_date"`
	TermCode         string          `json:"term_code,omitempty" yaml:"term_code"`
	Title            string          `json:"title,omitempty" yaml:"title"`
	URL              string          `json:"url,omitempty" yaml:"url"`
}

// DefinedTermSet is the vocabulary or ontology a DefinedTerm is drawn from.
type DefinedTermSet struct {
	PublicationDate Date   `json:"publication_date,omitzero" yaml:"publication_date"`
	TermCode        string `json:"term_code,omitempty" yaml:"term_code"`
	Title           string `json:"title,omitempty" yaml:"title"`
	URL             string `json:"url,omitempty" yaml:"url"`
}

// IsBlank reports whether the term carries neither a title nor a url.
func (t *DefinedTerm) IsBlank() bool {
	return t == nil || (t.Title == "" && t.URL == "")
}
