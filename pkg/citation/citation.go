// Package citation composes the suggested bibliographic citation for a
// dataset: authors with numbered affiliation footnotes, publication year,
// title, publisher and DOI.
//
// Synthesize is a pure function over a metadata snapshot. It never mutates
// its input and is safe for concurrent use.
package citation

import (
	"fmt"
	"strconv"
	"strings"

	"datasetmd/internal/ordered"
	"datasetmd/pkg/metadata"
)

const (
	stageSep  = ". "
	authorSep = "; "
	markerSep = ","
)

// Synthesize returns the citation text for ds. ok is false when no field
// contributed anything. err is non-nil only when an author entry is neither
// a Person nor an Organisation.
func Synthesize(ds *metadata.Dataset) (text string, ok bool, err error) {
	if ds == nil {
		return "", false, nil
	}

	var (
		b            strings.Builder
		affiliations ordered.Index[string]
	)
	stage := func(s string) {
		if s != "" {
			b.WriteString(s)
			b.WriteString(stageSep)
		}
	}

	c := ds.Citation
	if c != nil {
		authors, err := authorSegment(c.Authors, &affiliations)
		if err != nil {
			return "", false, err
		}
		stage(authors)
		if !c.DOIPublicationDate.IsZero() {
			stage("(" + strconv.Itoa(c.DOIPublicationDate.Year()) + ")")
		}
	}
	if ds.Base != nil {
		stage(ds.Base.Title)
	}
	if c != nil {
		stage(organisationLabel(c.DOIPublisher))
		if doi := preferredDOI(c); doi != "" {
			stage("doi: " + doi)
		}
	}
	for i, entry := range affiliations.Keys() {
		fmt.Fprintf(&b, "(%d) %s%s", i+1, entry, stageSep)
	}

	text = strings.TrimSpace(b.String())
	return text, text != "", nil
}

func authorSegment(authors metadata.Contributors, affiliations *ordered.Index[string]) (string, error) {
	tokens := make([]string, 0, len(authors))
	for i, a := range authors {
		switch v := a.(type) {
		case *metadata.Person:
			if v == nil {
				return "", invalidAuthor(i, "nil person")
			}
			markers := make([]string, 0, len(v.Affiliations))
			for _, org := range v.Affiliations {
				if label := organisationLabel(org); label != "" {
					markers = append(markers, marker(affiliations, label))
				}
			}
			// a nameless person still numbers its affiliations
			if name := familyThenGiven(v); name != "" {
				tokens = append(tokens, name+strings.Join(markers, markerSep))
			}
		case *metadata.Organisation:
			if v == nil {
				return "", invalidAuthor(i, "nil organisation")
			}
			label := organisationLabel(v)
			if label == "" {
				continue
			}
			tokens = append(tokens, v.Name+marker(affiliations, label))
		case nil:
			return "", invalidAuthor(i, "nil contributor")
		default:
			return "", invalidAuthor(i, fmt.Sprintf("unexpected %T", a))
		}
	}
	return strings.Join(tokens, authorSep), nil
}

func invalidAuthor(i int, detail string) error {
	return fmt.Errorf("citation: author %d: %s: %w", i+1, detail, metadata.ErrInvalidContributor)
}

func marker(affiliations *ordered.Index[string], label string) string {
	pos, _ := affiliations.Add(label)
	return " (" + strconv.Itoa(pos+1) + ")"
}

// familyThenGiven ignores the person's display order.
func familyThenGiven(p *metadata.Person) string {
	switch {
	case p.FamilyName != "" && p.GivenName != "":
		return p.FamilyName + ", " + p.GivenName
	case p.FamilyName != "":
		return p.FamilyName
	default:
		return p.GivenName
	}
}

// organisationLabel is "name, country", "name", or "" when the name is missing.
func organisationLabel(org *metadata.Organisation) string {
	if org == nil || org.Name == "" {
		return ""
	}
	if org.Country == "" {
		return org.Name
	}
	return org.Name + ", " + org.Country
}

func preferredDOI(c *metadata.Citation) string {
	if c.PreferShortDOI {
		if c.ShortDOI != "" {
			return c.ShortDOI
		}
		return c.DOI
	}
	if c.DOI != "" {
		return c.DOI
	}
	return c.ShortDOI
}
