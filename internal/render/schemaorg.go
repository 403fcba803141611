package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"datasetmd/pkg/keywords"
	"datasetmd/pkg/metadata"
)

const (
	descriptionLimit = 5000
	doiResolver      = "https://doi.org/"
	doiRegistry      = "https://registry.identifiers.org/registry/doi"
)

type schemaContext struct {
	Vocab string `json:"@vocab"`
}

type schemaRef struct {
	ID   string `json:"@id,omitempty"`
	Type string `json:"@type,omitempty"`
}

type schemaIdentifier struct {
	ID         string    `json:"@id"`
	Type       string    `json:"@type"`
	PropertyID schemaRef `json:"propertyID"`
	Value      string    `json:"value"`
	URL        string    `json:"url"`
}

type schemaVariable struct {
	Type       string     `json:"@type"`
	Name       string     `json:"name,omitempty"`
	PropertyID *schemaRef `json:"propertyID,omitempty"`
}

type schemaAddress struct {
	Type           string `json:"@type"`
	AddressCountry string `json:"addressCountry"`
}

type schemaOrganization struct {
	Type    string         `json:"@type"`
	ID      string         `json:"@id,omitempty"`
	Name    string         `json:"name,omitempty"`
	Address *schemaAddress `json:"address,omitempty"`
}

type schemaGeoShape struct {
	Type string `json:"@type"`
	Box  string `json:"box"`
}

type schemaPlace struct {
	Type string         `json:"@type"`
	Geo  schemaGeoShape `json:"geo"`
}

type schemaDataset struct {
	Context               schemaContext        `json:"@context"`
	Type                  string               `json:"@type"`
	Name                  string               `json:"name,omitempty"`
	Description           string               `json:"description,omitempty"`
	Version               string               `json:"version,omitempty"`
	Keywords              []string             `json:"keywords,omitempty"`
	SameAs                string               `json:"sameAs,omitempty"`
	Identifier            *schemaIdentifier    `json:"identifier,omitempty"`
	VariableMeasured      []schemaVariable     `json:"variableMeasured,omitempty"`
	License               any                  `json:"license,omitempty"`
	IncludedInDataCatalog *schemaRef           `json:"includedInDataCatalog,omitempty"`
	Citation              string               `json:"citation,omitempty"`
	Creator               []Creator            `json:"creator,omitempty"`
	Publisher             *schemaOrganization  `json:"publisher,omitempty"`
	Provider              []schemaOrganization `json:"provider,omitempty"`
	SpatialCoverage       *schemaPlace         `json:"spatialCoverage,omitempty"`
}

func schemaOrg(ds *metadata.Dataset) ([]byte, error) {
	doc := schemaDataset{
		Context: schemaContext{Vocab: "https://schema.org/"},
		Type:    "Dataset",
	}
	if b := ds.Base; b != nil {
		doc.Name = b.Title
		doc.Description = truncate(b.Abstract, descriptionLimit)
		doc.Version = b.Modified.String()
	}
	for _, kw := range ds.Keywords {
		if kw != nil && kw.Title != "" {
			doc.Keywords = append(doc.Keywords, kw.Title)
		}
	}
	if c := ds.Citation; c != nil {
		if c.ShortDOI != "" {
			doc.SameAs = doiResolver + c.ShortDOI
		}
		if c.DOI != "" {
			doc.Identifier = &schemaIdentifier{
				ID:         doiResolver + c.DOI,
				Type:       "PropertyValue",
				PropertyID: schemaRef{ID: doiRegistry},
				Value:      "doi:" + c.DOI,
				URL:        doiResolver + c.DOI,
			}
		}
	}
	for _, op := range ds.ObservedProperties {
		if !keywords.Usable(op) {
			continue
		}
		v := schemaVariable{Type: "PropertyValue", Name: op.Title}
		if op.URL != "" {
			v.PropertyID = &schemaRef{ID: op.URL}
		}
		doc.VariableMeasured = append(doc.VariableMeasured, v)
	}
	doc.License = license(ds.License)
	if cat := ds.IncludedInDataCatalogue; cat != nil && cat.URL != "" {
		doc.IncludedInDataCatalog = &schemaRef{ID: cat.URL, Type: "DataCatalog"}
	}

	text, err := citationText(ds)
	if err != nil {
		return nil, err
	}
	doc.Citation = text
	if doc.Creator, err = Creators(ds); err != nil {
		return nil, err
	}

	if ds.Publisher != nil {
		p := organization(ds.Publisher)
		doc.Publisher = &p
	}
	for _, org := range ds.OwningOrganisations {
		if org != nil {
			doc.Provider = append(doc.Provider, organization(org))
		}
	}
	if w, s, e, n, ok := ds.Feature.BoundingBox(); ok {
		doc.SpatialCoverage = &schemaPlace{
			Type: "Place",
			Geo: schemaGeoShape{
				Type: "GeoShape",
				Box:  strings.Join([]string{decimal(s), decimal(w), decimal(n), decimal(e)}, " "),
			},
		}
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render schemaorg: %w", err)
	}
	return body, nil
}

// license prefers the SPDX identifier, listing the license URL alongside it
// when both exist, then the URL alone, then the license name.
func license(l *metadata.License) any {
	if l == nil {
		return nil
	}
	var spdx, url string
	if l.SPDXURL != nil {
		spdx = l.SPDXURL.URL
	}
	if l.URL != nil {
		url = l.URL.URL
	}
	switch {
	case spdx != "" && url != "":
		return []string{spdx, url}
	case spdx != "":
		return spdx
	case url != "":
		return url
	case l.Name != "":
		return l.Name
	default:
		return nil
	}
}

func organization(org *metadata.Organisation) schemaOrganization {
	o := schemaOrganization{Type: "Organization", Name: org.Name}
	if org.Website != nil {
		o.ID = org.Website.URL
	}
	if org.Country != "" {
		o.Address = &schemaAddress{Type: "PostalAddress", AddressCountry: org.Country}
	}
	return o
}

// truncate shortens s to at most limit runes, cutting at a word boundary and
// marking the cut with "...".
func truncate(s string, limit int) string {
	const ellipsis = "..."
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := runes[:limit-len(ellipsis)]
	if i := lastSpace(cut); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + ellipsis
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}
