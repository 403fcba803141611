// Package metadata defines the read-only value objects describing a
// scientific or environmental dataset: its descriptive base, citation,
// contributors, vocabulary terms, licensing and spatial extent.
//
// String fields use the empty string for an absent value and nested entities
// use nil pointers. Nothing in this package validates completeness; renderers
// omit whatever is missing.
package metadata

// Dataset is the metadata root for a single dataset.
type Dataset struct {
	Base                    *Base             `json:"base,omitempty" yaml:"base"`
	Citation                *Citation         `json:"citation,omitempty" yaml:"citation"`
	CrossReferences         []*CrossReference `json:"cross_references,omitempty" yaml:"cross_references"`
	Feature                 *Feature          `json:"feature,omitempty" yaml:"feature"`
	IncludedInDataCatalogue *WebAddress       `json:"included_in_data_catalogue,omitempty" yaml:"included_in_data_catalogue"`
	Keywords                []*DefinedTerm    `json:"keywords,omitempty" yaml:"keywords"`
	License                 *License          `json:"license,omitempty" yaml:"license"`
	Limitations             *Limitations      `json:"limitations,omitempty" yaml:"limitations"`
	ObservedProperties      []*DefinedTerm    `json:"observed_properties,omitempty" yaml:"observed_properties"`
	OwningOrganisations     []*Organisation   `json:"owning_organisations,omitempty" yaml:"owning_organisations"`
	Publisher               *Organisation     `json:"publisher,omitempty" yaml:"publisher"`
}

// Base carries the descriptive fields every dataset record has.
type Base struct {
	Abstract   string `json:"abstract,omitempty" yaml:"abstract"`
	Created    Date   `json:"created,omitzero" yaml:"created"`
	Identifier string `json:"identifier,omitempty" yaml:"identifier"`
	Modified   Date   `json:"modified,omitzero" yaml:"modified"`
	Title      string `json:"title,omitempty" yaml:"title"`
}

// Citation describes a formal citation identifier (typically a DOI minted by
// an authority such as DataCite) and the authors credited with the dataset.
type Citation struct {
	Authors            Contributors  `json:"authors,omitempty" yaml:"authors"`
	DOI                string        `json:"doi,omitempty" yaml:"doi"`
	DOIPublicationDate Date          `json:"doi_publication_date,omitzero" yaml:"doi_publication_date"`
	DOIPublisher       *Organisation `json:"doi_publisher,omitempty" yaml:"doi_publisher"`
	PreferShortDOI     bool          `json:"prefer_short_doi,omitempty" yaml:"prefer_short_doi"`
	ShortDOI           string        `json:"short_doi,omitempty" yaml:"short_doi"`
}

// WebAddress is an HTTP, FTP or similar link with an optional label.
type WebAddress struct {
	Title string `json:"title,omitempty" yaml:"title"`
	URL   string `json:"url,omitempty" yaml:"url"`
}

// CrossReference points at another relevant metadata entity.
type CrossReference struct {
	Title string       `json:"title,omitempty" yaml:"title"`
	URL   string       `json:"url,omitempty" yaml:"url"`
	Type  *DefinedTerm `json:"cross_reference_type,omitempty" yaml:"cross_reference_type"`
}

// Feature is the geographic extent of a dataset. Bounds are optional.
type Feature struct {
	ID                   string   `json:"id,omitempty" yaml:"id"`
	CRSEPSGCode          int      `json:"crs_epsg_code,omitempty" yaml:"crs_epsg_code"`
	LatitudeNorthernmost *float64 `json:"latitude_northernmost,omitempty" yaml:"latitude_northernmost"`
	LatitudeSouthernmost *float64 `json:"latitude_southernmost,omitempty" yaml:"latitude_southernmost"`
	LongitudeEasternmost *float64 `json:"longitude_easternmost,omitempty" yaml:"longitude_easternmost"`
	LongitudeWesternmost *float64 `json:"longitude_westernmost,omitempty" yaml:"longitude_westernmost"`
}

// BoundingBox returns the (west, south, east, north) bounds when all four are present.
func (f *Feature) BoundingBox() (west, south, east, north float64, ok bool) {
	if f == nil || f.LongitudeWesternmost == nil || f.LatitudeSouthernmost == nil ||
		f.LongitudeEasternmost == nil || f.LatitudeNorthernmost == nil {
		return 0, 0, 0, 0, false
	}
	return *f.LongitudeWesternmost, *f.LatitudeSouthernmost, *f.LongitudeEasternmost, *f.LatitudeNorthernmost, true
}

// License describes how a dataset may be distributed and reused.
type License struct {
	Description      string          `json:"description,omitempty" yaml:"description"`
	InDefinedTermSet *DefinedTermSet `json:"in_defined_term_set,omitempty" yaml:"in_defined_term_set"`
	Name             string          `json:"name,omitempty" yaml:"name"`
	SPDXURL          *WebAddress     `json:"spdx_url,omitempty" yaml:"spdx_url"`
	URL              *WebAddress     `json:"url,omitempty" yaml:"url"`
}

// Limitations lists usage or legal limitations outside the license agreement.
type Limitations struct {
	UseLimitations []string `json:"use_limitations,omitempty" yaml:"use_limitations"`
}
