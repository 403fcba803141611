package render

import (
	"strconv"

	"datasetmd/pkg/keywords"
	"datasetmd/pkg/metadata"
)

const (
	roleContact    = "pointOfContact"
	roleOriginator = "originator"
	epsgPrefix     = "http://www.opengis.net/def/crs/EPSG/0/"
)

type isoView struct {
	FileIdentifier  string
	Contact         *isoParty
	DateStamp       string
	DataSetURI      string
	CRS             string
	Title           string
	Identifiers     []string
	CitationText    string
	Abstract        string
	PointsOfContact []isoParty
	Keywords        []keywords.Vocabulary
	UseLimitations  []string
	Legal           *isoLegal
	Aggregations    []isoAggregation
	BoundingBox     *isoBoundingBox
}

type isoParty struct {
	Name               string
	DeliveryPoint      string
	City               string
	AdministrativeArea string
	PostalCode         string
	Country            string
	Email              string
	URL                string
	URLTitle           string
	Role               string
}

type isoLegal struct {
	CodeList    string
	Name        string
	Description string
}

type isoAggregation struct {
	Index      int
	Title      string
	CodeList   string
	Initiative string
}

type isoBoundingBox struct {
	West, East, South, North string
}

func newISOView(ds *metadata.Dataset) (isoView, error) {
	var view isoView
	if b := ds.Base; b != nil {
		view.FileIdentifier = b.Identifier
		view.DateStamp = b.Modified.String()
		view.Title = b.Title
		view.Abstract = b.Abstract
		if b.Identifier != "" {
			view.Identifiers = append(view.Identifiers, b.Identifier)
		}
	}
	if c := ds.Citation; c != nil {
		view.DataSetURI = c.DOI
		for _, id := range []string{c.ShortDOI, c.DOI} {
			if id != "" {
				view.Identifiers = append(view.Identifiers, id)
			}
		}
	}
	text, err := citationText(ds)
	if err != nil {
		return isoView{}, err
	}
	view.CitationText = text

	if ds.Publisher != nil {
		p := newParty(ds.Publisher, roleContact)
		view.Contact = &p
	}
	for _, org := range ds.OwningOrganisations {
		if org != nil {
			view.PointsOfContact = append(view.PointsOfContact, newParty(org, roleOriginator))
		}
	}
	if f := ds.Feature; f != nil {
		if f.CRSEPSGCode != 0 {
			view.CRS = epsgPrefix + strconv.Itoa(f.CRSEPSGCode)
		}
		if w, s, e, n, ok := f.BoundingBox(); ok {
			view.BoundingBox = &isoBoundingBox{West: decimal(w), East: decimal(e), South: decimal(s), North: decimal(n)}
		}
	}
	view.Keywords, _ = keywords.Group(ds.ObservedProperties, ds.Keywords)

	if l := ds.Limitations; l != nil {
		for _, ul := range l.UseLimitations {
			if ul != "" {
				view.UseLimitations = append(view.UseLimitations, ul)
			}
		}
	}
	if l := ds.License; l != nil {
		legal := &isoLegal{Name: l.Name, Description: l.Description}
		if l.InDefinedTermSet != nil {
			legal.CodeList = l.InDefinedTermSet.URL
		}
		view.Legal = legal
	}
	for i, ref := range ds.CrossReferences {
		if ref == nil {
			continue
		}
		agg := isoAggregation{Index: i + 1, Title: ref.Title}
		if t := ref.Type; t != nil {
			agg.Initiative = t.Title
			if t.InDefinedTermSet != nil {
				agg.CodeList = t.InDefinedTermSet.URL
			}
		}
		view.Aggregations = append(view.Aggregations, agg)
	}
	return view, nil
}

func newParty(org *metadata.Organisation, role string) isoParty {
	p := isoParty{
		Name:               org.Name,
		DeliveryPoint:      org.DeliveryPoint,
		City:               org.City,
		AdministrativeArea: org.AdministrativeArea,
		PostalCode:         org.PostalCode,
		Country:            org.Country,
		Email:              org.EmailAddress,
		Role:               role,
	}
	if w := org.Website; w != nil && w.URL != "" {
		p.URL = w.URL
		p.URLTitle = w.Title
		switch {
		case p.URLTitle != "":
		case org.Name != "":
			p.URLTitle = org.Name + " home page"
		default:
			p.URLTitle = w.URL
		}
	}
	return p
}

func decimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
